// Package resource resolves confluence:// and jira:// addresses to text.
//
// Grammar:
//
//	confluence://SPACE               pages in a space
//	confluence://SPACE/pages/TITLE   one page, by title (may contain "/")
//	jira://PROJECT                   issues in a project, newest first
//	jira://PROJECT/issues/KEY        one issue
//
// wiki:// and tracker:// are accepted as aliases.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/olgasafonova/atlassian-mcp-server/internal/confluence"
	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
	"github.com/olgasafonova/atlassian-mcp-server/internal/jira"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
	"github.com/olgasafonova/atlassian-mcp-server/tracing"
)

// Scheme identifies the backend an address points at.
type Scheme string

const (
	SchemeWiki    Scheme = "confluence"
	SchemeTracker Scheme = "jira"
)

// Kind is what an address points at within its backend.
type Kind string

const (
	KindListing    Kind = "container_listing"
	KindTitledItem Kind = "titled_item"
	KindKeyedItem  Kind = "keyed_item"
)

// itemKind is the single-item kind each backend addresses.
var itemKind = map[Scheme]Kind{
	SchemeWiki:    KindTitledItem,
	SchemeTracker: KindKeyedItem,
}

// Listing sizes, matching the tool defaults for the same operations.
const (
	SpacePageLimit    = 10
	ProjectIssueLimit = 50
	SpaceListLimit    = 50
)

var schemeAliases = map[string]Scheme{
	"confluence": SchemeWiki,
	"wiki":       SchemeWiki,
	"jira":       SchemeTracker,
	"tracker":    SchemeTracker,
}

var itemSegment = map[Scheme]string{
	SchemeWiki:    "pages",
	SchemeTracker: "issues",
}

// Address is a parsed resource URI.
type Address struct {
	Scheme       Scheme
	ContainerKey string
	Kind         Kind
	Locator      string
}

// Wiki is what the resolver needs from the Confluence normalizer.
type Wiki interface {
	GetSpacePages(ctx context.Context, spaceKey string, start, limit int, clean bool) ([]document.Document, error)
	GetPageByTitle(ctx context.Context, spaceKey, title string, clean bool) (*document.Document, error)
	GetSpaces(ctx context.Context, start, limit int) ([]confluence.Space, error)
}

// Tracker is what the resolver needs from the Jira normalizer.
type Tracker interface {
	GetProjectIssues(ctx context.Context, projectKey string, start, limit int) ([]document.Document, error)
	GetIssue(ctx context.Context, key, expand string) (document.Document, error)
	ListProjects(ctx context.Context) ([]jira.Project, error)
}

// Entry describes one listable resource.
type Entry struct {
	URI         string
	Name        string
	Description string
}

// Resolver reads resources. A nil Wiki or Tracker marks that backend as
// not configured.
type Resolver struct {
	wiki    Wiki
	tracker Tracker
	logger  *slog.Logger
}

// NewResolver creates a Resolver over the configured normalizers.
func NewResolver(wiki Wiki, tracker Tracker, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{wiki: wiki, tracker: tracker, logger: logger}
}

// Parse splits a resource URI into its parts. It does not check whether
// the backend is configured.
func Parse(uri string) (Address, error) {
	rawScheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Address{}, apperrors.NewValidationError("uri", uri, "missing scheme")
	}
	scheme, ok := schemeAliases[rawScheme]
	if !ok {
		return Address{}, apperrors.NewValidationError("uri", uri, "unknown scheme "+rawScheme)
	}

	parts := strings.Split(rest, "/")
	addr := Address{Scheme: scheme, ContainerKey: parts[0]}
	if addr.ContainerKey == "" {
		return Address{}, apperrors.NewValidationError("uri", uri, "missing container key")
	}

	switch {
	case len(parts) == 1:
		addr.Kind = KindListing
		return addr, nil
	case len(parts) == 2:
		return Address{}, apperrors.NewValidationError("uri", uri, "malformed address, expected KEY or KEY/"+itemSegment[scheme]+"/ID")
	case parts[1] != itemSegment[scheme]:
		return Address{}, apperrors.NewValidationError("uri", uri, fmt.Sprintf("unsupported kind %q", parts[1]))
	}

	locator, err := url.PathUnescape(strings.Join(parts[2:], "/"))
	if err != nil {
		return Address{}, apperrors.NewValidationError("uri", uri, "invalid escape in locator")
	}
	if locator == "" {
		return Address{}, apperrors.NewValidationError("uri", uri, "missing item locator")
	}
	addr.Kind = itemKind[scheme]
	addr.Locator = locator
	return addr, nil
}

// Read resolves uri and renders it as plain text.
func (r *Resolver) Read(ctx context.Context, uri string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "resource.read")
	defer span.End()

	addr, err := Parse(uri)
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}
	tracing.AddResourceAttributes(span, uri, string(addr.Scheme), string(addr.Kind))

	var text string
	switch addr.Scheme {
	case SchemeWiki:
		text, err = r.readWiki(ctx, addr)
	case SchemeTracker:
		text, err = r.readTracker(ctx, addr)
	}

	metrics.RecordResourceRead(string(addr.Scheme), string(addr.Kind), err == nil)
	if err != nil {
		tracing.RecordError(span, err)
		r.logger.Warn("Resource read failed", "uri", uri, "error", err)
		return "", err
	}
	return text, nil
}

func (r *Resolver) readWiki(ctx context.Context, addr Address) (string, error) {
	if r.wiki == nil {
		return "", apperrors.NewConfigError("confluence", "set CONFLUENCE_URL and CONFLUENCE_API_TOKEN")
	}

	if addr.Kind == KindListing {
		docs, err := r.wiki.GetSpacePages(ctx, addr.ContainerKey, 0, SpacePageLimit, true)
		if err != nil {
			return "", err
		}
		blocks := make([]string, 0, len(docs))
		for _, d := range docs {
			blocks = append(blocks, fmt.Sprintf("# %s\n\n%s\n---", d.Metadata.String("title"), d.Content))
		}
		return strings.Join(blocks, "\n\n"), nil
	}

	doc, err := r.wiki.GetPageByTitle(ctx, addr.ContainerKey, addr.Locator, true)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", apperrors.NewNotFoundError("confluence", "page", addr.ContainerKey+"/"+addr.Locator)
	}
	return doc.Content, nil
}

func (r *Resolver) readTracker(ctx context.Context, addr Address) (string, error) {
	if r.tracker == nil {
		return "", apperrors.NewConfigError("jira", "set JIRA_URL and JIRA_API_TOKEN")
	}

	if addr.Kind == KindListing {
		docs, err := r.tracker.GetProjectIssues(ctx, addr.ContainerKey, 0, ProjectIssueLimit)
		if err != nil {
			return "", err
		}
		blocks := make([]string, 0, len(docs))
		for _, d := range docs {
			blocks = append(blocks, fmt.Sprintf("# %s: %s\n\n%s\n---",
				d.Metadata.String("key"), d.Metadata.String("title"), d.Content))
		}
		return strings.Join(blocks, "\n\n"), nil
	}

	doc, err := r.tracker.GetIssue(ctx, addr.Locator, "")
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// List enumerates spaces and projects. A backend that fails to list is
// logged and skipped.
func (r *Resolver) List(ctx context.Context) []Entry {
	var entries []Entry

	if r.wiki != nil {
		spaces, err := r.wiki.GetSpaces(ctx, 0, SpaceListLimit)
		if err != nil {
			r.logger.Error("Failed to list Confluence spaces", "error", err)
		}
		for _, s := range spaces {
			entries = append(entries, Entry{
				URI:  "confluence://" + s.Key,
				Name: "Confluence Space: " + s.Name,
			})
		}
	}

	if r.tracker != nil {
		projects, err := r.tracker.ListProjects(ctx)
		if err != nil {
			r.logger.Error("Failed to list Jira projects", "error", err)
		}
		for _, p := range projects {
			entries = append(entries, Entry{
				URI:         "jira://" + p.Key,
				Name:        "Jira Project: " + p.Name,
				Description: p.Description,
			})
		}
	}

	return entries
}
