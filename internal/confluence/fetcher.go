// Package confluence normalizes Confluence pages, comments and search hits
// into documents.
package confluence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

// Backend is the subset of the Confluence REST API the fetcher needs.
// Every method returns the raw JSON response body.
type Backend interface {
	GetSpaces(ctx context.Context, start, limit int) ([]byte, error)
	GetPageByID(ctx context.Context, pageID, expand string) ([]byte, error)
	GetPageByTitle(ctx context.Context, spaceKey, title, expand string) ([]byte, error)
	GetSpacePages(ctx context.Context, spaceKey string, start, limit int, expand string) ([]byte, error)
	GetPageComments(ctx context.Context, pageID, expand string) ([]byte, error)
	Search(ctx context.Context, cql string, limit int) ([]byte, error)
}

// TextProcessor cleans storage HTML and splits markdown.
type TextProcessor interface {
	ProcessHTML(ctx context.Context, html, spaceKey string) (cleaned, markdown string, err error)
	Chunk(markdown string) ([]string, error)
}

// Operation names, also used as metric labels.
const (
	OpGetPageContent  = "get_page_content"
	OpSplitPage       = "split_page"
	OpGetPageByTitle  = "get_page_by_title"
	OpGetSpacePages   = "get_space_pages"
	OpGetPageComments = "get_page_comments"
	OpSearch          = "search"
	OpGetSpaces       = "get_spaces"
)

// OperationPolicies declares how each operation treats backend failures.
var OperationPolicies = map[string]document.Policy{
	OpGetPageContent:  document.PolicyHard,
	OpSplitPage:       document.PolicyHard,
	OpGetPageByTitle:  document.PolicySoftMissing,
	OpGetSpacePages:   document.PolicyHard,
	OpGetPageComments: document.PolicyHard,
	OpSearch:          document.PolicyBestEffort,
	OpGetSpaces:       document.PolicyHard,
}

// Space is a Confluence space summary.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Fetcher turns Confluence payloads into documents.
type Fetcher struct {
	baseURL string
	backend Backend
	text    TextProcessor
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. baseURL is the site root used for page URLs.
func NewFetcher(baseURL string, backend Backend, text TextProcessor, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		backend: backend,
		text:    text,
		logger:  logger,
	}
}

// fail applies op's policy to err: hard failures are returned, anything else
// is logged and swallowed.
func (f *Fetcher) fail(op string, err error, attrs ...any) error {
	policy := OperationPolicies[op]
	f.logger.Error("Confluence operation failed",
		append([]any{"operation", op, "policy", policy.String(), "error", err}, attrs...)...)
	if policy == document.PolicyHard {
		return err
	}
	return nil
}

func (f *Fetcher) pageURL(spaceKey, pageID string) string {
	return fmt.Sprintf("%s/wiki/spaces/%s/pages/%s", f.baseURL, spaceKey, pageID)
}

// body returns markdown when clean is set, the raw HTML otherwise.
func (f *Fetcher) body(ctx context.Context, html, spaceKey string, clean bool) (string, error) {
	if !clean {
		return html, nil
	}
	_, markdown, err := f.text.ProcessHTML(ctx, html, spaceKey)
	if err != nil {
		return "", fmt.Errorf("failed to convert page body: %w", err)
	}
	return markdown, nil
}

// versionNumber returns the page version or nil when the payload has none.
func versionNumber(page gjson.Result) any {
	v := page.Get("version.number")
	if !v.Exists() {
		return nil
	}
	return v.Int()
}

// GetPageContent fetches one page. The author is read from version.by, since
// Confluence records who wrote a version there rather than on the page.
func (f *Fetcher) GetPageContent(ctx context.Context, pageID string, clean bool) (document.Document, error) {
	raw, err := f.backend.GetPageByID(ctx, pageID, "body.storage,version,space")
	if err != nil {
		return document.Document{}, f.fail(OpGetPageContent, fmt.Errorf("get page %s: %w", pageID, err), "page_id", pageID)
	}
	page := gjson.ParseBytes(raw)
	spaceKey := page.Get("space.key").String()

	content, err := f.body(ctx, page.Get("body.storage.value").String(), spaceKey, clean)
	if err != nil {
		return document.Document{}, err
	}
	metrics.ContentSize.WithLabelValues(OpGetPageContent).Observe(float64(len(content)))

	return document.New(content, document.Metadata{
		"page_id":       pageID,
		"title":         page.Get("title").String(),
		"version":       versionNumber(page),
		"url":           f.pageURL(spaceKey, pageID),
		"space_key":     spaceKey,
		"author_name":   page.Get("version.by.displayName").String(),
		"space_name":    page.Get("space.name").String(),
		"last_modified": page.Get("version.when").String(),
	}), nil
}

// SplitPage cuts a page's body into heading-aware chunks. Chunks carry no
// metadata; their position is their index in the returned slice.
func (f *Fetcher) SplitPage(ctx context.Context, pageID string, clean bool) ([]document.Document, error) {
	page, err := f.GetPageContent(ctx, pageID, clean)
	if err != nil {
		return nil, err
	}

	parts, err := f.text.Chunk(page.Content)
	if err != nil {
		return nil, f.fail(OpSplitPage, fmt.Errorf("split page %s: %w", pageID, err), "page_id", pageID)
	}

	docs := make([]document.Document, 0, len(parts))
	for _, part := range parts {
		docs = append(docs, document.New(part, nil))
	}
	f.logger.Debug("Split page", "page_id", pageID, "parts", len(docs))
	return docs, nil
}

// GetPageByTitle returns the page titled title in spaceKey, or nil when
// there is none. Backend failures are logged and also reported as nil.
func (f *Fetcher) GetPageByTitle(ctx context.Context, spaceKey, title string, clean bool) (*document.Document, error) {
	raw, err := f.backend.GetPageByTitle(ctx, spaceKey, title, "body.storage,version")
	if err != nil {
		return nil, f.fail(OpGetPageByTitle, err, "space_key", spaceKey, "title", title)
	}

	page := gjson.GetBytes(raw, "results.0")
	if !page.Exists() {
		f.logger.Debug("Page not found by title", "space_key", spaceKey, "title", title)
		return nil, nil
	}

	content, err := f.body(ctx, page.Get("body.storage.value").String(), spaceKey, clean)
	if err != nil {
		return nil, f.fail(OpGetPageByTitle, err, "space_key", spaceKey, "title", title)
	}

	pageID := page.Get("id").String()
	doc := document.New(content, document.Metadata{
		"page_id":   pageID,
		"title":     page.Get("title").String(),
		"version":   versionNumber(page),
		"space_key": spaceKey,
		"url":       f.pageURL(spaceKey, pageID),
	})
	return &doc, nil
}

// GetSpacePages returns one document per page in the [start, start+limit) window.
func (f *Fetcher) GetSpacePages(ctx context.Context, spaceKey string, start, limit int, clean bool) ([]document.Document, error) {
	raw, err := f.backend.GetSpacePages(ctx, spaceKey, start, limit, "body.storage,version")
	if err != nil {
		return nil, f.fail(OpGetSpacePages, fmt.Errorf("list pages in %s: %w", spaceKey, err), "space_key", spaceKey)
	}

	results := gjson.GetBytes(raw, "results").Array()
	docs := make([]document.Document, 0, len(results))
	for _, page := range results {
		content, err := f.body(ctx, page.Get("body.storage.value").String(), spaceKey, clean)
		if err != nil {
			return nil, err
		}
		pageID := page.Get("id").String()
		docs = append(docs, document.New(content, document.Metadata{
			"page_id":   pageID,
			"title":     page.Get("title").String(),
			"space_key": spaceKey,
			"version":   versionNumber(page),
			"url":       f.pageURL(spaceKey, pageID),
		}))
	}
	return docs, nil
}

// GetPageComments returns every comment on a page, replies included.
func (f *Fetcher) GetPageComments(ctx context.Context, pageID string, clean bool) ([]document.Document, error) {
	rawPage, err := f.backend.GetPageByID(ctx, pageID, "space")
	if err != nil {
		return nil, f.fail(OpGetPageComments, fmt.Errorf("get page %s: %w", pageID, err), "page_id", pageID)
	}
	page := gjson.ParseBytes(rawPage)
	spaceKey := page.Get("space.key").String()
	spaceName := page.Get("space.name").String()

	raw, err := f.backend.GetPageComments(ctx, pageID, "body.view.value,version")
	if err != nil {
		return nil, f.fail(OpGetPageComments, fmt.Errorf("get comments for %s: %w", pageID, err), "page_id", pageID)
	}

	comments := gjson.GetBytes(raw, "results").Array()
	docs := make([]document.Document, 0, len(comments))
	for _, comment := range comments {
		content, err := f.body(ctx, comment.Get("body.view.value").String(), spaceKey, clean)
		if err != nil {
			return nil, err
		}
		docs = append(docs, document.New(content, document.Metadata{
			"page_id":       pageID,
			"comment_id":    comment.Get("id").String(),
			"last_modified": comment.Get("version.when").String(),
			"type":          "comment",
			"author_name":   comment.Get("version.by.displayName").String(),
			"space_key":     spaceKey,
			"space_name":    spaceName,
		}))
	}
	return docs, nil
}

// Search runs a CQL query and keeps only page hits. The excerpt stands in for
// the body; no page is fetched. Failures yield an empty result.
func (f *Fetcher) Search(ctx context.Context, cql string, limit int) []document.Document {
	raw, err := f.backend.Search(ctx, cql, limit)
	if err != nil {
		_ = f.fail(OpSearch, err, "cql", cql)
		return []document.Document{}
	}

	docs := []document.Document{}
	for _, hit := range gjson.GetBytes(raw, "results").Array() {
		if hit.Get("content.type").String() != "page" {
			continue
		}
		docs = append(docs, document.New(hit.Get("excerpt").String(), document.Metadata{
			"page_id":       hit.Get("content.id").String(),
			"title":         hit.Get("title").String(),
			"space":         hit.Get("resultGlobalContainer.title").String(),
			"url":           f.baseURL + hit.Get("url").String(),
			"last_modified": hit.Get("lastModified").String(),
			"type":          "page",
		}))
	}
	return docs
}

// GetSpaces lists spaces visible to the configured credential.
func (f *Fetcher) GetSpaces(ctx context.Context, start, limit int) ([]Space, error) {
	raw, err := f.backend.GetSpaces(ctx, start, limit)
	if err != nil {
		return nil, f.fail(OpGetSpaces, fmt.Errorf("list spaces: %w", err))
	}
	var spaces []Space
	for _, s := range gjson.GetBytes(raw, "results").Array() {
		spaces = append(spaces, Space{Key: s.Get("key").String(), Name: s.Get("name").String()})
	}
	return spaces, nil
}
