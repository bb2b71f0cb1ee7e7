// Package jira normalizes Jira issues into documents with a synthesized,
// human-readable text body.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

// Backend is the subset of the Jira REST API the fetcher needs.
type Backend interface {
	GetIssue(ctx context.Context, key, expand string) ([]byte, error)
	Search(ctx context.Context, jql, fields string, start, limit int, expand string) ([]byte, error)
	CreateIssue(ctx context.Context, fields, update map[string]any, updateHistory bool) ([]byte, error)
	CreateIssueLink(ctx context.Context, link map[string]any) ([]byte, error)
	GetIssueLinkTypes(ctx context.Context) ([]byte, error)
	ListProjects(ctx context.Context) ([]byte, error)
}

// TextCleaner turns Jira wiki markup into Markdown.
type TextCleaner interface {
	CleanText(ctx context.Context, text string) string
}

// Operation names, also used as metric labels.
const (
	OpGetIssue          = "get_issue"
	OpSearchIssues      = "search_issues"
	OpGetProjectIssues  = "get_project_issues"
	OpCreateIssue       = "create_issue"
	OpCreateIssueLink   = "create_issue_link"
	OpGetIssueLinkTypes = "get_issue_link_types"
	OpListProjects      = "list_projects"
)

// OperationPolicies declares how each operation treats backend failures.
// Issues are addressed by exact key, so every Jira operation is hard.
var OperationPolicies = map[string]document.Policy{
	OpGetIssue:          document.PolicyHard,
	OpSearchIssues:      document.PolicyHard,
	OpGetProjectIssues:  document.PolicyHard,
	OpCreateIssue:       document.PolicyHard,
	OpCreateIssueLink:   document.PolicyHard,
	OpGetIssueLinkTypes: document.PolicyHard,
	OpListProjects:      document.PolicyHard,
}

// DefaultFields is the field selector used when a search names none.
const DefaultFields = "*all"

var projectKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Project is a Jira project summary.
type Project struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Fetcher turns Jira payloads into documents.
type Fetcher struct {
	baseURL string
	backend Backend
	text    TextCleaner
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. baseURL is the site root used for browse links.
func NewFetcher(baseURL string, backend Backend, text TextCleaner, logger *slog.Logger) *Fetcher {
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

func (f *Fetcher) fail(op string, err error, attrs ...any) error {
	policy := OperationPolicies[op]
	f.logger.Error("Jira operation failed",
		append([]any{"operation", op, "policy", policy.String(), "error", err}, attrs...)...)
	if policy == document.PolicyHard {
		return err
	}
	return nil
}

func (f *Fetcher) clean(ctx context.Context, text string) string {
	if text == "" || f.text == nil {
		return text
	}
	return f.text.CleanText(ctx, text)
}

// GetIssue fetches an issue and synthesizes a plain-text report of its
// header fields, description, links and comment transcript.
func (f *Fetcher) GetIssue(ctx context.Context, key, expand string) (document.Document, error) {
	raw, err := f.backend.GetIssue(ctx, key, expand)
	if err != nil {
		return document.Document{}, f.fail(OpGetIssue, fmt.Errorf("get issue %s: %w", key, err), "issue_key", key)
	}

	fields := gjson.GetBytes(raw, "fields")
	summary := fields.Get("summary").String()
	issueType := fields.Get("issuetype.name").String()
	status := fields.Get("status.name").String()
	created := ParseDate(fields.Get("created").String(), f.logger)
	description := f.clean(ctx, fields.Get("description").String())

	var comments []string
	for _, c := range fields.Get("comment.comments").Array() {
		author := c.Get("author.displayName").String()
		if author == "" {
			author = "Unknown"
		}
		comments = append(comments, fmt.Sprintf("%s - %s: %s",
			ParseDate(c.Get("created").String(), f.logger), author, f.clean(ctx, c.Get("body").String())))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Issue: %s\n", key)
	fmt.Fprintf(&sb, "Title: %s\n", summary)
	fmt.Fprintf(&sb, "Type: %s\n", issueType)
	fmt.Fprintf(&sb, "Status: %s\n", status)
	fmt.Fprintf(&sb, "Created: %s\n\n", created)
	fmt.Fprintf(&sb, "Description:\n%s\n\n", description)
	fmt.Fprintf(&sb, "Links:\n%s\n\n", GroupLinks(fields.Get("issuelinks").Array()))
	sb.WriteString("Comments:\n")
	sb.WriteString(strings.Join(comments, "\n"))

	priority := fields.Get("priority.name").String()
	if priority == "" {
		priority = "None"
	}

	return document.New(sb.String(), document.Metadata{
		"key":          key,
		"title":        summary,
		"type":         issueType,
		"status":       status,
		"created_date": created,
		"priority":     priority,
		"link":         f.baseURL + "/browse/" + key,
	}), nil
}

// SearchIssues runs a JQL query and fetches every hit in full. The search
// endpoint returns sparse fields, so each hit costs one more request.
func (f *Fetcher) SearchIssues(ctx context.Context, jql, fields string, start, limit int, expand string) ([]document.Document, error) {
	if fields == "" {
		fields = DefaultFields
	}
	raw, err := f.backend.Search(ctx, jql, fields, start, limit, expand)
	if err != nil {
		return nil, f.fail(OpSearchIssues, fmt.Errorf("search issues: %w", err), "jql", jql)
	}

	hits := gjson.GetBytes(raw, "issues.#.key").Array()
	docs := make([]document.Document, 0, len(hits))
	for _, hit := range hits {
		doc, err := f.GetIssue(ctx, hit.String(), expand)
		if err != nil {
			return nil, f.fail(OpSearchIssues, err, "jql", jql)
		}
		docs = append(docs, doc)
	}
	f.logger.Debug("Searched issues", "jql", jql, "hits", len(docs))
	return docs, nil
}

// ProjectJQL returns the query listing a project's issues, newest first.
func ProjectJQL(projectKey string) (string, error) {
	if !projectKeyPattern.MatchString(projectKey) {
		return "", apperrors.NewValidationError("project_key", projectKey,
			"must start with a letter and contain only letters, digits and underscores")
	}
	return fmt.Sprintf("project = %s ORDER BY created DESC", projectKey), nil
}

// GetProjectIssues lists a project's issues, newest first.
func (f *Fetcher) GetProjectIssues(ctx context.Context, projectKey string, start, limit int) ([]document.Document, error) {
	jql, err := ProjectJQL(projectKey)
	if err != nil {
		return nil, err
	}
	return f.SearchIssues(ctx, jql, DefaultFields, start, limit, "")
}

// DecodeFields accepts extra issue fields as a JSON object or as a string
// holding one.
func DecodeFields(v any) (map[string]any, error) {
	switch fields := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return fields, nil
	case string:
		if strings.TrimSpace(fields) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(fields), &out); err != nil {
			return nil, apperrors.NewValidationError("fields", fields, "must be a JSON object")
		}
		return out, nil
	default:
		return nil, apperrors.NewValidationError("fields", fmt.Sprintf("%v", v), "must be a JSON object")
	}
}

// CreateIssue creates an issue. The mandatory project, summary, type and
// description override anything in extraFields; extraFields itself is left
// untouched.
func (f *Fetcher) CreateIssue(ctx context.Context, projectKey, issueType, summary, description string,
	extraFields map[string]any, updateHistory bool, update map[string]any) (document.Document, error) {
	fields := make(map[string]any, len(extraFields)+4)
	maps.Copy(fields, extraFields)
	fields["project"] = map[string]any{"key": projectKey}
	fields["summary"] = summary
	fields["issuetype"] = map[string]any{"name": issueType}
	fields["description"] = description

	f.logger.Info("Creating Jira issue", "project", projectKey, "type", issueType, "summary", summary)

	raw, err := f.backend.CreateIssue(ctx, fields, update, updateHistory)
	metrics.RecordWrite(OpCreateIssue, err == nil)
	if err != nil {
		return document.Document{}, f.fail(OpCreateIssue, fmt.Errorf("create issue in %s: %w", projectKey, err), "project", projectKey)
	}
	return document.New(string(raw), fields), nil
}

// CreateIssueLink links inwardKey to outwardKey with the named link type.
func (f *Fetcher) CreateIssueLink(ctx context.Context, linkType, inwardKey, outwardKey, comment string) (document.Document, error) {
	link := map[string]any{
		"type":         map[string]any{"name": linkType},
		"inwardIssue":  map[string]any{"key": inwardKey},
		"outwardIssue": map[string]any{"key": outwardKey},
	}
	if comment != "" {
		link["comment"] = map[string]any{"body": comment}
	}

	f.logger.Info("Creating Jira issue link", "type", linkType, "inward", inwardKey, "outward", outwardKey)

	raw, err := f.backend.CreateIssueLink(ctx, link)
	metrics.RecordWrite(OpCreateIssueLink, err == nil)
	if err != nil {
		return document.Document{}, f.fail(OpCreateIssueLink,
			fmt.Errorf("link %s to %s: %w", inwardKey, outwardKey, err), "type", linkType)
	}
	return document.New(string(raw), link), nil
}

// GetIssueLinkTypes returns the link type catalog as text, with the decoded
// catalog as metadata.
func (f *Fetcher) GetIssueLinkTypes(ctx context.Context) (document.Document, error) {
	raw, err := f.backend.GetIssueLinkTypes(ctx)
	if err != nil {
		return document.Document{}, f.fail(OpGetIssueLinkTypes, fmt.Errorf("get issue link types: %w", err))
	}
	var catalog map[string]any
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return document.Document{}, fmt.Errorf("failed to decode issue link types: %w", err)
	}
	return document.New(string(raw), catalog), nil
}

// ListProjects returns the projects visible to the credential.
func (f *Fetcher) ListProjects(ctx context.Context) ([]Project, error) {
	raw, err := f.backend.ListProjects(ctx)
	if err != nil {
		return nil, f.fail(OpListProjects, fmt.Errorf("list projects: %w", err))
	}
	var projects []Project
	for _, p := range gjson.ParseBytes(raw).Array() {
		projects = append(projects, Project{
			Key:         p.Get("key").String(),
			Name:        p.Get("name").String(),
			Description: p.Get("description").String(),
		})
	}
	return projects, nil
}
