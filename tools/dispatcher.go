package tools

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cast"

	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
	"github.com/olgasafonova/atlassian-mcp-server/internal/jira"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

// Confluence is the Confluence normalizer as seen by the tools.
type Confluence interface {
	Search(ctx context.Context, cql string, limit int) []document.Document
	GetPageContent(ctx context.Context, pageID string, clean bool) (document.Document, error)
	SplitPage(ctx context.Context, pageID string, clean bool) ([]document.Document, error)
	GetPageComments(ctx context.Context, pageID string, clean bool) ([]document.Document, error)
	GetPageByTitle(ctx context.Context, spaceKey, title string, clean bool) (*document.Document, error)
	GetSpacePages(ctx context.Context, spaceKey string, start, limit int, clean bool) ([]document.Document, error)
}

// Jira is the Jira normalizer as seen by the tools.
type Jira interface {
	GetIssue(ctx context.Context, key, expand string) (document.Document, error)
	SearchIssues(ctx context.Context, jql, fields string, start, limit int, expand string) ([]document.Document, error)
	GetProjectIssues(ctx context.Context, projectKey string, start, limit int) ([]document.Document, error)
	CreateIssue(ctx context.Context, projectKey, issueType, summary, description string,
		extraFields map[string]any, updateHistory bool, update map[string]any) (document.Document, error)
	CreateIssueLink(ctx context.Context, linkType, inwardKey, outwardKey, comment string) (document.Document, error)
	GetIssueLinkTypes(ctx context.Context) (document.Document, error)
}

// Dispatcher validates tool arguments against the catalog and routes calls
// to the normalizers. A nil normalizer marks its backend as not configured.
type Dispatcher struct {
	confluence Confluence
	jira       Jira
	logger     *slog.Logger
	schemas    map[string]*jsonschema.Resolved
}

// NewDispatcher resolves the input schema of every catalog tool.
func NewDispatcher(confluence Confluence, jira Jira, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		confluence: confluence,
		jira:       jira,
		logger:     logger,
		schemas:    make(map[string]*jsonschema.Resolved, len(AllTools)),
	}
	for _, spec := range AllTools {
		resolved, err := spec.InputSchema().Resolve(&jsonschema.ResolveOptions{})
		if err != nil {
			return nil, fmt.Errorf("resolving schema for %s: %w", spec.Name, err)
		}
		d.schemas[spec.Name] = resolved
	}
	return d, nil
}

// configured reports whether the tool's backend is available.
func (d *Dispatcher) configured(spec ToolSpec) bool {
	switch spec.Backend {
	case BackendConfluence:
		return d.confluence != nil
	case BackendJira:
		return d.jira != nil
	}
	return false
}

// Tools returns the catalog entries whose backend is configured.
func (d *Dispatcher) Tools() []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if d.configured(spec) {
			out = append(out, spec)
		}
	}
	return out
}

// Dispatch runs the named tool. Argument problems are returned as
// validation errors before any backend call. Anything that fails once the
// tool is running, including the tool's own input checks, comes back as a
// *errors.ToolExecutionError wrapping the cause.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	spec, ok := Lookup(name)
	if !ok {
		metrics.ValidationFailures.WithLabelValues("unknown").Inc()
		return nil, apperrors.NewValidationError("name", name, "unknown tool")
	}
	if !d.configured(spec) {
		return nil, apperrors.NewConfigError(spec.Backend, "tool "+name+" is unavailable")
	}

	normalized, err := Normalize(spec, args)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(name).Inc()
		return nil, err
	}
	if err := d.schemas[name].Validate(normalized); err != nil {
		metrics.ValidationFailures.WithLabelValues(name).Inc()
		return nil, apperrors.NewValidationError("", "", err.Error())
	}

	result, err := d.invoke(ctx, spec, normalized)
	if err != nil {
		if apperrors.IsValidation(err) {
			metrics.ValidationFailures.WithLabelValues(name).Inc()
		}
		d.logger.Error("Tool execution error", "tool", name, "error", err)
		return nil, &apperrors.ToolExecutionError{Tool: name, Err: err}
	}
	return result, nil
}

// Normalize checks required arguments, applies defaults and coerces and
// bounds integers. The input map is not modified.
func Normalize(spec ToolSpec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(spec.Params))
	maps.Copy(out, args)

	for _, p := range spec.Params {
		v, present := out[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, apperrors.NewValidationError(p.Name, "", "is required")
			}
			if p.Default == nil {
				delete(out, p.Name)
				continue
			}
			v = p.Default
		}

		if p.Type == TypeInteger {
			if fractional(v) {
				return nil, apperrors.NewValidationError(p.Name, fmt.Sprint(v), "must be an integer")
			}
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, apperrors.NewValidationError(p.Name, fmt.Sprint(v), "must be an integer")
			}
			if p.Min != nil && n < *p.Min {
				return nil, apperrors.NewValidationError(p.Name, fmt.Sprint(n), fmt.Sprintf("must be at least %d", *p.Min))
			}
			if p.Max != nil && n > *p.Max {
				metrics.ArgumentClamps.WithLabelValues(spec.Name, p.Name).Inc()
				n = *p.Max
			}
			v = n
		}
		out[p.Name] = v
	}
	return out, nil
}

// decode copies the validated argument map into a typed args struct.
func decode(args map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return apperrors.NewValidationError("", "", err.Error())
	}
	return nil
}

// call decodes args into A and runs fn.
func call[A, R any](ctx context.Context, args map[string]any, fn func(context.Context, A) (R, error)) (any, error) {
	var a A
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return fn(ctx, a)
}

// invoke routes a validated call to its method.
func (d *Dispatcher) invoke(ctx context.Context, spec ToolSpec, args map[string]any) (any, error) {
	switch spec.Method {
	case "ConfluenceSearch":
		return call(ctx, args, d.ConfluenceSearch)
	case "ConfluenceGetPage":
		return call(ctx, args, d.ConfluenceGetPage)
	case "ConfluenceSplitPage":
		return call(ctx, args, d.ConfluenceSplitPage)
	case "ConfluenceGetComments":
		return call(ctx, args, d.ConfluenceGetComments)
	case "ConfluenceGetPageByTitle":
		return call(ctx, args, d.ConfluenceGetPageByTitle)
	case "ConfluenceGetSpacePages":
		return call(ctx, args, d.ConfluenceGetSpacePages)
	case "JiraGetIssue":
		return call(ctx, args, d.JiraGetIssue)
	case "JiraSearch":
		return call(ctx, args, d.JiraSearch)
	case "JiraGetProjectIssues":
		return call(ctx, args, d.JiraGetProjectIssues)
	case "JiraCreateIssue":
		return call(ctx, args, d.JiraCreateIssue)
	case "JiraCreateIssueLink":
		return call(ctx, args, d.JiraCreateIssueLink)
	case "JiraGetIssueLinkTypes":
		return call(ctx, args, d.JiraGetIssueLinkTypes)
	}
	return nil, fmt.Errorf("no method %s for tool %s", spec.Method, spec.Name)
}

// ConfluenceSearch runs a CQL search.
func (d *Dispatcher) ConfluenceSearch(ctx context.Context, a ConfluenceSearchArgs) ([]PageSearchResult, error) {
	return shapePageSearch(d.confluence.Search(ctx, a.Query, a.Limit)), nil
}

// ConfluenceGetPage reads one page as Markdown.
func (d *Dispatcher) ConfluenceGetPage(ctx context.Context, a ConfluenceGetPageArgs) (DocumentResult, error) {
	doc, err := d.confluence.GetPageContent(ctx, a.PageID, true)
	if err != nil {
		return DocumentResult{}, err
	}
	return shapeDocument(doc, a.IncludeMetadata), nil
}

// ConfluenceSplitPage returns a window of a page's parts.
func (d *Dispatcher) ConfluenceSplitPage(ctx context.Context, a ConfluenceSplitPageArgs) (SplitPageResult, error) {
	parts, err := d.confluence.SplitPage(ctx, a.PageID, true)
	if err != nil {
		return SplitPageResult{}, err
	}
	return shapeSplit(a.PageID, a.Start, a.Limit, parts), nil
}

// ConfluenceGetComments lists a page's comments.
func (d *Dispatcher) ConfluenceGetComments(ctx context.Context, a ConfluenceGetCommentsArgs) ([]CommentResult, error) {
	docs, err := d.confluence.GetPageComments(ctx, a.PageID, true)
	if err != nil {
		return nil, err
	}
	return shapeComments(docs), nil
}

// ConfluenceGetPageByTitle reads a page by exact title.
func (d *Dispatcher) ConfluenceGetPageByTitle(ctx context.Context, a ConfluenceGetPageByTitleArgs) (PageByTitleResult, error) {
	doc, err := d.confluence.GetPageByTitle(ctx, a.SpaceKey, a.Title, true)
	if err != nil {
		return PageByTitleResult{}, err
	}
	return shapePageByTitle(doc, a.IncludeMetadata), nil
}

// ConfluenceGetSpacePages lists pages in a space.
func (d *Dispatcher) ConfluenceGetSpacePages(ctx context.Context, a ConfluenceGetSpacePagesArgs) ([]SpacePageResult, error) {
	docs, err := d.confluence.GetSpacePages(ctx, a.SpaceKey, a.Start, a.Limit, true)
	if err != nil {
		return nil, err
	}
	return shapeSpacePages(docs), nil
}

// JiraGetIssue reads one issue.
func (d *Dispatcher) JiraGetIssue(ctx context.Context, a JiraGetIssueArgs) (DocumentResult, error) {
	doc, err := d.jira.GetIssue(ctx, a.IssueKey, a.Expand)
	if err != nil {
		return DocumentResult{}, err
	}
	return shapeDocument(doc, true), nil
}

// JiraSearch runs a JQL search.
func (d *Dispatcher) JiraSearch(ctx context.Context, a JiraSearchArgs) ([]IssueSearchResult, error) {
	docs, err := d.jira.SearchIssues(ctx, a.JQL, a.Fields, a.Start, a.Limit, a.Expand)
	if err != nil {
		return nil, err
	}
	return shapeIssueSearch(docs), nil
}

// JiraGetProjectIssues lists a project's newest issues.
func (d *Dispatcher) JiraGetProjectIssues(ctx context.Context, a JiraGetProjectIssuesArgs) ([]ProjectIssueResult, error) {
	docs, err := d.jira.GetProjectIssues(ctx, a.ProjectKey, a.Start, a.Limit)
	if err != nil {
		return nil, err
	}
	return shapeProjectIssues(docs), nil
}

// JiraCreateIssue creates an issue.
func (d *Dispatcher) JiraCreateIssue(ctx context.Context, a JiraCreateIssueArgs) (DocumentResult, error) {
	extra, err := jira.DecodeFields(a.Fields)
	if err != nil {
		return DocumentResult{}, err
	}
	doc, err := d.jira.CreateIssue(ctx, a.ProjectKey, a.IssueType, a.Summary, a.Description, extra, a.UpdateHistory, a.Update)
	if err != nil {
		return DocumentResult{}, err
	}
	return shapeDocument(doc, true), nil
}

// JiraCreateIssueLink links two issues.
func (d *Dispatcher) JiraCreateIssueLink(ctx context.Context, a JiraCreateIssueLinkArgs) (DocumentResult, error) {
	doc, err := d.jira.CreateIssueLink(ctx, a.LinkType, a.InwardIssue, a.OutwardIssue, a.Comment)
	if err != nil {
		return DocumentResult{}, err
	}
	return shapeDocument(doc, true), nil
}

// JiraGetIssueLinkTypes returns the link type catalog.
func (d *Dispatcher) JiraGetIssueLinkTypes(ctx context.Context, _ JiraGetIssueLinkTypesArgs) (DocumentResult, error) {
	doc, err := d.jira.GetIssueLinkTypes(ctx)
	if err != nil {
		return DocumentResult{}, err
	}
	return shapeDocument(doc, true), nil
}

// fractional reports whether v is a float with a non-zero fractional part.
// cast truncates those silently.
func fractional(v any) bool {
	switch f := v.(type) {
	case float64:
		return f != math.Trunc(f)
	case float32:
		return float64(f) != math.Trunc(float64(f))
	}
	return false
}
