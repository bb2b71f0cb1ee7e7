package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
)

const resourceMIMEType = "text/plain"

type resourceTemplate struct {
	uri         string
	name        string
	description string
}

// resourceTemplates are the single-item addresses. The short schemes are
// accepted by the resolver and advertised so clients can discover them.
var resourceTemplates = []resourceTemplate{
	{"confluence://{space_key}/pages/{title}", "Confluence Page", "A Confluence page by space key and exact title"},
	{"jira://{project_key}/issues/{issue_key}", "Jira Issue", "A Jira issue by key"},
	{"wiki://{space_key}/pages/{title}", "Wiki Page", "Alias of confluence://"},
	{"tracker://{project_key}/issues/{issue_key}", "Tracker Issue", "Alias of jira://"},
}

// RegisterResources advertises every space and project the resolver can list,
// plus the item templates. Reads of all of them go through the resolver.
func (h *HandlerRegistry) RegisterResources(ctx context.Context, server *mcp.Server) {
	entries := h.resolver.List(ctx)
	for _, e := range entries {
		server.AddResource(&mcp.Resource{
			URI:         e.URI,
			Name:        e.Name,
			Description: e.Description,
			MIMEType:    resourceMIMEType,
		}, h.readResource)
	}

	for _, t := range resourceTemplates {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: t.uri,
			Name:        t.name,
			Description: t.description,
			MIMEType:    resourceMIMEType,
		}, h.readResource)
	}

	h.logger.Info("Registered resources", "count", len(entries), "templates", len(resourceTemplates))
}

func (h *HandlerRegistry) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	text, err := h.resolver.Read(ctx, uri)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: resourceMIMEType, Text: text}},
	}, nil
}
