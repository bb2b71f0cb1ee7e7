package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
	"github.com/olgasafonova/atlassian-mcp-server/internal/resource"
	"github.com/olgasafonova/atlassian-mcp-server/metrics"
	"github.com/olgasafonova/atlassian-mcp-server/tracing"
)

// HandlerRegistry registers the dispatcher's tools and the resolver's
// resources with an MCP server.
type HandlerRegistry struct {
	dispatcher *Dispatcher
	resolver   *resource.Resolver
	logger     *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(dispatcher *Dispatcher, resolver *resource.Resolver, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger,
	}
}

// RegisterAll registers every tool whose backend is configured.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	specs := h.dispatcher.Tools()
	for _, spec := range specs {
		server.AddTool(h.buildTool(spec), h.handler(spec))
	}
	h.logger.Info("Registered tools", "count", len(specs), "catalog", len(AllTools))
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Title:       spec.Title,
		Description: spec.Description,
		InputSchema: spec.InputSchema(),
		Annotations: annotations,
	}
}

// handler adapts Dispatch to the MCP tool signature. Failures are returned as
// error results rather than protocol errors so the model can read them.
func (h *HandlerRegistry) handler(spec ToolSpec) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logPanic(spec.Name, rec)
				result = errorResult(fmt.Errorf("tool execution failed: internal error in %s", spec.Name))
				err = nil
			}
		}()

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()
		tracing.AddToolAttributes(span, spec.Name, spec.Backend, spec.ReadOnly)
		span.SetAttributes(attribute.String("mcp.tool.category", spec.Category))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		args, err := parseArguments(req)
		if err != nil {
			metrics.ValidationFailures.WithLabelValues(spec.Name).Inc()
			return errorResult(err), nil
		}

		start := time.Now()
		out, err := h.dispatcher.Dispatch(ctx, spec.Name, args)
		duration := time.Since(start).Seconds()
		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			return errorResult(err), nil
		}

		text, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			metrics.RecordRequest(spec.Name, duration, false)
			return errorResult(&apperrors.ToolExecutionError{Tool: spec.Name, Err: err}), nil
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, out)
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(text)}}}, nil
	}
}

func parseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	args := map[string]any{}
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, apperrors.NewValidationError("arguments", "", "must be a JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// logPanic records a panic recovered from a tool handler.
func (h *HandlerRegistry) logPanic(toolName string, rec any) {
	metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
	h.logger.Error("Panic recovered",
		"tool", toolName,
		"panic", rec,
		"stack", string(debug.Stack()))
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args map[string]any, result any) {
	attrs := []any{"tool", spec.Name, "backend", spec.Backend}

	for _, key := range []string{"query", "jql", "page_id", "space_key", "title", "issue_key", "project_key"} {
		if v, ok := args[key]; ok {
			attrs = append(attrs, key, v)
		}
	}

	switch r := result.(type) {
	case []PageSearchResult:
		attrs = append(attrs, "results_count", len(r))
	case []SpacePageResult:
		attrs = append(attrs, "results_count", len(r))
	case []CommentResult:
		attrs = append(attrs, "comments", len(r))
	case []IssueSearchResult:
		attrs = append(attrs, "results_count", len(r))
	case []ProjectIssueResult:
		attrs = append(attrs, "results_count", len(r))
	case SplitPageResult:
		attrs = append(attrs, "parts", len(r.Parts), "total_parts", r.Count)
	case PageByTitleResult:
		attrs = append(attrs, "found", r.Found)
	case DocumentResult:
		attrs = append(attrs, "content_length", len(r.Content))
	}

	h.logger.Info("Tool executed", attrs...)
}
