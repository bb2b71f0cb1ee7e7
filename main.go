// Atlassian MCP Server - A Model Context Protocol server for Confluence and Jira
// Exposes pages, issues, spaces and projects as tools and resources.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/olgasafonova/atlassian-mcp-server/internal/config"
	"github.com/olgasafonova/atlassian-mcp-server/internal/confluence"
	"github.com/olgasafonova/atlassian-mcp-server/internal/jira"
	"github.com/olgasafonova/atlassian-mcp-server/internal/preprocess"
	"github.com/olgasafonova/atlassian-mcp-server/internal/resource"
	"github.com/olgasafonova/atlassian-mcp-server/tools"
	"github.com/olgasafonova/atlassian-mcp-server/tracing"
)

const (
	ServerName    = "atlassian-mcp-server"
	ServerVersion = "1.0.0"

	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

const instructions = `Atlassian MCP Server gives read access to Confluence and Jira, plus issue creation.

Confluence tools: confluence_search (CQL), confluence_get_page, confluence_split_page,
confluence_get_comments, confluence_get_page_by_title, confluence_get_space_pages.

Jira tools: jira_get_issue, jira_search (JQL), jira_get_project_issues,
jira_create_issue, jira_create_issue_link, jira_get_issue_link_types.

Resources: confluence://SPACE, confluence://SPACE/pages/TITLE,
jira://PROJECT, jira://PROJECT/issues/KEY.

Only tools for configured products are listed. Configure via environment variables:
- CONFLUENCE_URL, CONFLUENCE_API_TOKEN
- JIRA_URL, JIRA_API_TOKEN`

type options struct {
	transport string
	addr      string
	rateLimit int
	metrics   bool
	envFile   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          ServerName,
		Short:        "MCP server for Confluence and Jira",
		Version:      ServerVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.transport, "transport", TransportStdio, "transport to serve: stdio, sse or http")
	flags.StringVar(&opts.addr, "addr", "127.0.0.1:8093", "listen address for the sse and http transports")
	flags.IntVar(&opts.rateLimit, "rate-limit", 120, "requests per minute per client IP on HTTP transports (0 disables)")
	flags.BoolVar(&opts.metrics, "metrics", false, "expose Prometheus metrics at /metrics on HTTP transports")
	flags.StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file read before the environment")

	return cmd
}

func run(ctx context.Context, opts options) error {
	switch opts.transport {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want stdio, sse or http)", opts.transport)
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout belongs to the stdio transport
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig(ServerVersion))
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})
	registry.RegisterAll(server)
	registry.RegisterResources(ctx, server)

	services := cfg.Services()
	logger.Info("Starting Atlassian MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"transport", opts.transport,
		"confluence", services.Confluence,
		"jira", services.Jira,
	)

	if opts.transport == TransportStdio {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	return serveHTTP(ctx, server, opts, logger)
}

// newRegistry wires clients, normalizers, dispatcher and resolver for the
// configured products. An unconfigured product stays a nil interface.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*tools.HandlerRegistry, error) {
	var (
		wikiTools    tools.Confluence
		wiki         resource.Wiki
		trackerTools tools.Jira
		tracker      resource.Tracker
	)

	services := cfg.Services()
	if services.Confluence {
		client := confluence.NewClient(cfg, confluence.WithLogger(logger))
		text := preprocess.New(cfg.Confluence.URL, client, preprocess.WithLogger(logger))
		f := confluence.NewFetcher(cfg.Confluence.URL, client, text, logger)
		wikiTools, wiki = f, f
	}
	if services.Jira {
		client := jira.NewClient(cfg, jira.WithLogger(logger))
		text := preprocess.New(cfg.Jira.URL, client, preprocess.WithLogger(logger))
		f := jira.NewFetcher(cfg.Jira.URL, client, text, logger)
		trackerTools, tracker = f, f
	}

	dispatcher, err := tools.NewDispatcher(wikiTools, trackerTools, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool catalog: %w", err)
	}
	return tools.NewHandlerRegistry(dispatcher, resource.NewResolver(wiki, tracker, logger), logger), nil
}

func serveHTTP(ctx context.Context, server *mcp.Server, opts options, logger *slog.Logger) error {
	getServer := func(*http.Request) *mcp.Server { return server }

	var transport http.Handler
	if opts.transport == TransportSSE {
		transport = mcp.NewSSEHandler(getServer, nil)
	} else {
		transport = mcp.NewStreamableHTTPHandler(getServer, nil)
	}

	guarded := NewSecurityMiddleware(transport, logger, SecurityConfig{
		RateLimit:   opts.rateLimit,
		MaxBodySize: DefaultMaxBodySize,
	})
	defer guarded.Close()

	mux := http.NewServeMux()
	if opts.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", guarded)

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer recoverPanic(logger, "http shutdown")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown failed", "error", err)
		}
	}()

	logger.Info("Listening", "addr", opts.addr, "transport", opts.transport, "metrics", opts.metrics)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
