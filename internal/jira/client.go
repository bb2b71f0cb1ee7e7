package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/olgasafonova/atlassian-mcp-server/internal/base"
	"github.com/olgasafonova/atlassian-mcp-server/internal/config"
)

// Client talks to the Jira REST API v2.
type Client struct {
	*base.Client
	cloud bool
}

// ClientOption configures the Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger *slog.Logger
	base   []base.ClientOption
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// WithBaseOptions passes options through to the shared HTTP client
func WithBaseOptions(opts ...base.ClientOption) ClientOption {
	return func(o *clientOptions) {
		o.base = append(o.base, opts...)
	}
}

// NewClient creates a Jira client from the backend settings.
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	o := &clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	baseOpts := []base.ClientOption{
		base.WithLogger(o.logger),
		base.WithTransport(cfg.Timeout, cfg.InsecureSkipVerify),
		base.WithUserAgent(cfg.UserAgent),
		base.WithRetry(cfg.MaxRetries, 0),
	}
	baseOpts = append(baseOpts, o.base...)

	return &Client{
		Client: base.NewClient("jira", cfg.Jira.URL, cfg.Jira.APIToken, baseOpts...),
		cloud:  cfg.Jira.IsCloud(),
	}
}

// GetIssue fetches one issue by key.
func (c *Client) GetIssue(ctx context.Context, key, expand string) ([]byte, error) {
	var q url.Values
	if expand != "" {
		q = url.Values{"expand": {expand}}
	}
	return c.Get(ctx, "get_issue", "/rest/api/2/issue/"+url.PathEscape(key), q)
}

// Search runs a JQL query. Only hit keys are needed by callers, but fields
// is forwarded as given.
func (c *Client) Search(ctx context.Context, jql, fields string, start, limit int, expand string) ([]byte, error) {
	q := url.Values{
		"jql":        {jql},
		"startAt":    {strconv.Itoa(start)},
		"maxResults": {strconv.Itoa(limit)},
	}
	if fields != "" {
		q.Set("fields", fields)
	}
	if expand != "" {
		q.Set("expand", expand)
	}
	return c.Get(ctx, "search", "/rest/api/2/search", q)
}

// CreateIssue posts a new issue. update may be nil.
func (c *Client) CreateIssue(ctx context.Context, fields, update map[string]any, updateHistory bool) ([]byte, error) {
	body := map[string]any{"fields": fields}
	if len(update) > 0 {
		body["update"] = update
	}
	q := url.Values{"updateHistory": {strconv.FormatBool(updateHistory)}}
	return c.Post(ctx, "create_issue", "/rest/api/2/issue", q, body)
}

// CreateIssueLink links two issues.
func (c *Client) CreateIssueLink(ctx context.Context, link map[string]any) ([]byte, error) {
	return c.Post(ctx, "create_issue_link", "/rest/api/2/issueLink", nil, link)
}

// GetIssueLinkTypes returns the link type catalog.
func (c *Client) GetIssueLinkTypes(ctx context.Context) ([]byte, error) {
	return c.GetCached(ctx, "get_issue_link_types", "/rest/api/2/issueLinkType", nil)
}

// ListProjects returns every project visible to the credential.
func (c *Client) ListProjects(ctx context.Context) ([]byte, error) {
	return c.GetCached(ctx, "list_projects", "/rest/api/2/project", nil)
}

// DisplayName resolves a mention id. Cloud sites address users by account
// id, Server/Data Center by username.
func (c *Client) DisplayName(ctx context.Context, id string) (string, error) {
	param := "username"
	if c.cloud {
		param = "accountId"
	}
	body, err := c.GetCached(ctx, "get_user", "/rest/api/2/user", url.Values{param: {id}})
	if err != nil {
		return "", err
	}
	name := gjson.GetBytes(body, "displayName").String()
	if name == "" {
		return "", fmt.Errorf("user %s has no display name", id)
	}
	return name, nil
}
