package confluence

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

// Client talks to the Confluence REST API (v1 content endpoints).
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

// NewClient creates a Confluence client from the backend settings.
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
		Client: base.NewClient("confluence", cfg.Confluence.URL, cfg.Confluence.APIToken, baseOpts...),
		cloud:  cfg.Confluence.IsCloud(),
	}
}

// GetSpaces lists spaces in a paginated window.
func (c *Client) GetSpaces(ctx context.Context, start, limit int) ([]byte, error) {
	q := url.Values{
		"start": {strconv.Itoa(start)},
		"limit": {strconv.Itoa(limit)},
	}
	return c.GetCached(ctx, "get_spaces", "/rest/api/space", q)
}

// GetPageByID fetches one page with the requested expansions.
func (c *Client) GetPageByID(ctx context.Context, pageID, expand string) ([]byte, error) {
	var q url.Values
	if expand != "" {
		q = url.Values{"expand": {expand}}
	}
	return c.Get(ctx, "get_page", "/rest/api/content/"+url.PathEscape(pageID), q)
}

// GetPageByTitle looks a page up by exact title within a space. The response
// is a result list, empty when nothing matches.
func (c *Client) GetPageByTitle(ctx context.Context, spaceKey, title, expand string) ([]byte, error) {
	q := url.Values{
		"spaceKey": {spaceKey},
		"title":    {title},
		"type":     {"page"},
	}
	if expand != "" {
		q.Set("expand", expand)
	}
	return c.Get(ctx, "get_page_by_title", "/rest/api/content", q)
}

// GetSpacePages lists pages in a space. start and limit are passed through.
func (c *Client) GetSpacePages(ctx context.Context, spaceKey string, start, limit int, expand string) ([]byte, error) {
	q := url.Values{
		"spaceKey": {spaceKey},
		"type":     {"page"},
		"start":    {strconv.Itoa(start)},
		"limit":    {strconv.Itoa(limit)},
	}
	if expand != "" {
		q.Set("expand", expand)
	}
	return c.Get(ctx, "get_space_pages", "/rest/api/content", q)
}

// GetPageComments lists all comments on a page, including replies.
func (c *Client) GetPageComments(ctx context.Context, pageID, expand string) ([]byte, error) {
	q := url.Values{"depth": {"all"}}
	if expand != "" {
		q.Set("expand", expand)
	}
	return c.Get(ctx, "get_page_comments", "/rest/api/content/"+url.PathEscape(pageID)+"/child/comment", q)
}

// Search runs a CQL query.
func (c *Client) Search(ctx context.Context, cql string, limit int) ([]byte, error) {
	q := url.Values{
		"cql":   {cql},
		"limit": {strconv.Itoa(limit)},
	}
	return c.Get(ctx, "search", "/rest/api/search", q)
}

// DisplayName resolves a mention id to a user's display name. Cloud sites
// address users by account id, Server/Data Center by user key.
func (c *Client) DisplayName(ctx context.Context, id string) (string, error) {
	param := "key"
	if c.cloud {
		param = "accountId"
	}
	body, err := c.GetCached(ctx, "get_user", "/rest/api/user", url.Values{param: {id}})
	if err != nil {
		return "", err
	}
	name := gjson.GetBytes(body, "displayName").String()
	if name == "" {
		return "", fmt.Errorf("user %s has no display name", id)
	}
	return name, nil
}
