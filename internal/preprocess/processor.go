// Package preprocess turns Confluence storage HTML and Jira wiki markup into
// Markdown, resolves user mentions, and splits Markdown into chunks.
package preprocess

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters
	DefaultChunkSize = 4000
	// DefaultChunkOverlap is the number of characters shared between chunks
	DefaultChunkOverlap = 200
)

// UserLookup resolves an account id or username to a display name.
type UserLookup interface {
	DisplayName(ctx context.Context, id string) (string, error)
}

// Processor converts backend markup for one Atlassian site.
type Processor struct {
	baseURL      string
	users        UserLookup
	logger       *slog.Logger
	chunkSize    int
	chunkOverlap int
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithChunking overrides the splitter size and overlap
func WithChunking(size, overlap int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
		if overlap >= 0 && overlap < p.chunkSize {
			p.chunkOverlap = overlap
		}
	}
}

// New creates a Processor for the site at baseURL. users may be nil, in which
// case mentions render as the raw account id.
func New(baseURL string, users UserLookup, opts ...Option) *Processor {
	p := &Processor{
		baseURL:      strings.TrimRight(baseURL, "/"),
		users:        users,
		logger:       slog.Default(),
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chunk splits markdown on heading boundaries into ordered pieces.
func (p *Processor) Chunk(markdown string) ([]string, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(p.chunkSize),
		textsplitter.WithChunkOverlap(p.chunkOverlap),
	)
	return splitter.SplitText(markdown)
}

// mention resolves id to "@Display Name", falling back to "@id".
func (p *Processor) mention(ctx context.Context, id string) string {
	if id == "" {
		return "@unknown"
	}
	if p.users == nil {
		return "@" + id
	}
	name, err := p.users.DisplayName(ctx, id)
	if err != nil || name == "" {
		p.logger.Debug("Mention lookup failed", "id", id, "error", err)
		return "@" + id
	}
	return "@" + name
}
