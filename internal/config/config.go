// Package config loads Atlassian connection settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultUserAgent  = "atlassian-mcp-server/1.0 (https://github.com/olgasafonova/atlassian-mcp-server)"
)

// Backend holds the URL and API token for one Atlassian product.
type Backend struct {
	URL      string
	APIToken string
}

// Configured reports whether both URL and token are present.
func (b Backend) Configured() bool {
	return b.URL != "" && b.APIToken != ""
}

// IsCloud reports whether the backend is an Atlassian Cloud site.
func (b Backend) IsCloud() bool {
	return strings.Contains(b.URL, "atlassian.net")
}

// Config holds the settings shared by both backends
type Config struct {
	Confluence Backend
	Jira       Backend

	// Timeout for API requests
	Timeout time.Duration

	// MaxRetries for failed requests
	MaxRetries int

	// UserAgent identifies the client to Atlassian
	UserAgent string

	// InsecureSkipVerify disables TLS certificate checks (self-hosted instances)
	InsecureSkipVerify bool

	// LogLevel for the process logger
	LogLevel slog.Level
}

// Services is the capability set derived from Config. Tools and resources
// for a backend that is not available are never registered.
type Services struct {
	Confluence bool
	Jira       bool
}

// Services returns which backends are usable.
func (c *Config) Services() Services {
	return Services{
		Confluence: c.Confluence.Configured(),
		Jira:       c.Jira.Configured(),
	}
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Exposed for tests.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Confluence: Backend{
			URL:      strings.TrimSpace(getenv("CONFLUENCE_URL")),
			APIToken: strings.TrimSpace(getenv("CONFLUENCE_API_TOKEN")),
		},
		Jira: Backend{
			URL:      strings.TrimSpace(getenv("JIRA_URL")),
			APIToken: strings.TrimSpace(getenv("JIRA_API_TOKEN")),
		},
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		UserAgent:  DefaultUserAgent,
		LogLevel:   slog.LevelInfo,
	}

	if t := getenv("ATLASSIAN_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil || d <= 0 {
			return nil, apperrors.NewConfigError("", fmt.Sprintf("ATLASSIAN_TIMEOUT %q is not a positive duration", t))
		}
		cfg.Timeout = d
	}

	if r := getenv("ATLASSIAN_MAX_RETRIES"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil || n < 0 {
			return nil, apperrors.NewConfigError("", fmt.Sprintf("ATLASSIAN_MAX_RETRIES %q is not a non-negative integer", r))
		}
		cfg.MaxRetries = n
	}

	if ua := getenv("ATLASSIAN_USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}

	if v := getenv("ATLASSIAN_INSECURE_SKIP_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apperrors.NewConfigError("", fmt.Sprintf("ATLASSIAN_INSECURE_SKIP_VERIFY %q is not a boolean", v))
		}
		cfg.InsecureSkipVerify = b
	}

	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return nil, apperrors.NewConfigError("", fmt.Sprintf("LOG_LEVEL %q is not a valid level", lvl))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects half-configured backends and a configuration with no
// backend at all.
func (c *Config) Validate() error {
	if err := validateBackend("confluence", "CONFLUENCE", c.Confluence); err != nil {
		return err
	}
	if err := validateBackend("jira", "JIRA", c.Jira); err != nil {
		return err
	}
	if !c.Confluence.Configured() && !c.Jira.Configured() {
		return apperrors.NewConfigError("", "set CONFLUENCE_URL/CONFLUENCE_API_TOKEN or JIRA_URL/JIRA_API_TOKEN")
	}
	return nil
}

func validateBackend(name, prefix string, b Backend) error {
	switch {
	case b.URL != "" && b.APIToken == "":
		return apperrors.NewConfigError(name, prefix+"_API_TOKEN is required when "+prefix+"_URL is set")
	case b.URL == "" && b.APIToken != "":
		return apperrors.NewConfigError(name, prefix+"_URL is required when "+prefix+"_API_TOKEN is set")
	}
	if b.URL != "" && !strings.HasPrefix(b.URL, "http://") && !strings.HasPrefix(b.URL, "https://") {
		return apperrors.NewConfigError(name, prefix+"_URL must start with http:// or https://")
	}
	return nil
}
