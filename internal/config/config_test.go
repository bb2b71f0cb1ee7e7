package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"CONFLUENCE_URL":       "https://example.atlassian.net",
		"CONFLUENCE_API_TOKEN": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, Services{Confluence: true, Jira: false}, cfg.Services())
	assert.True(t, cfg.Confluence.IsCloud())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"JIRA_URL":                       "https://jira.internal.example.com",
		"JIRA_API_TOKEN":                 "secret",
		"ATLASSIAN_TIMEOUT":              "5s",
		"ATLASSIAN_MAX_RETRIES":          "0",
		"ATLASSIAN_USER_AGENT":           "custom/2.0",
		"ATLASSIAN_INSECURE_SKIP_VERIFY": "true",
		"LOG_LEVEL":                      "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "custom/2.0", cfg.UserAgent)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, Services{Jira: true}, cfg.Services())
	assert.False(t, cfg.Jira.IsCloud())
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"nothing configured", map[string]string{}},
		{"confluence url without token", map[string]string{"CONFLUENCE_URL": "https://c.example.com"}},
		{"jira token without url", map[string]string{
			"CONFLUENCE_URL": "https://c.example.com", "CONFLUENCE_API_TOKEN": "t",
			"JIRA_API_TOKEN": "t",
		}},
		{"url without scheme", map[string]string{"JIRA_URL": "jira.example.com", "JIRA_API_TOKEN": "t"}},
		{"bad timeout", map[string]string{
			"JIRA_URL": "https://j.example.com", "JIRA_API_TOKEN": "t", "ATLASSIAN_TIMEOUT": "soon",
		}},
		{"negative retries", map[string]string{
			"JIRA_URL": "https://j.example.com", "JIRA_API_TOKEN": "t", "ATLASSIAN_MAX_RETRIES": "-1",
		}},
		{"bad bool", map[string]string{
			"JIRA_URL": "https://j.example.com", "JIRA_API_TOKEN": "t", "ATLASSIAN_INSECURE_SKIP_VERIFY": "maybe",
		}},
		{"bad log level", map[string]string{
			"JIRA_URL": "https://j.example.com", "JIRA_API_TOKEN": "t", "LOG_LEVEL": "loud",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			require.Error(t, err)
			assert.True(t, apperrors.IsConfig(err), "expected ConfigError, got %T", err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JIRA_URL=https://dotenv.example.com\nJIRA_API_TOKEN=from-file\n"), 0o600))

	t.Setenv("CONFLUENCE_URL", "")
	t.Setenv("CONFLUENCE_API_TOKEN", "")
	t.Setenv("JIRA_URL", "")
	t.Setenv("JIRA_API_TOKEN", "")
	// godotenv does not override variables that are already set, so clear them first.
	require.NoError(t, os.Unsetenv("JIRA_URL"))
	require.NoError(t, os.Unsetenv("JIRA_API_TOKEN"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.Jira.URL)
	assert.Equal(t, "from-file", cfg.Jira.APIToken)
}
