package jira

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

var offsetSuffix = regexp.MustCompile(`([+-])(\d{2})(\d{2})$`)

// dateLayouts are tried in order after the offset has been normalized.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate renders a Jira timestamp as YYYY-MM-DD in UTC, so two strings
// naming the same instant give the same date. Jira sends offsets without a
// colon (2024-01-15T10:30:00.000+0100). Unparseable input is returned as
// given.
func ParseDate(raw string, logger *slog.Logger) string {
	if raw == "" {
		return ""
	}

	s := strings.TrimSpace(raw)
	switch {
	case strings.HasSuffix(s, "Z"):
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	case strings.HasSuffix(s, "+0000"), strings.HasSuffix(s, "-0000"):
		s = s[:len(s)-5] + "+00:00"
	default:
		s = offsetSuffix.ReplaceAllString(s, "$1$2:$3")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("Failed to parse Jira date", "value", raw)
	metrics.DateParseFailures.Inc()
	return raw
}
