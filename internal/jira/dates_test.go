package jira

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"jira utc offset", "2024-01-15T10:30:00.000+0000", "2024-01-15"},
		{"negative zero offset", "2024-01-15T10:30:00.000-0000", "2024-01-15"},
		{"zulu", "2024-01-15T10:30:00.000Z", "2024-01-15"},
		{"colon offset", "2024-01-15T10:30:00+02:00", "2024-01-15"},
		{"date only", "2024-01-15", "2024-01-15"},
		{"east offset crosses midnight", "2024-01-15T01:00:00.000+0900", "2024-01-14"},
		{"west offset crosses midnight", "2024-01-15T22:00:00.000-0500", "2024-01-16"},
		{"no fraction", "2024-03-01T12:00:00+0100", "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.in, quietLogger()))
		})
	}
}

func TestParseDate_EquivalentInstantsAgree(t *testing.T) {
	same := []string{
		"2024-01-15T10:30:00.000+0000",
		"2024-01-15T10:30:00.000Z",
		"2024-01-15T19:30:00.000+0900",
		"2024-01-15T05:30:00.000-0500",
		"2024-01-15T10:30:00+00:00",
	}
	for _, s := range same {
		assert.Equal(t, "2024-01-15", ParseDate(s, quietLogger()), s)
	}
}

func TestParseDate_InvalidKeepsInput(t *testing.T) {
	before := counterValue(t, metrics.DateParseFailures)

	assert.Equal(t, "yesterday", ParseDate("yesterday", quietLogger()))
	assert.Equal(t, "2024-13-45T00:00:00Z", ParseDate("2024-13-45T00:00:00Z", nil))

	assert.Equal(t, before+2, counterValue(t, metrics.DateParseFailures))
}
