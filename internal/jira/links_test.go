package jira

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestGroupLinks(t *testing.T) {
	tests := []struct {
		name  string
		links string
		want  string
	}{
		{
			name:  "none",
			links: `[]`,
			want:  "",
		},
		{
			name: "grouped in encounter order",
			links: `[
				{"type":{"inward":"is blocked by"},"inwardIssue":{"key":"A-1"}},
				{"type":{"inward":"relates to"},"inwardIssue":{"key":"C-3"}},
				{"type":{"inward":"is blocked by"},"inwardIssue":{"key":"B-2"}}
			]`,
			want: "is blocked by: A-1, B-2\nrelates to: C-3",
		},
		{
			name: "missing label and key",
			links: `[
				{"outwardIssue":{"key":"X-9"}},
				{"type":{"inward":"duplicates"}}
			]`,
			want: "Unknown: UNKNOWN\nduplicates: UNKNOWN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupLinks(gjson.Parse(tt.links).Array())
			if got != tt.want {
				t.Errorf("GroupLinks() = %q, want %q", got, tt.want)
			}
		})
	}
}
