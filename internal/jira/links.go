package jira

import (
	"strings"

	"github.com/tidwall/gjson"
)

// GroupLinks renders issue links as one "label: KEY-1, KEY-2" line per
// inward relationship label. Labels and keys keep the order they were
// first seen in.
func GroupLinks(links []gjson.Result) string {
	if len(links) == 0 {
		return ""
	}

	var order []string
	groups := make(map[string][]string)
	for _, link := range links {
		label := link.Get("type.inward").String()
		if label == "" {
			label = "Unknown"
		}
		key := link.Get("inwardIssue.key").String()
		if key == "" {
			key = "UNKNOWN"
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], key)
	}

	lines := make([]string, 0, len(order))
	for _, label := range order {
		lines = append(lines, label+": "+strings.Join(groups[label], ", "))
	}
	return strings.Join(lines, "\n")
}
