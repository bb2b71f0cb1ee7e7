package preprocess

import (
	"context"
	"regexp"
	"strings"
)

var (
	jiraMention   = regexp.MustCompile(`\[~(?:accountid:)?([^\]]+)\]`)
	jiraHeading   = regexp.MustCompile(`^h([1-6])\.\s+`)
	jiraLink      = regexp.MustCompile(`\[([^|\]\[]+)\|([^\]\s]+)\]`)
	jiraBareLink  = regexp.MustCompile(`\[(https?://[^\]\s|]+)\]`)
	jiraBullet    = regexp.MustCompile(`^(\*+)\s+`)
	jiraNumbered  = regexp.MustCompile(`^(#+)\s+`)
	jiraMonospace = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	jiraCodeOpen  = regexp.MustCompile(`^\{(code|noformat)(?::([^}|]*))?[^}]*\}`)
	jiraBold      = regexp.MustCompile(`(^|[\s(])\*([^*\s][^*]*?)\*($|[\s).,:;!?])`)
)

// CleanText converts Jira wiki markup to Markdown and resolves user
// mentions of the form [~accountid:...] or [~username] to "@Display Name".
func (p *Processor) CleanText(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}

	text = jiraMention.ReplaceAllStringFunc(text, func(m string) string {
		return p.mention(ctx, jiraMention.FindStringSubmatch(m)[1])
	})

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := jiraCodeOpen.FindStringSubmatch(trimmed); m != nil {
			if inCode {
				out = append(out, "```")
				inCode = false
				continue
			}
			out = append(out, "```"+strings.TrimSpace(m[2]))
			inCode = true
			if rest := strings.TrimSpace(trimmed[len(m[0]):]); rest != "" {
				out = append(out, rest)
			}
			continue
		}
		if inCode {
			out = append(out, line)
			continue
		}

		line = convertJiraLine(line)
		out = append(out, line)
	}
	if inCode {
		out = append(out, "```")
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func convertJiraLine(line string) string {
	if m := jiraHeading.FindStringSubmatch(line); m != nil {
		return strings.Repeat("#", int(m[1][0]-'0')) + " " + jiraHeading.ReplaceAllString(line, "")
	}
	if m := jiraBullet.FindStringSubmatch(line); m != nil {
		line = strings.Repeat("  ", len(m[1])-1) + "- " + jiraBullet.ReplaceAllString(line, "")
	} else if m := jiraNumbered.FindStringSubmatch(line); m != nil {
		line = strings.Repeat("   ", len(m[1])-1) + "1. " + jiraNumbered.ReplaceAllString(line, "")
	}

	line = jiraMonospace.ReplaceAllString(line, "`$1`")
	line = jiraLink.ReplaceAllString(line, "[$1]($2)")
	line = jiraBareLink.ReplaceAllString(line, "<$1>")
	line = jiraBold.ReplaceAllString(line, "$1**$2**$3")
	return line
}
