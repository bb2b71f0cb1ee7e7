package preprocess

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// cdataPattern matches CDATA sections, which the HTML5 parser would otherwise
// treat as bogus comments.
var cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// ProcessHTML cleans Confluence storage-format HTML and converts it to
// Markdown. User mentions become "@Display Name", page links become anchors
// into spaceKey, code macros become <pre><code> blocks, and other macros are
// unwrapped to their body.
func (p *Processor) ProcessHTML(ctx context.Context, storage, spaceKey string) (string, string, error) {
	if strings.TrimSpace(storage) == "" {
		return "", "", nil
	}

	storage = cdataPattern.ReplaceAllStringFunc(storage, func(m string) string {
		return html.EscapeString(cdataPattern.FindStringSubmatch(m)[1])
	})

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(storage), body)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse storage html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	p.rewrite(ctx, body, spaceKey)

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", "", fmt.Errorf("failed to render cleaned html: %w", err)
		}
	}
	cleaned := sb.String()

	opts := []converter.ConvertOptionFunc{}
	if p.baseURL != "" {
		opts = append(opts, converter.WithDomain(p.baseURL))
	}
	markdown, err := htmltomarkdown.ConvertString(cleaned, opts...)
	if err != nil {
		return cleaned, "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return cleaned, strings.TrimSpace(markdown), nil
}

// rewrite walks n's children and replaces Confluence-specific elements.
func (p *Processor) rewrite(ctx context.Context, n *html.Node, spaceKey string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if repl := p.replacement(ctx, c, spaceKey); repl != nil {
			for _, r := range repl {
				n.InsertBefore(r, c)
			}
			n.RemoveChild(c)
			c = next
			continue
		}
		p.rewrite(ctx, c, spaceKey)
		c = next
	}
}

// replacement returns the nodes that should stand in for c, or nil to keep c.
// A non-nil empty slice removes c.
func (p *Processor) replacement(ctx context.Context, c *html.Node, spaceKey string) []*html.Node {
	switch c.Type {
	case html.CommentNode:
		return []*html.Node{}
	case html.ElementNode:
	default:
		return nil
	}

	switch c.Data {
	case "ac:link":
		if user := findElement(c, "ri:user"); user != nil {
			id := attr(user, "ri:account-id")
			if id == "" {
				id = attr(user, "ri:userkey")
			}
			if id == "" {
				id = attr(user, "ri:username")
			}
			return []*html.Node{textNode(p.mention(ctx, id))}
		}
		if page := findElement(c, "ri:page"); page != nil {
			return []*html.Node{p.pageLink(c, page, spaceKey)}
		}
		p.rewrite(ctx, c, spaceKey)
		return children(c)

	case "ac:structured-macro", "ac:macro":
		return p.macro(ctx, c, spaceKey)

	case "ac:parameter", "ac:image", "ac:placeholder", "ri:attachment":
		return []*html.Node{}

	case "ac:rich-text-body", "ac:plain-text-body", "ac:link-body", "ac:plain-text-link-body",
		"ac:task-list", "ac:task", "ac:task-body", "ac:layout", "ac:layout-section", "ac:layout-cell":
		p.rewrite(ctx, c, spaceKey)
		return children(c)

	case "ac:emoticon":
		if name := attr(c, "ac:name"); name != "" {
			return []*html.Node{textNode(":" + name + ":")}
		}
		return []*html.Node{}

	case "time":
		if dt := attr(c, "datetime"); dt != "" && c.FirstChild == nil {
			return []*html.Node{textNode(dt)}
		}
	}
	return nil
}

func (p *Processor) macro(ctx context.Context, c *html.Node, spaceKey string) []*html.Node {
	name := attr(c, "ac:name")
	if name == "code" || name == "noformat" {
		var text strings.Builder
		if body := findElement(c, "ac:plain-text-body"); body != nil {
			collectText(body, &text)
		}
		pre := &html.Node{Type: html.ElementNode, DataAtom: atom.Pre, Data: "pre"}
		code := &html.Node{Type: html.ElementNode, DataAtom: atom.Code, Data: "code"}
		if lang := macroParameter(c, "language"); lang != "" {
			code.Attr = []html.Attribute{{Key: "class", Val: "language-" + lang}}
		}
		code.AppendChild(textNode(text.String()))
		pre.AppendChild(code)
		return []*html.Node{pre}
	}

	if body := findElement(c, "ac:rich-text-body"); body != nil {
		p.rewrite(ctx, body, spaceKey)
		return children(body)
	}
	if body := findElement(c, "ac:plain-text-body"); body != nil {
		var text strings.Builder
		collectText(body, &text)
		return []*html.Node{textNode(text.String())}
	}
	return []*html.Node{}
}

func (p *Processor) pageLink(link, page *html.Node, spaceKey string) *html.Node {
	title := attr(page, "ri:content-title")
	if sk := attr(page, "ri:space-key"); sk != "" {
		spaceKey = sk
	}

	label := title
	var text strings.Builder
	for _, tag := range []string{"ac:plain-text-link-body", "ac:link-body"} {
		if body := findElement(link, tag); body != nil {
			collectText(body, &text)
			break
		}
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		label = s
	}

	a := &html.Node{Type: html.ElementNode, DataAtom: atom.A, Data: "a"}
	a.Attr = []html.Attribute{{Key: "href", Val: fmt.Sprintf("%s/wiki/display/%s/%s", p.baseURL, url.PathEscape(spaceKey), url.PathEscape(title))}}
	a.AppendChild(textNode(label))
	return a
}

func macroParameter(macro *html.Node, name string) string {
	for c := macro.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "ac:parameter" && attr(c, "ac:name") == name {
			var sb strings.Builder
			collectText(c, &sb)
			return strings.TrimSpace(sb.String())
		}
	}
	return ""
}

// children detaches and returns c's child nodes.
func children(c *html.Node) []*html.Node {
	var out []*html.Node
	for ch := c.FirstChild; ch != nil; {
		next := ch.NextSibling
		c.RemoveChild(ch)
		out = append(out, ch)
		ch = next
	}
	if out == nil {
		out = []*html.Node{}
	}
	return out
}

func findElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, sb)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
