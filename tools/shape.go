package tools

import (
	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
)

// ExcerptLength is the rune budget for excerpts in list results.
const ExcerptLength = 500

// excerpt truncates s to ExcerptLength runes, marking the cut with "...".
func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= ExcerptLength {
		return s
	}
	return string(r[:ExcerptLength]) + "..."
}

// DocumentResult is a document as returned to the caller.
type DocumentResult struct {
	Content  string            `json:"content"`
	Metadata document.Metadata `json:"metadata,omitempty"`
}

type PageSearchResult struct {
	PageID       string `json:"page_id"`
	Title        string `json:"title"`
	Space        string `json:"space"`
	URL          string `json:"url"`
	LastModified string `json:"last_modified"`
	Type         string `json:"type"`
	Excerpt      string `json:"excerpt"`
}

type SplitPageResult struct {
	PageID string       `json:"page_id"`
	Start  int          `json:"start"`
	Limit  int          `json:"limit"`
	Count  int          `json:"count"`
	Parts  []PartResult `json:"parts"`
}

// PartResult always carries metadata, even when empty.
type PartResult struct {
	Content  string            `json:"content"`
	Metadata document.Metadata `json:"metadata"`
}

type CommentResult struct {
	Author  string `json:"author"`
	Created string `json:"created"`
	Content string `json:"content"`
}

// PageByTitleResult reports found=false instead of failing on a miss.
type PageByTitleResult struct {
	Found    bool              `json:"found"`
	Content  *string           `json:"content,omitempty"`
	Metadata document.Metadata `json:"metadata,omitempty"`
}

type SpacePageResult struct {
	PageID   string `json:"page_id"`
	Title    string `json:"title"`
	SpaceKey string `json:"space_key"`
	Version  any    `json:"version"`
	URL      string `json:"url"`
	Excerpt  string `json:"excerpt"`
}

type IssueSearchResult struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	CreatedDate string `json:"created_date"`
	Priority    string `json:"priority"`
	Link        string `json:"link"`
	Excerpt     string `json:"excerpt"`
}

type ProjectIssueResult struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	CreatedDate string `json:"created_date"`
	Link        string `json:"link"`
}

func shapeDocument(doc document.Document, includeMetadata bool) DocumentResult {
	if !includeMetadata {
		return DocumentResult{Content: doc.Content}
	}
	return DocumentResult{Content: doc.Content, Metadata: doc.Metadata}
}

func shapePageSearch(docs []document.Document) []PageSearchResult {
	out := make([]PageSearchResult, 0, len(docs))
	for _, d := range docs {
		m := d.Metadata
		out = append(out, PageSearchResult{
			PageID:       m.String("page_id"),
			Title:        m.String("title"),
			Space:        m.String("space"),
			URL:          m.String("url"),
			LastModified: m.String("last_modified"),
			Type:         m.String("type"),
			Excerpt:      excerpt(d.Content),
		})
	}
	return out
}

// shapeSplit windows parts to [start, start+limit). Count is the total.
func shapeSplit(pageID string, start, limit int, parts []document.Document) SplitPageResult {
	lo := min(start, len(parts))
	hi := min(lo+limit, len(parts))

	window := make([]PartResult, 0, hi-lo)
	for _, p := range parts[lo:hi] {
		window = append(window, PartResult{Content: p.Content, Metadata: p.Metadata})
	}
	return SplitPageResult{
		PageID: pageID,
		Start:  start,
		Limit:  limit,
		Count:  len(parts),
		Parts:  window,
	}
}

func shapeComments(docs []document.Document) []CommentResult {
	out := make([]CommentResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, CommentResult{
			Author:  d.Metadata.String("author_name"),
			Created: d.Metadata.String("last_modified"),
			Content: d.Content,
		})
	}
	return out
}

func shapePageByTitle(doc *document.Document, includeMetadata bool) PageByTitleResult {
	if doc == nil {
		return PageByTitleResult{Found: false}
	}
	res := PageByTitleResult{Found: true, Content: ptr(doc.Content)}
	if includeMetadata {
		res.Metadata = doc.Metadata
	}
	return res
}

func shapeSpacePages(docs []document.Document) []SpacePageResult {
	out := make([]SpacePageResult, 0, len(docs))
	for _, d := range docs {
		m := d.Metadata
		out = append(out, SpacePageResult{
			PageID:   m.String("page_id"),
			Title:    m.String("title"),
			SpaceKey: m.String("space_key"),
			Version:  m["version"],
			URL:      m.String("url"),
			Excerpt:  excerpt(d.Content),
		})
	}
	return out
}

func shapeIssueSearch(docs []document.Document) []IssueSearchResult {
	out := make([]IssueSearchResult, 0, len(docs))
	for _, d := range docs {
		m := d.Metadata
		out = append(out, IssueSearchResult{
			Key:         m.String("key"),
			Title:       m.String("title"),
			Type:        m.String("type"),
			Status:      m.String("status"),
			CreatedDate: m.String("created_date"),
			Priority:    m.String("priority"),
			Link:        m.String("link"),
			Excerpt:     excerpt(d.Content),
		})
	}
	return out
}

func shapeProjectIssues(docs []document.Document) []ProjectIssueResult {
	out := make([]ProjectIssueResult, 0, len(docs))
	for _, d := range docs {
		m := d.Metadata
		out = append(out, ProjectIssueResult{
			Key:         m.String("key"),
			Title:       m.String("title"),
			Type:        m.String("type"),
			Status:      m.String("status"),
			CreatedDate: m.String("created_date"),
			Link:        m.String("link"),
		})
	}
	return out
}
