package confluence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgasafonova/atlassian-mcp-server/internal/document"
	apperrors "github.com/olgasafonova/atlassian-mcp-server/internal/errors"
)

type fakeBackend struct {
	spaces      string
	page        string
	byTitle     string
	spacePages  string
	comments    string
	search      string
	err         error
	calls       map[string]int
	lastExpand  string
	lastLimit   int
	lastStart   int
	lastCQL     string
	lastTitle   string
	lastSpaceID string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}}
}

func (f *fakeBackend) record(op string) error {
	f.calls[op]++
	return f.err
}

func (f *fakeBackend) GetSpaces(_ context.Context, start, limit int) ([]byte, error) {
	f.lastStart, f.lastLimit = start, limit
	return []byte(f.spaces), f.record("spaces")
}

func (f *fakeBackend) GetPageByID(_ context.Context, _ string, expand string) ([]byte, error) {
	f.lastExpand = expand
	return []byte(f.page), f.record("page")
}

func (f *fakeBackend) GetPageByTitle(_ context.Context, spaceKey, title, _ string) ([]byte, error) {
	f.lastSpaceID, f.lastTitle = spaceKey, title
	return []byte(f.byTitle), f.record("title")
}

func (f *fakeBackend) GetSpacePages(_ context.Context, spaceKey string, start, limit int, _ string) ([]byte, error) {
	f.lastSpaceID, f.lastStart, f.lastLimit = spaceKey, start, limit
	return []byte(f.spacePages), f.record("space_pages")
}

func (f *fakeBackend) GetPageComments(_ context.Context, _, _ string) ([]byte, error) {
	return []byte(f.comments), f.record("comments")
}

func (f *fakeBackend) Search(_ context.Context, cql string, limit int) ([]byte, error) {
	f.lastCQL, f.lastLimit = cql, limit
	return []byte(f.search), f.record("search")
}

// upperText marks processed content so tests can tell it from raw HTML.
type upperText struct {
	calls  int
	chunks []string
}

func (u *upperText) ProcessHTML(_ context.Context, html, _ string) (string, string, error) {
	u.calls++
	return html, "md:" + html, nil
}

func (u *upperText) Chunk(markdown string) ([]string, error) {
	if u.chunks != nil {
		return u.chunks, nil
	}
	return []string{markdown}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const samplePage = `{
	"id": "123",
	"title": "Runbook",
	"space": {"key": "OPS", "name": "Operations"},
	"version": {"number": 7, "when": "2024-03-01T10:00:00.000Z", "by": {"displayName": "Ada"}},
	"body": {"storage": {"value": "<p>hello</p>"}}
}`

func TestGetPageContent(t *testing.T) {
	backend := newFakeBackend()
	backend.page = samplePage
	text := &upperText{}
	f := NewFetcher("https://example.atlassian.net/", backend, text, quietLogger())

	doc, err := f.GetPageContent(context.Background(), "123", true)
	require.NoError(t, err)

	assert.Equal(t, "md:<p>hello</p>", doc.Content)
	assert.Equal(t, "body.storage,version,space", backend.lastExpand)
	assert.Equal(t, document.Metadata{
		"page_id":       "123",
		"title":         "Runbook",
		"version":       int64(7),
		"url":           "https://example.atlassian.net/wiki/spaces/OPS/pages/123",
		"space_key":     "OPS",
		"author_name":   "Ada",
		"space_name":    "Operations",
		"last_modified": "2024-03-01T10:00:00.000Z",
	}, doc.Metadata)
}

func TestGetPageContent_RawWhenNotClean(t *testing.T) {
	backend := newFakeBackend()
	backend.page = samplePage
	text := &upperText{}
	f := NewFetcher("https://example.atlassian.net", backend, text, quietLogger())

	doc, err := f.GetPageContent(context.Background(), "123", false)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", doc.Content)
	assert.Zero(t, text.calls)
}

func TestGetPageContent_MissingVersionAndSpace(t *testing.T) {
	backend := newFakeBackend()
	backend.page = `{"id":"9","title":"Bare","body":{"storage":{"value":""}}}`
	f := NewFetcher("https://wiki.example.com", backend, &upperText{}, quietLogger())

	doc, err := f.GetPageContent(context.Background(), "9", false)
	require.NoError(t, err)
	assert.Nil(t, doc.Metadata["version"])
	assert.Equal(t, "", doc.Metadata["space_key"])
	assert.Equal(t, "", doc.Metadata["author_name"])
	assert.Equal(t, "https://wiki.example.com/wiki/spaces//pages/9", doc.Metadata["url"])
}

func TestGetPageContent_HardFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.err = apperrors.NewNotFoundError("confluence", "page", "404")
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	_, err := f.GetPageContent(context.Background(), "404", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSplitPage(t *testing.T) {
	backend := newFakeBackend()
	backend.page = samplePage
	text := &upperText{chunks: []string{"# A\n\none", "# B\n\ntwo", "# C\n\nthree"}}
	f := NewFetcher("https://example.atlassian.net", backend, text, quietLogger())

	docs, err := f.SplitPage(context.Background(), "123", true)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "# B\n\ntwo", docs[1].Content)
	for _, d := range docs {
		assert.NotNil(t, d.Metadata)
		assert.Empty(t, d.Metadata)
	}
}

func TestGetPageByTitle_Found(t *testing.T) {
	backend := newFakeBackend()
	backend.byTitle = `{"results":[{"id":"55","title":"Release Notes","version":{"number":2},"body":{"storage":{"value":"<p>v2</p>"}}}]}`
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	doc, err := f.GetPageByTitle(context.Background(), "ENG", "Release Notes", true)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "md:<p>v2</p>", doc.Content)
	assert.Equal(t, "55", doc.Metadata["page_id"])
	assert.Equal(t, int64(2), doc.Metadata["version"])
	assert.Equal(t, "https://example.atlassian.net/wiki/spaces/ENG/pages/55", doc.Metadata["url"])
	assert.Equal(t, "Release Notes", backend.lastTitle)
}

func TestGetPageByTitle_SoftMiss(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{name: "no match", body: `{"results":[]}`},
		{name: "backend failure", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.byTitle = tt.body
			backend.err = tt.err
			f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

			doc, err := f.GetPageByTitle(context.Background(), "ENG", "Nope", true)
			assert.NoError(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestGetSpacePages_PassesWindowThrough(t *testing.T) {
	backend := newFakeBackend()
	backend.spacePages = `{"results":[
		{"id":"1","title":"One","version":{"number":1},"body":{"storage":{"value":"a"}}},
		{"id":"2","title":"Two","version":{"number":4},"body":{"storage":{"value":"b"}}}
	]}`
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	docs, err := f.GetSpacePages(context.Background(), "ENG", 20, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 20, backend.lastStart)
	assert.Equal(t, 2, backend.lastLimit)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[1].Content)
	assert.Equal(t, "Two", docs[1].Metadata["title"])
	assert.Equal(t, "ENG", docs[1].Metadata["space_key"])
	assert.Equal(t, int64(4), docs[1].Metadata["version"])
}

func TestGetPageComments(t *testing.T) {
	backend := newFakeBackend()
	backend.page = samplePage
	backend.comments = `{"results":[
		{"id":"c1","body":{"view":{"value":"<p>LGTM</p>"}},"version":{"when":"2024-03-02T08:00:00.000Z","by":{"displayName":"Grace"}}},
		{"id":"c2","body":{"view":{"value":"<p>+1</p>"}},"version":{"when":"2024-03-03T08:00:00.000Z","by":{"displayName":"Linus"}}}
	]}`
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	docs, err := f.GetPageComments(context.Background(), "123", true)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "md:<p>LGTM</p>", docs[0].Content)
	assert.Equal(t, document.Metadata{
		"page_id":       "123",
		"comment_id":    "c1",
		"last_modified": "2024-03-02T08:00:00.000Z",
		"type":          "comment",
		"author_name":   "Grace",
		"space_key":     "OPS",
		"space_name":    "Operations",
	}, docs[0].Metadata)
}

func TestGetPageComments_None(t *testing.T) {
	backend := newFakeBackend()
	backend.page = samplePage
	backend.comments = `{"results":[]}`
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	docs, err := f.GetPageComments(context.Background(), "123", true)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestSearch_KeepsOnlyPages(t *testing.T) {
	backend := newFakeBackend()
	backend.search = `{"results":[
		{"content":{"id":"1","type":"page"},"title":"Deploy guide","excerpt":"how to deploy","url":"/wiki/spaces/ENG/pages/1","lastModified":"2024-01-01","resultGlobalContainer":{"title":"Engineering"}},
		{"content":{"id":"2","type":"blogpost"},"title":"News","excerpt":"weekly"},
		{"content":{"id":"3","type":"attachment"},"title":"diagram.png"},
		{"content":{"id":"4","type":"page"},"title":"Rollback","excerpt":"undo","url":"/wiki/spaces/ENG/pages/4"}
	]}`
	text := &upperText{}
	f := NewFetcher("https://example.atlassian.net", backend, text, quietLogger())

	docs := f.Search(context.Background(), `text ~ "deploy"`, 10)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, backend.calls["search"])
	assert.Zero(t, backend.calls["page"], "search must not fetch page bodies")
	assert.Zero(t, text.calls)

	assert.Equal(t, "how to deploy", docs[0].Content)
	assert.Equal(t, document.Metadata{
		"page_id":       "1",
		"title":         "Deploy guide",
		"space":         "Engineering",
		"url":           "https://example.atlassian.net/wiki/spaces/ENG/pages/1",
		"last_modified": "2024-01-01",
		"type":          "page",
	}, docs[0].Metadata)
	for _, d := range docs {
		assert.Equal(t, "page", d.Metadata["type"])
	}
}

func TestSearch_BestEffort(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("boom")
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	docs := f.Search(context.Background(), "type=page", 5)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestGetSpaces(t *testing.T) {
	backend := newFakeBackend()
	backend.spaces = `{"results":[{"key":"ENG","name":"Engineering"},{"key":"OPS","name":"Operations"}]}`
	f := NewFetcher("https://example.atlassian.net", backend, &upperText{}, quietLogger())

	spaces, err := f.GetSpaces(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, []Space{{Key: "ENG", Name: "Engineering"}, {Key: "OPS", Name: "Operations"}}, spaces)
}

func TestOperationPolicies(t *testing.T) {
	assert.Equal(t, document.PolicySoftMissing, OperationPolicies[OpGetPageByTitle])
	assert.Equal(t, document.PolicyBestEffort, OperationPolicies[OpSearch])
	for _, op := range []string{OpGetPageContent, OpSplitPage, OpGetSpacePages, OpGetPageComments} {
		assert.Equal(t, document.PolicyHard, OperationPolicies[op], op)
	}
}
