// Package document defines the normalized record produced by every backend adapter.
package document

// Metadata holds backend-specific fields. Each operation documents its key set.
type Metadata map[string]any

// Document is the uniform content+metadata record returned by the Confluence
// and Jira fetchers.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// New builds a Document. A nil metadata map is replaced with an empty one so
// the record always serializes with both fields present.
func New(content string, metadata Metadata) Document {
	if metadata == nil {
		metadata = Metadata{}
	}
	return Document{Content: content, Metadata: metadata}
}

// String returns the metadata value for key as a string, or "" when absent
// or not a string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Policy describes how an operation treats a missing or failing backend item.
type Policy int

const (
	// PolicyHard propagates every backend error to the caller.
	PolicyHard Policy = iota
	// PolicySoftMissing turns misses and backend errors into an absent result.
	PolicySoftMissing
	// PolicyBestEffort turns backend errors into an empty collection.
	PolicyBestEffort
)

func (p Policy) String() string {
	switch p {
	case PolicyHard:
		return "hard"
	case PolicySoftMissing:
		return "soft_missing"
	case PolicyBestEffort:
		return "best_effort"
	default:
		return "unknown"
	}
}
