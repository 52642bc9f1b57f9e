package doctree

// ContentType labels the structure of a chunk's markdown.
type ContentType string

const (
	ContentText    ContentType = "TEXT"
	ContentTable   ContentType = "TABLE"
	ContentList    ContentType = "LIST"
	ContentCode    ContentType = "CODE"
	ContentHeading ContentType = "HEADING"
	ContentMixed   ContentType = "MIXED"
)

// IsAtomic reports whether chunks of this type hold a unit that is never split.
func (t ContentType) IsAtomic() bool {
	return t == ContentTable || t == ContentList || t == ContentCode
}

// Source is a document rendered to markdown, ready for chunking.
type Source struct {
	Title    string // Document title (from metadata, first heading, or filename)
	Markdown string // Full markdown body
	Pages    int    // Page count for paginated formats (0 if N/A)
}

// Chunk is a token-bounded segment of a document, in document order.
// Identity and timestamps are assigned by whoever persists it.
type Chunk struct {
	Content        string      `json:"content"`
	ContentType    ContentType `json:"content_type"`
	SectionHeading string      `json:"section_heading,omitempty"` // Empty when no heading precedes the chunk
	HeadingLevel   int         `json:"heading_level,omitempty"`   // 1-6, 0 when SectionHeading is empty
	TokenCount     int         `json:"token_count"`
	Position       int         `json:"position"`
}
