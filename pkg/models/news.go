package models

// News source types.
const (
	NewsSourceWeb    = "web"
	NewsSourceDomain = "domain"
)

// NewsItem is a normalized news record from any source. URL and PublishedAt
// are preserved verbatim so citations remain link-resolvable.
type NewsItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
	SourceType  string `json:"source_type"`
	SourceName  string `json:"source_name"`

	// Filled by the news summarizer.
	SummarizedTitle   string `json:"summarized_title,omitempty"`
	SummarizedContent string `json:"summarized_content,omitempty"`
}

// ResearchExcerpt is one snippet returned by the research retrieval service.
type ResearchExcerpt struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}
