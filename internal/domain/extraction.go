package domain

import "time"

// Format identifies the source byte format of an uploaded file.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatTXT      Format = "txt"
	FormatMarkdown Format = "markdown"
)

// ExtractedPage is one page (or, for formats without pagination, the whole
// document) after decoding and normalization.
type ExtractedPage struct {
	PageNumber       int
	RawText          string
	NormalizedText   string
	IsEmpty          bool
	WordCount        int
	CharCount        int
	LineCount        int
	Language         string
	SectionTitle     string
	SectionHierarchy []SectionHeading
	ConfidenceScore  float64
}

// SectionHeading captures one markdown heading level/title pair.
type SectionHeading struct {
	Level int
	Title string
}

// ExtractedDocument is the normalized, page-structured output of C1.
type ExtractedDocument struct {
	DocumentID           ID
	Filename             string
	Format               Format
	Language             string
	Pages                []ExtractedPage
	ExtractionMetadata   map[string]any
	ExtractionDurationMS float64
	CreatedAt            time.Time
}

// TotalPages returns len(Pages), kept as a method so call sites read the same
// way the invariant in the spec is phrased (total_pages == len(pages)).
func (d ExtractedDocument) TotalPages() int { return len(d.Pages) }
