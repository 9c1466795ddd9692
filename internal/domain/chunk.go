package domain

import "time"

// Span is a half-open character range within a page's normalized text.
type Span struct {
	Start int
	End   int
}

// ChunkMetadata is the open attribute bag carried from the source document
// into a chunk and, later, into its embedding and retrieval views.
type ChunkMetadata struct {
	PageNumber       int
	PositionInPage   Span
	SectionTitle     string
	DocumentType     string
	SourceFilename   string
	Language         string
	ChunkIndex       int
	UserID           string
}

// Chunk is a retrieval unit produced by the chunking engine.
type Chunk struct {
	ChunkID           ID
	DocumentID        ID
	Content           string
	OriginalContent   string
	Metadata          ChunkMetadata
	TokenCount        int
	WordCount         int
	CharCount         int
	QualityScore      float64
	HasValidEmbedding bool
	IsDuplicate       bool
	CreatedAt         time.Time
}
