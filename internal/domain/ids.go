// Package domain holds the shared entities that flow between the ingestion
// and query pipelines: extracted documents, chunks, embeddings, retrieval
// views and the ingestion job record.
package domain

import "github.com/google/uuid"

// ID is a 128-bit opaque identifier in its stable string form.
type ID string

// NewID mints a fresh random identifier.
func NewID() ID {
	return ID(uuid.New().String())
}

// Empty reports whether the id was never assigned.
func (i ID) Empty() bool { return i == "" }

func (i ID) String() string { return string(i) }
