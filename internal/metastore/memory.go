package metastore

import (
	"context"
	"sync"

	"github.com/intelligencedev/ragserve/internal/domain"
)

type memoryStore struct {
	mu        sync.Mutex
	documents map[domain.ID]DocumentRow
	chunks    map[domain.ID][]domain.Chunk
}

// NewMemoryStore returns a process-local Store, suitable for the reference
// deployment and for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		documents: make(map[domain.ID]DocumentRow),
		chunks:    make(map[domain.ID][]domain.Chunk),
	}
}

func (s *memoryStore) UpsertDocumentAndChunks(_ context.Context, doc DocumentRow, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.DocumentID] = doc
	s.chunks[doc.DocumentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (s *memoryStore) MarkDocumentStatus(_ context.Context, documentID domain.ID, status IngestionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.documents[documentID]
	if !ok {
		return nil
	}
	row.IngestionStatus = status
	s.documents[documentID] = row
	return nil
}

func (s *memoryStore) Close() error { return nil }
