// Package ingestion drives one document through extract, chunk, embed, and
// persist, tracking job state across the four stages.
package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// JobStore persists IngestionJob records across the lifetime of a request;
// the in-memory implementation is sufficient for a single server instance.
type JobStore interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
	Get(ctx context.Context, id domain.ID) (*domain.IngestionJob, error)
	Update(ctx context.Context, job *domain.IngestionJob) error
}

type memoryJobStore struct {
	mu   sync.RWMutex
	jobs map[domain.ID]*domain.IngestionJob
}

func NewMemoryJobStore() JobStore {
	return &memoryJobStore{jobs: make(map[domain.ID]*domain.IngestionJob)}
}

func (s *memoryJobStore) Create(_ context.Context, job *domain.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.IngestionID] = &cp
	return nil
}

func (s *memoryJobStore) Get(_ context.Context, id domain.ID) (*domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("ingestion job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (s *memoryJobStore) Update(_ context.Context, job *domain.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.IngestionID]; !ok {
		return fmt.Errorf("ingestion job %s not found", job.IngestionID)
	}
	cp := *job
	s.jobs[job.IngestionID] = &cp
	return nil
}
