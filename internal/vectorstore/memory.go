package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/intelligencedev/ragserve/internal/domain"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[domain.ID]*domain.Embedding
	hashes  map[domain.ID]map[string]struct{} // documentID -> content hash set
}

// NewMemoryStore returns a process-local Store backed by a guarded map and
// brute-force cosine similarity. Fine for tests and small corpora; not a
// substitute for an indexed backend at scale.
func NewMemoryStore() Store {
	return &memoryStore{
		records: make(map[domain.ID]*domain.Embedding),
		hashes:  make(map[domain.ID]map[string]struct{}),
	}
}

func (m *memoryStore) StoreEmbedding(_ context.Context, emb *domain.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(emb)
	return nil
}

func (m *memoryStore) storeLocked(emb *domain.Embedding) {
	cp := *emb
	cp.Vector = append([]float32(nil), emb.Vector...)
	m.records[emb.ChunkID] = &cp

	set, ok := m.hashes[emb.DocumentID]
	if !ok {
		set = make(map[string]struct{})
		m.hashes[emb.DocumentID] = set
	}
	set[contentHash(emb.Content)] = struct{}{}
}

func (m *memoryStore) StoreEmbeddingsBatch(_ context.Context, embs []*domain.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, emb := range embs {
		m.storeLocked(emb)
	}
	return nil
}

func (m *memoryStore) SearchBySimilarity(_ context.Context, documentID domain.ID, queryVector []float32, topK int, filters map[string]string) ([]domain.RetrievedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}
	qnorm := l2norm(queryVector)

	results := make([]domain.RetrievedChunk, 0, len(m.records))
	for _, emb := range m.records {
		if !documentID.Empty() && emb.DocumentID != documentID {
			continue
		}
		if !metadataMatches(emb.Metadata, filters) {
			continue
		}
		results = append(results, toRetrievedChunk(emb, cosineSimilarity(queryVector, emb.Vector, qnorm), "vector"))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SimilarityScore > results[j].SimilarityScore })
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (m *memoryStore) SearchByDocument(_ context.Context, documentID domain.ID, limit int) ([]domain.RetrievedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []domain.RetrievedChunk
	for _, emb := range m.records {
		if emb.DocumentID != documentID {
			continue
		}
		results = append(results, toRetrievedChunk(emb, 0, "document_scan"))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Metadata.ChunkIndex < results[j].Metadata.ChunkIndex
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (m *memoryStore) CheckDuplicateContent(_ context.Context, documentID domain.ID, content string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.hashes[documentID]
	if !ok {
		return false, nil
	}
	_, exists := set[contentHash(content)]
	return exists, nil
}

func (m *memoryStore) Close() error { return nil }

func toRetrievedChunk(emb *domain.Embedding, score float64, method string) domain.RetrievedChunk {
	quality := emb.EmbeddingQualityScore
	createdAt := emb.CreatedAt
	updatedAt := emb.UpdatedAt
	return domain.RetrievedChunk{
		ChunkID:         emb.ChunkID,
		Content:         emb.Content,
		SimilarityScore: score,
		RetrievalMethod: method,
		DocumentID:      emb.DocumentID,
		Metadata:        emb.Metadata,
		QualityScore:    &quality,
		Vector:          append([]float32(nil), emb.Vector...),
		EmbeddingModel:  emb.EmbeddingModel,
		CreatedAt:       &createdAt,
		UpdatedAt:       &updatedAt,
	}
}

func l2norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosineSimilarity(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = l2norm(a)
	}
	bnorm := l2norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
