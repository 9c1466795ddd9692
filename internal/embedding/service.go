package embedding

import (
	"context"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/vectorstore"
	"github.com/sirupsen/logrus"
)

// Failure records one chunk that did not make it into the store.
type Failure struct {
	ChunkID   domain.ID
	Error     string
	RetryCount int
	Stage      string
}

// Result is the outcome of one embed_and_store run.
type Result struct {
	TotalInputs          int
	SuccessfulEmbeddings int
	FailedEmbeddings     int
	Embeddings           []domain.Embedding
	Failures             []Failure
	EmbeddingDurationMS  float64
	StorageDurationMS    float64
	TotalDurationMS      float64
	QualityMetrics       map[string]any
}

// Service ties the batch provider, quality validator, and vector store
// together into the ingestion pipeline's embedding stage.
type Service struct {
	provider *BatchProvider
	store    vectorstore.Store
	log      logrus.FieldLogger
}

func NewService(provider *BatchProvider, store vectorstore.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{provider: provider, store: store, log: log}
}

// EmbedAndStore embeds chunks, skipping exact-content duplicates when
// configured, validates each resulting vector, persists the valid ones, and
// marks the source chunks accordingly.
func (s *Service) EmbedAndStore(ctx context.Context, chunks []domain.Chunk, cfg Config) (*Result, error) {
	totalStart := time.Now()
	logger := s.log.WithField("total_inputs", len(chunks)).WithField("model", cfg.Model)

	if len(chunks) == 0 {
		return &Result{QualityMetrics: map[string]any{}}, nil
	}
	logger.Info("embedding_started")

	var (
		pending           []*domain.Chunk
		duplicatesSkipped int
		tokensEstimate    int
	)
	for i := range chunks {
		c := &chunks[i]
		if cfg.SkipDuplicateContent {
			dup, err := s.store.CheckDuplicateContent(ctx, c.DocumentID, c.Content)
			if err != nil {
				return nil, err
			}
			if dup {
				c.IsDuplicate = true
				duplicatesSkipped++
				continue
			}
		}
		tokensEstimate += c.TokenCount
		pending = append(pending, c)
	}

	if len(pending) == 0 {
		return &Result{
			TotalInputs:     len(chunks),
			TotalDurationMS: float64(time.Since(totalStart).Milliseconds()),
			QualityMetrics: map[string]any{
				"tokens_used_estimate": tokensEstimate,
				"duplicates_skipped":   duplicatesSkipped,
			},
		}, nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Content
	}

	embedStart := time.Now()
	vectors, err := s.provider.EmbedBatch(ctx, texts)
	embeddingDurationMS := float64(time.Since(embedStart).Milliseconds())

	var failures []Failure
	if err != nil {
		logger.WithError(err).Error("embedding_failed")
		for _, c := range pending {
			failures = append(failures, Failure{ChunkID: c.ChunkID, Error: err.Error(), Stage: "provider"})
		}
		return &Result{
			TotalInputs:         len(chunks),
			FailedEmbeddings:    len(pending),
			Failures:            failures,
			EmbeddingDurationMS: embeddingDurationMS,
			TotalDurationMS:     float64(time.Since(totalStart).Milliseconds()),
			QualityMetrics: map[string]any{
				"tokens_used_estimate": tokensEstimate,
				"duplicates_skipped":   duplicatesSkipped,
			},
		}, nil
	}

	now := time.Now().UTC()
	var valid []*domain.Embedding
	for i, c := range pending {
		quality := ValidateEmbedding(vectors[i], cfg.EmbeddingDimension)
		if !quality.IsValid {
			failures = append(failures, Failure{ChunkID: c.ChunkID, Error: "invalid_embedding", Stage: "validation"})
			continue
		}
		c.HasValidEmbedding = true
		valid = append(valid, &domain.Embedding{
			EmbeddingID:           domain.NewID(),
			ChunkID:               c.ChunkID,
			DocumentID:            c.DocumentID,
			Content:               c.Content,
			Vector:                vectors[i],
			EmbeddingModel:        cfg.Model,
			EmbeddingDimension:    cfg.EmbeddingDimension,
			Metadata:              c.Metadata,
			QualityScore:          c.QualityScore,
			EmbeddingQualityScore: quality.QualityScore,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}

	storeStart := time.Now()
	storedCount := 0
	if len(valid) > 0 {
		if err := s.store.StoreEmbeddingsBatch(ctx, valid); err != nil {
			return nil, err
		}
		storedCount = len(valid)
	}
	storageDurationMS := float64(time.Since(storeStart).Milliseconds())

	embeddings := make([]domain.Embedding, 0, len(valid))
	var qualitySum float64
	for _, e := range valid {
		embeddings = append(embeddings, *e)
		qualitySum += e.EmbeddingQualityScore
	}
	avgQuality := 0.0
	if len(valid) > 0 {
		avgQuality = qualitySum / float64(len(valid))
	}

	totalDurationMS := float64(time.Since(totalStart).Milliseconds())
	logger.WithField("successful_embeddings", storedCount).WithField("failed_embeddings", len(failures)).
		WithField("duration_ms", totalDurationMS).Info("embedding_completed")

	return &Result{
		TotalInputs:          len(chunks),
		SuccessfulEmbeddings: storedCount,
		FailedEmbeddings:     len(failures),
		Embeddings:           embeddings,
		Failures:             failures,
		EmbeddingDurationMS:  embeddingDurationMS,
		StorageDurationMS:    storageDurationMS,
		TotalDurationMS:      totalDurationMS,
		QualityMetrics: map[string]any{
			"tokens_used_estimate":         tokensEstimate,
			"duplicates_skipped":           duplicatesSkipped,
			"avg_embedding_quality_score":  avgQuality,
			"valid_embeddings":             len(valid),
		},
	}, nil
}
