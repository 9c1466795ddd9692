package query

import (
	"context"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/vectorstore"
	"github.com/sirupsen/logrus"
)

// Retriever executes dense similarity search against the vector store and
// reports its own latency so the orchestrator doesn't need a stopwatch at
// every call site.
type Retriever struct {
	store vectorstore.Store
	log   logrus.FieldLogger
}

func NewRetriever(store vectorstore.Store, log logrus.FieldLogger) *Retriever {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Retriever{store: store, log: log}
}

// Retrieve runs the similarity search scoped to filters["document_id"], if
// present, with every other filter key matched against each chunk's
// persisted metadata, and returns the ranked chunks plus the search's own
// latency.
func (r *Retriever) Retrieve(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]domain.RetrievedChunk, float64, error) {
	var documentID domain.ID
	if filters != nil {
		documentID = domain.ID(filters["document_id"])
	}

	start := time.Now()
	chunks, err := r.store.SearchBySimilarity(ctx, documentID, queryVector, topK, filters)
	latencyMS := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, latencyMS, err
	}

	r.log.WithField("top_k", topK).WithField("result_count", len(chunks)).
		WithField("latency_ms", latencyMS).Info("retrieval_completed")

	return chunks, latencyMS, nil
}
