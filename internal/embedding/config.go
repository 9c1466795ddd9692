// Package embedding turns chunks into vectors: batching and retrying calls
// to a provider, validating the vectors it gets back, and caching
// query-time embeddings so repeated questions skip the round trip.
package embedding

// Config controls one embed_and_store run.
type Config struct {
	BatchSize            int
	Model                string
	MaxRetries           int
	BaseBackoffSeconds   float64
	TimeoutSeconds       float64
	EmbeddingDimension   int
	SkipDuplicateContent bool
}

// DefaultConfig mirrors the reference defaults: batches of 10, up to 3
// retries with exponential backoff starting at 1s, a 1536-dim model, and
// duplicate-content skipping turned on.
func DefaultConfig() Config {
	return Config{
		BatchSize:            10,
		Model:                "text-embedding-3-small",
		MaxRetries:           3,
		BaseBackoffSeconds:   1.0,
		TimeoutSeconds:       30.0,
		EmbeddingDimension:   1536,
		SkipDuplicateContent: true,
	}
}
