package ingestion

import (
	"context"
	"testing"

	"github.com/intelligencedev/ragserve/internal/chunking"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/intelligencedev/ragserve/internal/vectorstore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeEmbedProvider struct{ dim int }

func (f fakeEmbedProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestOrchestrator() *Orchestrator {
	store := vectorstore.NewMemoryStore()
	embedCfg := embedding.DefaultConfig()
	embedCfg.EmbeddingDimension = 4
	provider := embedding.NewBatchProvider(fakeEmbedProvider{dim: 4}, embedCfg, testLogger())

	return &Orchestrator{
		Extractor: extract.TXTExtractor{Language: "en"},
		Chunker:   chunking.NewService(),
		Embedder:  embedding.NewService(provider, store, testLogger()),
		Jobs:      NewMemoryJobStore(),
		Log:       testLogger(),
	}
}

func TestOrchestratorRunCompletesSuccessfully(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	job, err := o.Submit(ctx, []domain.UploadedFile{{Filename: "doc.txt", MimeType: "text/plain", SizeBytes: 100}})
	require.NoError(t, err)
	require.Equal(t, domain.JobPending, job.Status)

	content := []byte("this is a reasonably long passage of text meant to produce at least one chunk for the pipeline to embed and store successfully.\n\nand a second paragraph to be safe.")
	embedCfg := embedding.DefaultConfig()
	embedCfg.EmbeddingDimension = 4

	o.Run(ctx, job.IngestionID, "doc.txt", content, extract.DefaultOptions(), chunking.DefaultConfig(), embedCfg)

	final, err := o.Jobs.Get(ctx, job.IngestionID)
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, final.Status)
	require.Equal(t, 100, final.ProgressPercent())
	require.NotEmpty(t, final.Chunks)
	require.NotEmpty(t, final.Embeddings)
}

func TestOrchestratorRunFailsOnUnsupportedFormat(t *testing.T) {
	o := newTestOrchestrator()
	o.Extractor = extract.NewDetector(extract.TXTExtractor{}, extract.MarkdownExtractor{}, extract.TXTExtractor{})
	ctx := context.Background()

	job, err := o.Submit(ctx, []domain.UploadedFile{{Filename: "doc.bin", MimeType: "application/octet-stream", SizeBytes: 4}})
	require.NoError(t, err)

	o.Run(ctx, job.IngestionID, "doc.bin", []byte{0x00, 0x01, 0x02, 0x03}, extract.DefaultOptions(), chunking.DefaultConfig(), embedding.DefaultConfig())

	final, err := o.Jobs.Get(ctx, job.IngestionID)
	require.NoError(t, err)
	require.Equal(t, domain.JobFailed, final.Status)
	require.Equal(t, domain.StageExtraction, final.ErrorStage)
	require.GreaterOrEqual(t, final.ProgressPercent(), 50)
}
