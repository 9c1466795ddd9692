package ingestion

import (
	"context"
	"time"

	"github.com/intelligencedev/ragserve/internal/chunking"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/intelligencedev/ragserve/internal/metastore"
	"github.com/sirupsen/logrus"
)

// Orchestrator runs one job through extract -> chunk -> persist -> embed, in
// that order, recording per-stage duration metrics and failing the job at
// whichever stage raises an error. MetaStore is optional: when nil, stage 3
// is skipped entirely, matching section 4.5's "when a metadata store is
// configured" gate.
type Orchestrator struct {
	Extractor extract.Extractor
	Chunker   *chunking.Service
	Embedder  *embedding.Service
	MetaStore metastore.Store
	Jobs      JobStore
	Log       logrus.FieldLogger
}

// Submit creates and stores a pending job for the given files and returns
// the job record; it does not start Run, which the caller dispatches.
func (o *Orchestrator) Submit(ctx context.Context, files []domain.UploadedFile) (*domain.IngestionJob, error) {
	now := time.Now().UTC()
	job := &domain.IngestionJob{
		IngestionID: domain.NewID(),
		DocumentID:  domain.NewID(),
		Status:      domain.JobPending,
		Files:       files,
		Metrics:     map[string]float64{},
		CreatedAt:   now,
	}
	if err := o.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Run executes the four stages for one file's raw bytes, updating the job
// record as each stage completes. Run is meant to be called from a
// goroutine spawned by the HTTP handler right after Submit.
func (o *Orchestrator) Run(ctx context.Context, jobID domain.ID, filename string, data []byte, extractOpts extract.Options, chunkCfg chunking.Config, embedCfg embedding.Config) {
	job, err := o.Jobs.Get(ctx, jobID)
	if err != nil {
		o.Log.WithError(err).Error("ingestion_job_not_found")
		return
	}

	started := time.Now().UTC()
	job.Status = domain.JobProcessing
	job.StartedAt = &started
	_ = o.Jobs.Update(ctx, job)

	logger := o.Log.WithField("ingestion_id", jobID.String()).WithField("document_id", job.DocumentID.String())
	logger.Info("ingestion_started")

	extractStart := time.Now()
	doc, err := o.Extractor.Extract(ctx, filename, data, extractOpts)
	if err != nil {
		o.fail(ctx, job, domain.StageExtraction, err, logger)
		return
	}
	doc.DocumentID = job.DocumentID
	job.Metrics["extraction_duration_ms"] = float64(time.Since(extractStart).Milliseconds())
	job.ExtractedDocument = doc
	_ = o.Jobs.Update(ctx, job)

	chunkResult, err := o.Chunker.ChunkDocument(ctx, doc, chunkCfg)
	if err != nil {
		o.fail(ctx, job, domain.StageChunking, err, logger)
		return
	}
	job.Metrics["chunking_duration_ms"] = chunkResult.ChunkingDurationMS
	job.Chunks = chunkResult.Chunks
	_ = o.Jobs.Update(ctx, job)

	if o.MetaStore != nil {
		persistStart := time.Now()
		row := metastore.DocumentRow{
			DocumentID:      doc.DocumentID,
			Filename:        doc.Filename,
			Format:          doc.Format,
			Language:        doc.Language,
			TotalPages:      doc.TotalPages(),
			IngestionStatus: metastore.IngestionStatusProcessing,
		}
		if err := o.MetaStore.UpsertDocumentAndChunks(ctx, row, job.Chunks); err != nil {
			o.fail(ctx, job, domain.StageStorage, err, logger)
			return
		}
		job.Metrics["storage_duration_ms"] = float64(time.Since(persistStart).Milliseconds())
		_ = o.Jobs.Update(ctx, job)
	}

	embedStart := time.Now()
	embedResult, err := o.Embedder.EmbedAndStore(ctx, job.Chunks, embedCfg)
	if err != nil {
		if o.MetaStore != nil {
			_ = o.MetaStore.MarkDocumentStatus(ctx, doc.DocumentID, metastore.IngestionStatusFailed)
		}
		o.fail(ctx, job, domain.StageEmbedding, err, logger)
		return
	}
	job.Metrics["embedding_duration_ms"] = float64(time.Since(embedStart).Milliseconds())
	if _, ok := job.Metrics["storage_duration_ms"]; !ok {
		job.Metrics["storage_duration_ms"] = embedResult.StorageDurationMS
	}
	job.Embeddings = embedResult.Embeddings

	completed := time.Now().UTC()
	job.CompletedAt = &completed
	job.Status = domain.JobCompleted
	if o.MetaStore != nil {
		_ = o.MetaStore.MarkDocumentStatus(ctx, doc.DocumentID, metastore.IngestionStatusCompleted)
	}
	_ = o.Jobs.Update(ctx, job)

	logger.WithField("chunks_created", job.ChunksCreated()).
		WithField("total_duration_ms", job.TotalDurationMS(completed)).
		Info("ingestion_completed")
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.IngestionJob, stage domain.ErrorStage, err error, logger logrus.FieldLogger) {
	completed := time.Now().UTC()
	job.Status = domain.JobFailed
	job.ErrorStage = stage
	job.ErrorMessage = err.Error()
	job.CompletedAt = &completed
	_ = o.Jobs.Update(ctx, job)
	logger.WithError(err).WithField("stage", stage).Error("ingestion_failed")
}
