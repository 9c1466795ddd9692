package domain

import "time"

// JobStatus is the ingestion job state machine's current state.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrorStage names the pipeline stage that failed an ingestion job.
type ErrorStage string

const (
	StageExtraction ErrorStage = "extraction"
	StageChunking   ErrorStage = "chunking"
	StageEmbedding  ErrorStage = "embedding"
	StageStorage    ErrorStage = "storage"
)

// UploadedFile is the metadata recorded for one file in an ingestion request.
type UploadedFile struct {
	Filename string
	MimeType string
	SizeBytes int64
}

// IngestionJob tracks one end-to-end run of extract->chunk->embed->persist.
type IngestionJob struct {
	IngestionID       ID
	DocumentID        ID
	Status            JobStatus
	Files             []UploadedFile
	ExtractedDocument *ExtractedDocument
	Chunks            []Chunk
	Embeddings        []Embedding
	Metrics           map[string]float64
	ErrorMessage      string
	ErrorStage        ErrorStage
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// ChunksCreated is the derived chunks_created field.
func (j *IngestionJob) ChunksCreated() int { return len(j.Chunks) }

// TotalDurationMS is the derived total_duration_ms field.
func (j *IngestionJob) TotalDurationMS(now time.Time) float64 {
	end := now
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return float64(end.Sub(j.CreatedAt).Milliseconds())
}

// ProgressPercent derives progress from status and recorded stage metrics,
// per the invariant: 0 in pending; base 25% + 20% per completed stage
// (capped at 99 while not completed); 100 on completed; >=50 on failed.
func (j *IngestionJob) ProgressPercent() int {
	switch j.Status {
	case JobPending:
		return 0
	case JobCompleted:
		return 100
	}

	progress := 25
	for _, stage := range []string{"extraction_duration_ms", "chunking_duration_ms", "storage_duration_ms", "embedding_duration_ms"} {
		if _, ok := j.Metrics[stage]; ok {
			progress += 20
		}
	}
	if progress > 99 {
		progress = 99
	}
	if j.Status == JobFailed && progress < 50 {
		progress = 50
	}
	return progress
}
