package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/chunking"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/intelligencedev/ragserve/internal/ingestion"
	"github.com/sirupsen/logrus"
)

// File-validation limits from section 6.
const (
	maxFileBytes      = 50 * 1024 * 1024
	maxFilesPerUpload = 10
	maxBatchBytes     = 500 * 1024 * 1024
)

var acceptedMimeTypes = map[string]bool{
	"application/pdf":   true,
	"text/plain":        true,
	"text/markdown":     true,
	"text/x-markdown":   true,
}

var acceptedExtensions = map[string]bool{
	".pdf": true, ".txt": true, ".md": true, ".markdown": true,
}

type ingestFileView struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

// ingestionResponse mirrors section 6's IngestionResponse.
type ingestionResponse struct {
	IngestionID     string            `json:"ingestion_id"`
	DocumentID      string            `json:"document_id"`
	Status          domain.JobStatus  `json:"status"`
	Files           []ingestFileView  `json:"files"`
	ChunksCreated   int               `json:"chunks_created"`
	ProgressPercent int               `json:"progress_percent"`
	ErrorStage      string            `json:"error_stage,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

func toIngestionResponse(job *domain.IngestionJob) ingestionResponse {
	files := make([]ingestFileView, 0, len(job.Files))
	for _, f := range job.Files {
		files = append(files, ingestFileView{Filename: f.Filename, MimeType: f.MimeType})
	}
	return ingestionResponse{
		IngestionID:     job.IngestionID.String(),
		DocumentID:      job.DocumentID.String(),
		Status:          job.Status,
		Files:           files,
		ChunksCreated:   job.ChunksCreated(),
		ProgressPercent: job.ProgressPercent(),
		ErrorStage:      string(job.ErrorStage),
		ErrorMessage:    job.ErrorMessage,
	}
}

// ingestHandler parses a multipart upload and hands it to the ingestion
// orchestrator; sync controls whether it waits for Run to finish (POST
// /ingest) or returns immediately after Submit (POST /api/ingest/upload).
type ingestHandler struct {
	orchestrator *ingestion.Orchestrator
	sync         bool
	log          logrus.FieldLogger
	extractOpts  extract.Options
	// queue, when set, dispatches accepted jobs to out-of-process workers
	// instead of running them in a goroutine of this process.
	queue ingestion.JobQueue
}

type parsedUpload struct {
	filename string
	mimeType string
	data     []byte
}

func (h *ingestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBatchBytes); err != nil {
		writeError(w, r, apierr.Wrap(apierr.KindFileValidation, "could not parse multipart upload", err))
		return
	}

	fileHeaders := r.MultipartForm.File["files[]"]
	if len(fileHeaders) == 0 {
		fileHeaders = r.MultipartForm.File["files"]
	}
	if len(fileHeaders) == 0 {
		writeError(w, r, apierr.New(apierr.KindFileValidation, "at least one file is required").WithField("files"))
		return
	}
	if len(fileHeaders) > maxFilesPerUpload {
		writeError(w, r, apierr.New(apierr.KindFileValidation, "too many files in one request (max 10)").WithField("files"))
		return
	}

	// Optional JSON string fields; malformed JSON is a file-validation error.
	if raw := r.FormValue("document_metadata"); raw != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindFileValidation, "document_metadata must be valid JSON", err))
			return
		}
	}
	var chunkCfg = chunking.DefaultConfig()
	var embedCfg = embedding.DefaultConfig()
	if raw := r.FormValue("ingestion_config"); raw != "" {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindFileValidation, "ingestion_config must be valid JSON", err))
			return
		}
	}

	var totalBytes int64
	uploads := make([]parsedUpload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > maxFileBytes {
			writeError(w, r, apierr.New(apierr.KindFileValidation, "file exceeds 50MiB limit").WithField("files"))
			return
		}
		totalBytes += fh.Size
		if totalBytes > maxBatchBytes {
			writeError(w, r, apierr.New(apierr.KindFileValidation, "batch exceeds 500MiB total limit").WithField("files"))
			return
		}

		mimeType := fh.Header.Get("Content-Type")
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !acceptedMimeTypes[mimeType] && !acceptedExtensions[ext] {
			writeError(w, r, apierr.New(apierr.KindFileValidation, "unsupported file type").WithField("files"))
			return
		}
		if mimeType == "" {
			mimeType = mime.TypeByExtension(ext)
		}

		f, err := fh.Open()
		if err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindFileValidation, "could not read uploaded file", err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindFileValidation, "could not read uploaded file", err))
			return
		}
		uploads = append(uploads, parsedUpload{filename: fh.Filename, mimeType: mimeType, data: data})
	}

	files := make([]domain.UploadedFile, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, domain.UploadedFile{Filename: u.filename, MimeType: u.mimeType, SizeBytes: int64(len(u.data))})
	}

	job, err := h.orchestrator.Submit(r.Context(), files)
	if err != nil {
		writeError(w, r, apierr.Wrap(apierr.KindInternal, "could not create ingestion job", err))
		return
	}

	// The orchestrator processes one document per job; the first accepted
	// file is the job's canonical document, matching the single-document
	// pipeline this service wraps.
	primary := uploads[0]
	extractOpts := h.extractOpts

	if h.sync {
		h.orchestrator.Run(r.Context(), job.IngestionID, primary.filename, primary.data, extractOpts, chunkCfg, embedCfg)
		final, err := h.orchestrator.Jobs.Get(r.Context(), job.IngestionID)
		if err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindInternal, "ingestion job vanished after run", err))
			return
		}
		writeJSON(w, r, http.StatusOK, toIngestionResponse(final))
		return
	}

	if h.queue != nil {
		if err := h.queue.Enqueue(r.Context(), job.IngestionID, primary.filename, primary.data); err != nil {
			writeError(w, r, apierr.Wrap(apierr.KindServiceUnavailable, "could not enqueue ingestion job", err))
			return
		}
		writeJSON(w, r, http.StatusAccepted, toIngestionResponse(job))
		return
	}

	bgCtx := context.WithoutCancel(r.Context())
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.WithField("panic", rec).Error("ingestion_run_panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(bgCtx, 10*time.Minute)
		defer cancel()
		h.orchestrator.Run(ctx, job.IngestionID, primary.filename, primary.data, extractOpts, chunkCfg, embedCfg)
	}()

	writeJSON(w, r, http.StatusAccepted, toIngestionResponse(job))
}

// ingestStatusHandler answers GET /api/ingest/status/{ingestion_id} and the
// orchestrated-job equivalent GET /ingest/status/{ingestion_id}.
type ingestStatusHandler struct {
	orchestrator *ingestion.Orchestrator
}

func (h *ingestStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path)
	if id == "" {
		writeError(w, r, apierr.New(apierr.KindBadRequest, "ingestion_id is required"))
		return
	}
	job, err := h.orchestrator.Jobs.Get(r.Context(), domain.ID(id))
	if err != nil {
		writeError(w, r, apierr.New(apierr.KindNotFound, "unknown ingestion_id"))
		return
	}
	writeJSON(w, r, http.StatusOK, toIngestionResponse(job))
}

// pathTail returns the final "/"-delimited segment of the request path.
func pathTail(p string) string {
	p = strings.TrimRight(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
