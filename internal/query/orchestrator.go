package query

import (
	"context"
	"regexp"
	"time"

	"github.com/intelligencedev/ragserve/internal/analytics"
	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/debugstore"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/llm"
	"github.com/sirupsen/logrus"
)

// minStageSeconds is the "at least N seconds remain before each stage"
// budget asserted by TimeoutManager ahead of every stage, per section 5.
const minStageSeconds = 1.0

// Orchestrator sequences the six query stages under one global deadline:
// validate -> embed -> retrieve -> assemble prompt -> generate ->
// post-process, per section 4.6.
type Orchestrator struct {
	Embedder     *QueryEmbedder
	Retriever    *Retriever
	Assembler    *PromptAssembler
	LLM          llm.Client
	Processor    *AnswerProcessor
	Artifacts    *debugstore.Logger
	Analytics    analytics.Sink
	Forbidden    []*regexp.Regexp
	Log          logrus.FieldLogger
	Model        string
	ResponseBudget int
}

func NewOrchestrator(embedder *QueryEmbedder, retriever *Retriever, llmClient llm.Client, artifacts *debugstore.Logger, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		Embedder:       embedder,
		Retriever:      retriever,
		Assembler:      NewPromptAssembler(),
		LLM:            llmClient,
		Processor:      NewAnswerProcessor(),
		Artifacts:      artifacts,
		Analytics:      analytics.NoopSink{},
		Log:            log,
		Model:          "gpt-4o-mini",
		ResponseBudget: 1024,
	}
}

// Answer runs one query through all six stages, enforcing timeoutSeconds as
// the global deadline (clamped to [1,120]s by TimeoutManager).
func (o *Orchestrator) Answer(ctx context.Context, traceID string, req Request, timeoutSeconds float64) (*domain.QueryGenerationResponse, error) {
	tm := NewTimeoutManager(timeoutSeconds)
	stagesCompleted := 0
	log := o.Log.WithField("trace_id", traceID)

	o.logArtifact(ctx, traceID, domain.ArtifactQuery, map[string]any{
		"query": req.Query, "top_k": req.TopK, "filters": req.Filters,
	})

	// Stage 1: validate.
	if err := tm.AssertTimeAvailable(minStageSeconds, "validate", stagesCompleted); err != nil {
		return nil, err
	}
	if err := ValidateRequest(req, o.Forbidden); err != nil {
		return nil, err
	}
	stagesCompleted++

	// Stage 2: embed query.
	if err := tm.AssertTimeAvailable(minStageSeconds, "embed", stagesCompleted); err != nil {
		return nil, err
	}
	embedStart := time.Now()
	queryVector, cacheHit, err := o.Embedder.Embed(ctx, req.Query)
	embedLatencyMS := float64(time.Since(embedStart).Milliseconds())
	if err != nil {
		return nil, MapGenerationError(err)
	}
	tm.LogStageTiming("embedding", embedLatencyMS)
	stagesCompleted++

	// Stage 3: retrieve.
	if err := tm.AssertTimeAvailable(minStageSeconds, "retrieve", stagesCompleted); err != nil {
		return nil, err
	}
	chunks, retrievalLatencyMS, err := o.Retriever.Retrieve(ctx, queryVector, req.TopK, req.Filters)
	if err != nil {
		return nil, MapGenerationError(err)
	}
	tm.LogStageTiming("retrieval", retrievalLatencyMS)
	stagesCompleted++

	o.logArtifact(ctx, traceID, domain.ArtifactRetrievedChunks, map[string]any{
		"count": len(chunks), "chunks": summarizeChunks(chunks),
	})

	// Stage 4: assemble prompt.
	if err := tm.AssertTimeAvailable(minStageSeconds, "prompt", stagesCompleted); err != nil {
		return nil, err
	}
	prompt, usedChunks, err := o.Assembler.ConstructPrompt(req.Query, chunks, o.Model, o.ResponseBudget)
	if err != nil {
		return nil, err
	}
	tm.LogStageTiming("prompt_assembly", prompt.AssemblyLatencyMS)
	stagesCompleted++

	o.logArtifact(ctx, traceID, domain.ArtifactPrompt, map[string]any{
		"system_message": prompt.SystemMessage,
		"user_message":   prompt.UserMessage,
		"citation_count": len(prompt.CitationMap),
	})

	// Stage 5: generate.
	if err := tm.AssertTimeAvailable(minStageSeconds, "generate", stagesCompleted); err != nil {
		return nil, err
	}
	result, err := o.LLM.Generate(ctx, llm.Request{
		SystemMessage: prompt.SystemMessage,
		UserMessage:   prompt.UserMessage,
		MaxTokens:     o.ResponseBudget,
	})
	if err != nil {
		return nil, MapGenerationError(err)
	}
	tm.LogStageTiming("generation", result.LatencyMS)
	stagesCompleted++

	o.logArtifact(ctx, traceID, domain.ArtifactAnswer, map[string]any{
		"raw_output": result.Content, "model": result.Model, "finish_reason": result.FinishReason,
	})

	// Stage 6: post-process answer.
	if err := tm.AssertTimeAvailable(minStageSeconds, "postprocess", stagesCompleted); err != nil {
		return nil, err
	}
	postStart := time.Now()
	answer, citations, usedChunkRecords, warnings := o.Processor.Process(result.Content, prompt.CitationMap, usedChunks)
	postLatencyMS := float64(time.Since(postStart).Milliseconds())
	tm.LogStageTiming("answer_processing", postLatencyMS)

	response := &domain.QueryGenerationResponse{
		QueryID:    domain.NewID(),
		Answer:     answer,
		Citations:  citations,
		Warnings:   warnings,
		UsedChunks: usedChunkRecords,
		Metadata: domain.QueryGenerationMetadata{
			TotalLatencyMS:            tm.ElapsedMS(),
			EmbeddingLatencyMS:        embedLatencyMS,
			RetrievalLatencyMS:        retrievalLatencyMS,
			PromptAssemblyLatencyMS:   prompt.AssemblyLatencyMS,
			GenerationLatencyMS:       result.LatencyMS,
			AnswerProcessingLatencyMS: postLatencyMS,
			TotalTokensUsed:           result.TotalTokens,
			Model:                     result.Model,
			ChunksRetrieved:           len(chunks),
		},
	}

	o.logArtifact(ctx, traceID, domain.ArtifactResponse, map[string]any{
		"answer_length": len(answer), "citation_count": len(citations), "warning_count": len(warnings),
	})

	log.WithField("embedding_cache_hit", cacheHit).
		WithField("total_latency_ms", response.Metadata.TotalLatencyMS).
		WithField("chunks_retrieved", response.Metadata.ChunksRetrieved).
		Info("query_completed")

	if o.Analytics != nil {
		if err := o.Analytics.RecordQuery(ctx, traceID, response.Metadata); err != nil {
			log.WithError(err).Warn("analytics_record_failed")
		}
	}

	return response, nil
}

func (o *Orchestrator) logArtifact(ctx context.Context, traceID string, artifactType domain.DebugArtifactType, data map[string]any) {
	if o.Artifacts == nil {
		return
	}
	o.Artifacts.Log(ctx, traceID, artifactType, data)
}

func summarizeChunks(chunks []domain.RetrievedChunk) []map[string]any {
	out := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, map[string]any{
			"chunk_id":         c.ChunkID.String(),
			"similarity_score": c.SimilarityScore,
			"rank":             c.Rank,
			"chunk_content":    c.Content,
		})
	}
	return out
}

// ValidationErrorOf is a convenience for callers that need to distinguish a
// validation apierr.Error from anything else without importing apierr at
// every call site.
func ValidationErrorOf(err error) (*apierr.Error, bool) {
	e, ok := apierr.As(err)
	if !ok || e.Kind != apierr.KindValidation {
		return nil, false
	}
	return e, true
}
