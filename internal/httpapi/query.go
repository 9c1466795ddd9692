package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/intelligencedev/ragserve/internal/apierr"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/query"
	"github.com/intelligencedev/ragserve/internal/trace"
)

type queryRequestBody struct {
	Query          string            `json:"query"`
	TopK           int               `json:"top_k"`
	Filters        map[string]string `json:"filters"`
	IncludeSources bool              `json:"include_sources"`
}

// queryHandler answers POST /api/query: full generation over the retrieved
// chunks.
type queryHandler struct {
	orchestrator   *query.Orchestrator
	timeoutSeconds float64
}

func (h *queryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apierr.Wrap(apierr.KindBadRequest, "malformed JSON body", err))
		return
	}
	if body.TopK == 0 {
		body.TopK = 10
	}

	traceID := trace.IDFromContext(r.Context())
	resp, err := h.orchestrator.Answer(r.Context(), traceID, query.Request{
		Query:          body.Query,
		TopK:           body.TopK,
		Filters:        body.Filters,
		IncludeSources: body.IncludeSources,
	}, h.timeoutSeconds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toQueryResponse(resp))
}

type citationView struct {
	Index           int     `json:"index"`
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	SourceFile      string  `json:"source_file"`
	Page            int     `json:"page"`
	SimilarityScore float64 `json:"similarity_score"`
	Preview         string  `json:"preview"`
}

type usedChunkView struct {
	ChunkID         string  `json:"chunk_id"`
	Rank            int     `json:"rank"`
	SimilarityScore float64 `json:"similarity_score"`
	Preview         string  `json:"preview"`
}

type queryMetadataView struct {
	TotalLatencyMS            float64 `json:"total_latency_ms"`
	EmbeddingLatencyMS        float64 `json:"embedding_latency_ms"`
	RetrievalLatencyMS        float64 `json:"retrieval_latency_ms"`
	PromptAssemblyLatencyMS   float64 `json:"prompt_assembly_latency_ms"`
	GenerationLatencyMS       float64 `json:"generation_latency_ms"`
	AnswerProcessingLatencyMS float64 `json:"answer_processing_latency_ms"`
	TotalTokensUsed           int     `json:"total_tokens_used"`
	Model                     string  `json:"model"`
	ChunksRetrieved           int     `json:"chunks_retrieved"`
}

type queryResponseView struct {
	QueryID    string          `json:"query_id"`
	Answer     string          `json:"answer"`
	Citations  []citationView  `json:"citations"`
	Warnings   []string        `json:"warnings"`
	UsedChunks []usedChunkView `json:"used_chunks"`
	Metadata   queryMetadataView `json:"metadata"`
}

func toQueryResponse(r *domain.QueryGenerationResponse) queryResponseView {
	citations := make([]citationView, 0, len(r.Citations))
	for _, c := range r.Citations {
		citations = append(citations, citationView{
			Index: c.Index, ChunkID: c.ChunkID.String(), DocumentID: c.DocumentID.String(),
			SourceFile: c.SourceFile, Page: c.Page, SimilarityScore: c.SimilarityScore, Preview: c.Preview,
		})
	}
	used := make([]usedChunkView, 0, len(r.UsedChunks))
	for _, u := range r.UsedChunks {
		used = append(used, usedChunkView{
			ChunkID: u.ChunkID.String(), Rank: u.Rank, SimilarityScore: u.SimilarityScore, Preview: u.Preview,
		})
	}
	return queryResponseView{
		QueryID:    r.QueryID.String(),
		Answer:     r.Answer,
		Citations:  citations,
		Warnings:   r.Warnings,
		UsedChunks: used,
		Metadata: queryMetadataView{
			TotalLatencyMS:            r.Metadata.TotalLatencyMS,
			EmbeddingLatencyMS:        r.Metadata.EmbeddingLatencyMS,
			RetrievalLatencyMS:        r.Metadata.RetrievalLatencyMS,
			PromptAssemblyLatencyMS:   r.Metadata.PromptAssemblyLatencyMS,
			GenerationLatencyMS:       r.Metadata.GenerationLatencyMS,
			AnswerProcessingLatencyMS: r.Metadata.AnswerProcessingLatencyMS,
			TotalTokensUsed:           r.Metadata.TotalTokensUsed,
			Model:                     r.Metadata.Model,
			ChunksRetrieved:           r.Metadata.ChunksRetrieved,
		},
	}
}

type retrievedChunkView struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
	Rank            int     `json:"rank"`
	RetrievalMethod string  `json:"retrieval_method"`
}

// retrievalResponse mirrors section 6's RetrievalResponse: the retrieved
// chunks plus retrieval metrics, with no generation performed.
type retrievalResponse struct {
	Chunks             []retrievedChunkView `json:"chunks"`
	RetrievalLatencyMS float64              `json:"retrieval_latency_ms"`
	EmbeddingCacheHit   bool                `json:"embedding_cache_hit"`
}

// retrieveHandler answers POST /retrieve: embed the query and run
// similarity search, skipping prompt assembly and generation entirely.
type retrieveHandler struct {
	embedder  *query.QueryEmbedder
	retriever *query.Retriever
}

func (h *retrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apierr.Wrap(apierr.KindBadRequest, "malformed JSON body", err))
		return
	}
	if body.TopK == 0 {
		body.TopK = 10
	}
	if err := query.ValidateRequest(query.Request{Query: body.Query, TopK: body.TopK}, nil); err != nil {
		writeError(w, r, err)
		return
	}

	vector, cacheHit, err := h.embedder.Embed(r.Context(), body.Query)
	if err != nil {
		writeError(w, r, query.MapGenerationError(err))
		return
	}
	chunks, latencyMS, err := h.retriever.Retrieve(r.Context(), vector, body.TopK, body.Filters)
	if err != nil {
		writeError(w, r, query.MapGenerationError(err))
		return
	}

	views := make([]retrievedChunkView, 0, len(chunks))
	for _, c := range chunks {
		views = append(views, retrievedChunkView{
			ChunkID: c.ChunkID.String(), DocumentID: c.DocumentID.String(), Content: c.Content,
			SimilarityScore: c.SimilarityScore, Rank: c.Rank, RetrievalMethod: c.RetrievalMethod,
		})
	}

	writeJSON(w, r, http.StatusOK, retrievalResponse{
		Chunks:             views,
		RetrievalLatencyMS: latencyMS,
		EmbeddingCacheHit:  cacheHit,
	})
}
