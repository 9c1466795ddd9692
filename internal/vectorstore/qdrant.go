package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/qdrant/go-client/qdrant"
)

// payloadChunkIDField recovers the original chunk id: Qdrant only accepts
// UUIDs or positive integers as point ids, so a non-UUID chunk id is mapped
// to a deterministic UUID and the original is carried in the payload.
const payloadChunkIDField = "_chunk_id"

type qdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int

	mu     sync.RWMutex
	hashes map[domain.ID]map[string]struct{} // local dedup index; Qdrant has no content-hash query path
}

// NewQdrantStore wires a Qdrant collection over gRPC (default port 6334).
// An API key can be passed as a DSN query parameter, e.g.
// "http://localhost:6334?api_key=...".
func NewQdrantStore(dsn, collection string, dimension int) (Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	q := &qdrantStore{client: client, collection: collection, dimension: dimension, hashes: make(map[domain.ID]map[string]struct{})}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return q, nil
}

func (q *qdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant collection requires dimension > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func pointIDFor(chunkID domain.ID) (pointID string, chunkIDPayload string) {
	s := chunkID.String()
	if _, err := uuid.Parse(s); err == nil {
		return s, ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s)).String(), s
}

func (q *qdrantStore) StoreEmbedding(ctx context.Context, emb *domain.Embedding) error {
	point, err := q.toPoint(emb)
	if err != nil {
		return err
	}
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: []*qdrant.PointStruct{point}})
	if err == nil {
		q.recordHash(emb)
	}
	return err
}

func (q *qdrantStore) StoreEmbeddingsBatch(ctx context.Context, embs []*domain.Embedding) error {
	points := make([]*qdrant.PointStruct, 0, len(embs))
	for _, emb := range embs {
		point, err := q.toPoint(emb)
		if err != nil {
			return err
		}
		points = append(points, point)
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: points})
	if err == nil {
		for _, emb := range embs {
			q.recordHash(emb)
		}
	}
	return err
}

func (q *qdrantStore) toPoint(emb *domain.Embedding) (*qdrant.PointStruct, error) {
	pointID, originalID := pointIDFor(emb.ChunkID)
	metadata, err := json.Marshal(emb.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal chunk metadata: %w", err)
	}
	payload := map[string]any{
		"document_id":             emb.DocumentID.String(),
		"content":                 emb.Content,
		"model":                   emb.EmbeddingModel,
		"dimension":               emb.EmbeddingDimension,
		"metadata":                string(metadata),
		"quality_score":           emb.QualityScore,
		"embedding_quality_score": emb.EmbeddingQualityScore,
		"created_at":              emb.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":              emb.UpdatedAt.Format(time.RFC3339Nano),
	}
	if originalID != "" {
		payload[payloadChunkIDField] = originalID
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID),
		Vectors: qdrant.NewVectorsDense(append([]float32(nil), emb.Vector...)),
		Payload: qdrant.NewValueMap(payload),
	}, nil
}

func (q *qdrantStore) recordHash(emb *domain.Embedding) {
	q.mu.Lock()
	defer q.mu.Unlock()
	set, ok := q.hashes[emb.DocumentID]
	if !ok {
		set = make(map[string]struct{})
		q.hashes[emb.DocumentID] = set
	}
	set[contentHash(emb.Content)] = struct{}{}
}

// SearchBySimilarity filters on document_id natively (it's a flat payload
// field) but metadata is stored as one opaque JSON string (see toPoint), so
// Qdrant's Filter/Condition mechanism can't push down the rest of filters —
// instead this overfetches and re-filters/re-ranks in Go via metadataMatches.
func (q *qdrantStore) SearchBySimilarity(ctx context.Context, documentID domain.ID, queryVector []float32, topK int, filters map[string]string) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 10
	}
	var filter *qdrant.Filter
	if !documentID.Empty() {
		filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID.String())}}
	}

	hasExtraFilters := false
	for key := range filters {
		if key != "document_id" {
			hasExtraFilters = true
			break
		}
	}
	queryLimit := topK
	if hasExtraFilters {
		// Overfetch generously; the extra filters are applied below in Go.
		queryLimit = topK * 10
		if queryLimit < 100 {
			queryLimit = 100
		}
	}
	limit := uint64(queryLimit)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(append([]float32(nil), queryVector...)),
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}
	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		rc, err := q.fromHitPayload(hit.Payload, hit.Id, float64(hit.Score), 0)
		if err != nil {
			return nil, err
		}
		if !metadataMatches(rc.Metadata, filters) {
			continue
		}
		if vecs := hit.GetVectors(); vecs != nil {
			if dense := vecs.GetVector(); dense != nil {
				rc.Vector = dense.GetData()
			}
		}
		out = append(out, rc)
		if len(out) == topK {
			break
		}
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (q *qdrantStore) SearchByDocument(ctx context.Context, documentID domain.ID, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 1000
	}
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collection,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID.String())}},
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll: %w", err)
	}
	out := make([]domain.RetrievedChunk, 0, len(points))
	for i, p := range points {
		rc, err := q.fromHitPayload(p.Payload, p.Id, 0, i+1)
		if err != nil {
			return nil, err
		}
		rc.RetrievalMethod = "document_scan"
		if vecs := p.GetVectors(); vecs != nil {
			if dense := vecs.GetVector(); dense != nil {
				rc.Vector = dense.GetData()
			}
		}
		out = append(out, rc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Metadata.ChunkIndex < out[j].Metadata.ChunkIndex })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (q *qdrantStore) fromHitPayload(payload map[string]*qdrant.Value, id *qdrant.PointId, score float64, rank int) (domain.RetrievedChunk, error) {
	chunkID := id.GetUuid()
	if original, ok := payload[payloadChunkIDField]; ok {
		chunkID = original.GetStringValue()
	}
	var metadata domain.ChunkMetadata
	if raw, ok := payload["metadata"]; ok {
		_ = json.Unmarshal([]byte(raw.GetStringValue()), &metadata)
	}
	quality := 0.0
	if v, ok := payload["embedding_quality_score"]; ok {
		quality = v.GetDoubleValue()
	}
	return domain.RetrievedChunk{
		ChunkID:         domain.ID(chunkID),
		Content:         payload["content"].GetStringValue(),
		SimilarityScore: score,
		Rank:            rank,
		RetrievalMethod: "vector",
		DocumentID:      domain.ID(payload["document_id"].GetStringValue()),
		Metadata:        metadata,
		QualityScore:    &quality,
		EmbeddingModel:  payload["model"].GetStringValue(),
	}, nil
}

func (q *qdrantStore) CheckDuplicateContent(_ context.Context, documentID domain.ID, content string) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	set, ok := q.hashes[documentID]
	if !ok {
		return false, nil
	}
	_, exists := set[contentHash(content)]
	return exists, nil
}

func (q *qdrantStore) Close() error { return q.client.Close() }
