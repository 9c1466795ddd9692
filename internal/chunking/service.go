package chunking

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of chunking one ExtractedDocument.
type Result struct {
	DocumentID        domain.ID
	Chunks            []domain.Chunk
	Config            Config
	ChunkingDurationMS float64
	QualityMetrics    map[string]any
}

// Service orchestrates chunking over every non-empty page of a document,
// dispatching to the configured strategy and enforcing min/max chunk size.
type Service struct {
	sliding   SlidingWindowChunker
	recursive RecursiveChunker
	log       logrus.FieldLogger
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger overrides the default logger (logrus's standard logger).
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(opts ...Option) *Service {
	s := &Service{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ChunkDocument(ctx context.Context, doc *domain.ExtractedDocument, cfg Config) (*Result, error) {
	start := time.Now()
	logger := s.log.WithField("document_id", doc.DocumentID.String()).WithField("strategy", string(cfg.Strategy))
	logger.Info("chunking_started")

	var chunks []domain.Chunk
	var emptyDiscarded int

	for _, page := range doc.Pages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if page.IsEmpty || page.NormalizedText == "" {
			continue
		}

		segments, err := s.split(page.NormalizedText, cfg)
		if err != nil {
			return nil, fmt.Errorf("chunk page %d: %w", page.PageNumber, err)
		}

		for _, seg := range segments {
			content := seg.Content
			end := seg.End
			if utf8.RuneCountInString(content) < cfg.MinChunkSizeChars {
				emptyDiscarded++
				continue
			}
			if len(content) > cfg.MaxChunkSizeChars {
				runes := []rune(content)
				if len(runes) > cfg.MaxChunkSizeChars {
					runes = runes[:cfg.MaxChunkSizeChars]
				}
				content = string(runes)
				end = seg.Start + len(runes)
			}

			meta := domain.ChunkMetadata{
				PageNumber:     page.PageNumber,
				PositionInPage: domain.Span{Start: seg.Start, End: end},
				SectionTitle:   page.SectionTitle,
				DocumentType:   string(doc.Format),
				SourceFilename: doc.Filename,
				Language:       firstNonEmpty(page.Language, doc.Language),
				ChunkIndex:     len(chunks),
			}
			chunks = append(chunks, newChunk(doc.DocumentID, content, meta))
		}
	}

	durationMS := float64(time.Since(start).Milliseconds())

	var totalChars, totalTokens int
	for _, c := range chunks {
		totalChars += c.CharCount
		totalTokens += c.TokenCount
	}
	avgChunkSize := 0.0
	if len(chunks) > 0 {
		avgChunkSize = float64(totalChars) / float64(len(chunks))
	}

	logger.WithField("total_chunks", len(chunks)).WithField("duration_ms", durationMS).Info("chunking_completed")

	return &Result{
		DocumentID:         doc.DocumentID,
		Chunks:             chunks,
		Config:             cfg,
		ChunkingDurationMS: durationMS,
		QualityMetrics: map[string]any{
			"avg_chunk_size_chars":         avgChunkSize,
			"total_tokens_across_chunks":   totalTokens,
			"total_chunks":                 len(chunks),
			"empty_chunks_discarded":       emptyDiscarded,
		},
	}, nil
}

func (s *Service) split(text string, cfg Config) ([]rawSegment, error) {
	switch cfg.Strategy {
	case StrategySlidingWindow:
		return s.sliding.Chunk(text, cfg.ChunkSizeChars, cfg.ChunkOverlapChars)
	case StrategyRecursive:
		return s.recursive.Chunk(text, cfg.ChunkSizeChars, cfg.Separators, cfg.KeepSeparator)
	default:
		return nil, fmt.Errorf("unsupported chunking strategy: %s", cfg.Strategy)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
