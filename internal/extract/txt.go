package extract

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/intelligencedev/ragserve/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// TXTExtractor decodes UTF-8 with a Latin-1 fallback, and finally drops
// invalid bytes, splitting the result into pages of exactly 50 lines.
type TXTExtractor struct {
	Language string // document-level language override; defaults to "en"
}

const txtPageSize = 50

func (t TXTExtractor) Extract(ctx context.Context, filename string, data []byte, _ Options) (*domain.ExtractedDocument, error) {
	start := time.Now()
	text := decodeText(data)

	lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n"), "\n")

	lang := t.Language
	if lang == "" {
		lang = "en"
	}

	var pages []domain.ExtractedPage
	for i := 0; i < len(lines); i += txtPageSize {
		end := i + txtPageSize
		if end > len(lines) {
			end = len(lines)
		}
		raw := strings.Join(lines[i:end], "\n")
		pages = append(pages, buildPage(len(pages), raw, lang))
	}
	if len(pages) == 0 {
		pages = append(pages, buildPage(0, "", lang))
	}

	return &domain.ExtractedDocument{
		DocumentID:            domain.NewID(),
		Filename:              filename,
		Format:                domain.FormatTXT,
		Language:              lang,
		Pages:                 pages,
		ExtractionMetadata:    map[string]any{"decoding": textDecoding(data)},
		ExtractionDurationMS: float64(time.Since(start).Milliseconds()),
		CreatedAt:             time.Now().UTC(),
	}, nil
}

func buildPage(pageNumber int, raw, language string) domain.ExtractedPage {
	normalized := Normalize(raw)
	return domain.ExtractedPage{
		PageNumber:      pageNumber,
		RawText:         raw,
		NormalizedText:  normalized,
		IsEmpty:         IsEmptyPage(normalized),
		WordCount:       CountWords(normalized),
		CharCount:       CountChars(normalized),
		LineCount:       CountLines(raw),
		Language:        language,
		ConfidenceScore: 1.0,
	}
}

// decodeText implements the UTF-8 -> Latin-1 -> UTF-8-ignore decoding chain.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(data), "")
}

func textDecoding(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	if _, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return "latin-1"
	}
	return "utf-8-ignore"
}
