package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements the four-tier PDF pipeline: a fast native-text pass
// (tier 1), a layout-aware pass that keeps paragraph breaks (tier 2), an
// external AI extraction service (tier 3), and OCR (tier 4). Tiers 3 and 4
// are opt-in via Options; tiers 1 and 2 and auto-fallback are enabled by
// default.
type PDFExtractor struct {
	Language string

	// HTTPTier3 performs the tier-3 call; overridable in tests.
	HTTPTier3 func(ctx context.Context, apiKey string, data []byte, filename string) (*domain.ExtractedDocument, error)
}

var headingFontRatio = 1.15 // a run is a heading candidate if its font size exceeds the page median by this ratio

const (
	// pdfMinCharsPerPage is the literal ">50 characters" extractable-page
	// threshold: a sampled page only counts toward the extractability ratio
	// once it clears this bar.
	pdfMinCharsPerPage = 50
	// pdfScannedRatioThreshold below this extractability ratio, the document
	// is flagged scanned regardless of the tier-2 routing threshold.
	pdfScannedRatioThreshold = 0.3
	// tableColumnGapPoints separates distinct columns on the same visual row;
	// ordinary inter-word gaps run a few points, so a gap this wide signals a
	// column boundary rather than word spacing.
	tableColumnGapPoints = 20.0
	// tableColumnTolerancePoints buckets nearby column start positions
	// together when checking whether columns recur across rows.
	tableColumnTolerancePoints = 5.0
)

func (p PDFExtractor) Extract(ctx context.Context, filename string, data []byte, opts Options) (*domain.ExtractedDocument, error) {
	start := time.Now()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if isEncryptedErr(err) {
			if opts.Password == "" {
				return nil, newError(filename, ErrEncryptedFile, err.Error(), 422)
			}
			return nil, newError(filename, ErrInvalidPassword, err.Error(), 422)
		}
		return nil, newError(filename, ErrCorruptFile, err.Error(), 422)
	}

	analysis := preAnalyze(reader)

	lang := p.Language
	if lang == "" {
		lang = "en"
	}

	tier := recommendedTier(analysis, opts)
	order := tierOrder(tier, opts)

	var (
		doc     *domain.ExtractedDocument
		lastErr error
	)
	for _, t := range order {
		doc, lastErr = p.runTier(ctx, t, reader, data, filename, lang, opts)
		if lastErr == nil {
			doc.ExtractionMetadata["pdf_tier_used"] = t
			doc.ExtractionMetadata["pre_analysis"] = analysis
			doc.ExtractionDurationMS = float64(time.Since(start).Milliseconds())
			return doc, nil
		}
		if !opts.PDFAutoFallback {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no pdf tier enabled")
	}
	return nil, newError(filename, ErrAllTiersFailed, lastErr.Error(), 422)
}

type pdfPreAnalysis struct {
	PageCount           int     `json:"page_count"`
	HasText             bool    `json:"has_text"`
	HasTables           bool    `json:"has_tables_heuristic"`
	HasImages           bool    `json:"has_images"`
	ExtractabilityRatio float64 `json:"extractability_ratio"`
	AvgCharsPerPage     float64 `json:"avg_chars_per_page"`
	IsScanned           bool    `json:"is_scanned"`
}

// preAnalyze samples up to the first three pages to estimate how extractable
// the document is without paying for a full pass.
func preAnalyze(reader *pdf.Reader) pdfPreAnalysis {
	total := reader.NumPage()
	sample := total
	if sample > 3 {
		sample = 3
	}

	var (
		extractablePages int
		anyText          bool
		charSum          int
		hasImages        bool
		hasTables        bool
	)
	for i := 1; i <= sample; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		trimmed := strings.TrimSpace(text)
		charCount := len([]rune(trimmed))
		charSum += charCount
		if charCount > 0 {
			anyText = true
		}
		if charCount > pdfMinCharsPerPage {
			extractablePages++
		}
		if res, err := page.Resources(); err == nil && res.Key("XObject").Kind() != 0 {
			hasImages = true
		}
		if pageHasTables(page) {
			hasTables = true
		}
	}

	ratio := 0.0
	avgChars := 0.0
	if sample > 0 {
		ratio = float64(extractablePages) / float64(sample)
		avgChars = float64(charSum) / float64(sample)
	}

	return pdfPreAnalysis{
		PageCount:           total,
		HasText:             anyText,
		HasTables:           hasTables,
		HasImages:           hasImages,
		ExtractabilityRatio: ratio,
		AvgCharsPerPage:     avgChars,
		IsScanned:           ratio < pdfScannedRatioThreshold,
	}
}

// pageHasTables flags a page as table-like when it has several rows built
// from three or more distinct horizontal runs (candidate cells), and at
// least two of those column start positions recur across rows — plain
// multi-column prose rarely lines up the same way row after row, but a
// table's column boundaries do.
func pageHasTables(page pdf.Page) bool {
	content := page.Content()
	if len(content.Text) == 0 {
		return false
	}

	const yTolerance = 2.0
	rowX := map[int][]float64{}
	var keys []int
	for _, t := range content.Text {
		key := int(t.Y / yTolerance)
		if _, ok := rowX[key]; !ok {
			keys = append(keys, key)
		}
		rowX[key] = append(rowX[key], t.X)
	}

	columnRows := 0
	columnOccurrences := map[int]int{}
	for _, key := range keys {
		xs := append([]float64(nil), rowX[key]...)
		sort.Float64s(xs)

		columnStarts := []float64{xs[0]}
		for i := 1; i < len(xs); i++ {
			if xs[i]-xs[i-1] > tableColumnGapPoints {
				columnStarts = append(columnStarts, xs[i])
			}
		}
		if len(columnStarts) >= 3 {
			columnRows++
			for _, start := range columnStarts {
				columnOccurrences[int(start/tableColumnTolerancePoints)]++
			}
		}
	}
	if columnRows < 3 {
		return false
	}

	recurring := 0
	for _, count := range columnOccurrences {
		if count >= 3 {
			recurring++
		}
	}
	return recurring >= 2
}

// recommendedTier picks tier 4 (OCR) for scanned pages, tier 2 (layout-aware)
// for documents with detected tables or mixed content, or whose
// extractability falls below the configured threshold, and tier 1 otherwise.
func recommendedTier(a pdfPreAnalysis, opts Options) int {
	switch {
	case a.IsScanned:
		return 4
	case a.HasTables:
		return 2
	case a.ExtractabilityRatio < opts.PDFExtractabilityMin:
		return 2
	default:
		return 1
	}
}

// tierOrder builds the fallback sequence: the recommended tier first (if
// enabled), then the remaining enabled tiers in ascending cost order.
func tierOrder(recommended int, opts Options) []int {
	enabled := map[int]bool{
		1: opts.PDFTier1Enabled,
		2: opts.PDFTier2Enabled,
		3: opts.PDFTier3Enabled,
		4: opts.PDFTier4Enabled,
	}
	var order []int
	if enabled[recommended] {
		order = append(order, recommended)
	}
	for _, t := range []int{1, 2, 3, 4} {
		if t == recommended {
			continue
		}
		if enabled[t] {
			order = append(order, t)
		}
	}
	return order
}

func (p PDFExtractor) runTier(ctx context.Context, tier int, reader *pdf.Reader, data []byte, filename, lang string, opts Options) (*domain.ExtractedDocument, error) {
	switch tier {
	case 1:
		return extractNative(reader, filename, lang, false)
	case 2:
		return extractNative(reader, filename, lang, true)
	case 3:
		if p.HTTPTier3 == nil || opts.LlamaCloudAPIKey == "" {
			return nil, fmt.Errorf("tier 3 unavailable: no api key configured")
		}
		return p.HTTPTier3(ctx, opts.LlamaCloudAPIKey, data, filename)
	case 4:
		return extractOCR(ctx, data, filename, lang, opts)
	default:
		return nil, fmt.Errorf("unknown pdf tier %d", tier)
	}
}

// extractNative walks every page, ordering text lines by visual position and
// detecting section titles from font-size outliers. layoutAware preserves
// paragraph breaks (double newlines) instead of flattening to single lines.
func extractNative(reader *pdf.Reader, filename, lang string, layoutAware bool) (*domain.ExtractedDocument, error) {
	total := reader.NumPage()
	pages := make([]domain.ExtractedPage, 0, total)
	var hierarchy []domain.SectionHeading
	var lastSection string

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, emptyPage(i-1, lang))
			continue
		}

		rows := pdfRows(page)
		raw := renderRows(rows, layoutAware)
		title, level := detectHeading(rows)
		if title != "" {
			lastSection = title
			hierarchy = append(hierarchy, domain.SectionHeading{Level: level, Title: title})
		}

		normalized := Normalize(raw)
		pages = append(pages, domain.ExtractedPage{
			PageNumber:       i - 1,
			RawText:          raw,
			NormalizedText:   normalized,
			IsEmpty:          IsEmptyPage(normalized),
			WordCount:        CountWords(normalized),
			CharCount:        CountChars(normalized),
			LineCount:        CountLines(raw),
			Language:         lang,
			SectionTitle:     lastSection,
			SectionHierarchy: append([]domain.SectionHeading(nil), hierarchy...),
			ConfidenceScore:  nativeConfidence(rows, layoutAware),
		})
	}

	return &domain.ExtractedDocument{
		DocumentID:           domain.NewID(),
		Filename:             filename,
		Format:               domain.FormatPDF,
		Language:             lang,
		Pages:                pages,
		ExtractionMetadata:   map[string]any{},
		CreatedAt:            time.Now().UTC(),
	}, nil
}

func nativeConfidence(rows []pdfRow, layoutAware bool) float64 {
	if len(rows) == 0 {
		return 0.5
	}
	if layoutAware {
		return 0.85
	}
	return 0.9
}

func emptyPage(pageNumber int, lang string) domain.ExtractedPage {
	return domain.ExtractedPage{
		PageNumber:      pageNumber,
		IsEmpty:         true,
		Language:        lang,
		ConfidenceScore: 0,
	}
}

// pdfRow groups glyphs into a single visual line of text.
type pdfRow struct {
	Y        float64
	FontSize float64
	Text     string
}

// pdfRows groups a page's text runs into visually ordered rows by clustering
// Y coordinates within a small tolerance, then sorts rows top-to-bottom.
func pdfRows(page pdf.Page) []pdfRow {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	const yTolerance = 2.0
	buckets := map[int][]pdf.Text{}
	var keys []int
	for _, t := range content.Text {
		key := int(t.Y / yTolerance)
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	rows := make([]pdfRow, 0, len(keys))
	for _, key := range keys {
		texts := buckets[key]
		sort.Slice(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		var b strings.Builder
		var y, fontSum float64
		for i, t := range texts {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			y = t.Y
			fontSum += t.FontSize
		}
		rows = append(rows, pdfRow{Y: y, FontSize: fontSum / float64(len(texts)), Text: b.String()})
	}
	return rows
}

func renderRows(rows []pdfRow, layoutAware bool) string {
	var b strings.Builder
	for i, r := range rows {
		b.WriteString(r.Text)
		if layoutAware && i < len(rows)-1 && rowGapSuggestsParagraph(rows[i], rows[i+1]) {
			b.WriteString("\n\n")
		} else {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func rowGapSuggestsParagraph(a, b pdfRow) bool {
	return a.Y-b.Y > a.FontSize*1.6
}

var headingWordCount = regexp.MustCompile(`\s+`)

// detectHeading flags the page's first row as a heading when its font size
// is a clear outlier above the page median and it reads like a short title.
func detectHeading(rows []pdfRow) (title string, level int) {
	if len(rows) == 0 {
		return "", 0
	}
	sizes := make([]float64, len(rows))
	for i, r := range rows {
		sizes[i] = r.FontSize
	}
	median := medianOf(sizes)
	if median == 0 {
		return "", 0
	}

	first := rows[0]
	text := strings.TrimSpace(first.Text)
	wordCount := len(headingWordCount.Split(text, -1))
	if first.FontSize < median*headingFontRatio || len(text) < 3 || len(text) > 200 || wordCount > 20 {
		return "", 0
	}

	ratio := first.FontSize / median
	level = 1
	if ratio < 1.4 {
		level = 2
	}
	return text, level
}

func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func isEncryptedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

// extractOCR shells out once to the configured tesseract binary, passing the
// whole PDF on stdin and returning its output as a single page; a missing
// binary surfaces as an extraction error rather than a silent empty page.
func extractOCR(ctx context.Context, data []byte, filename, lang string, opts Options) (*domain.ExtractedDocument, error) {
	cmdName := opts.TesseractCmd
	if cmdName == "" {
		cmdName = "tesseract"
	}
	timeout := opts.PDFTier4Timeout
	if timeout <= 0 {
		timeout = 60
	}
	ocrLang := opts.PDFTier4Lang
	if ocrLang == "" {
		ocrLang = "eng"
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
	defer cancel()

	cmd := exec.CommandContext(runCtx, cmdName, "stdin", "stdout", "-l", ocrLang, "pdf")
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("ocr timed out after %.0fs: %w", timeout, err)
		}
		return nil, fmt.Errorf("ocr invocation failed: %w", err)
	}

	raw := out.String()
	normalized := Normalize(raw)
	page := domain.ExtractedPage{
		PageNumber:      0,
		RawText:         raw,
		NormalizedText:  normalized,
		IsEmpty:         IsEmptyPage(normalized),
		WordCount:       CountWords(normalized),
		CharCount:       CountChars(normalized),
		LineCount:       CountLines(raw),
		Language:        lang,
		ConfidenceScore: 0.6,
	}

	return &domain.ExtractedDocument{
		DocumentID:         domain.NewID(),
		Filename:           filename,
		Format:             domain.FormatPDF,
		Language:           lang,
		Pages:              []domain.ExtractedPage{page},
		ExtractionMetadata: map[string]any{"ocr_lang": ocrLang},
		CreatedAt:          time.Now().UTC(),
	}, nil
}
