package extract

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// Extractor converts raw file bytes into a normalized ExtractedDocument.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte, opts Options) (*domain.ExtractedDocument, error)
}

// Options carries the knobs every extractor reads from, translated from the
// PDF_TIER{1..4}_ENABLED / PDF_AUTO_FALLBACK / password environment knobs.
type Options struct {
	Password            string
	PDFTier1Enabled      bool
	PDFTier2Enabled      bool
	PDFTier3Enabled      bool
	PDFTier4Enabled      bool
	PDFAutoFallback      bool
	PDFExtractabilityMin float64
	PDFTier4Timeout      float64 // seconds
	PDFTier4DPI          int
	PDFTier4Lang         string
	LlamaCloudAPIKey     string
	TesseractCmd         string
}

// DefaultOptions mirrors the reference defaults for the PDF tier routing
// knobs (tiers 1 and 2 on, auto-fallback on, 0.3 extractability threshold).
func DefaultOptions() Options {
	return Options{
		PDFTier1Enabled:      true,
		PDFTier2Enabled:      true,
		PDFTier3Enabled:      false,
		PDFTier4Enabled:      false,
		PDFAutoFallback:      true,
		PDFExtractabilityMin: 0.3,
		PDFTier4Timeout:      60,
		PDFTier4DPI:          300,
		PDFTier4Lang:         "eng",
	}
}

// Detector routes raw bytes to the right Extractor by file signature first,
// falling back to file extension.
type Detector struct {
	txt      Extractor
	markdown Extractor
	pdf      Extractor
}

// NewDetector wires the three format extractors.
func NewDetector(txt, markdown, pdf Extractor) *Detector {
	return &Detector{txt: txt, markdown: markdown, pdf: pdf}
}

var pdfSignature = []byte("%PDF")

// Detect chooses an extractor for the given filename/bytes, or returns an
// unsupported_format error.
func (d *Detector) Detect(filename string, data []byte) (Extractor, *Error) {
	if bytes.HasPrefix(data, pdfSignature) {
		return d.pdf, nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return d.pdf, nil
	case ".txt":
		return d.txt, nil
	case ".md":
		return d.markdown, nil
	}
	return nil, newError(filename, ErrUnsupportedFormat, "file signature and extension did not match pdf, txt, or md", 400)
}

// Extract detects and delegates to the matching extractor.
func (d *Detector) Extract(ctx context.Context, filename string, data []byte, opts Options) (*domain.ExtractedDocument, error) {
	ex, detErr := d.Detect(filename, data)
	if detErr != nil {
		return nil, detErr
	}
	return ex.Extract(ctx, filename, data, opts)
}
