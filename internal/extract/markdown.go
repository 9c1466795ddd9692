package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"gopkg.in/yaml.v3"
)

// MarkdownExtractor decodes UTF-8 markdown, peels off an optional leading
// frontmatter block, tracks fenced code blocks, and strips light markdown
// syntax from prose lines, producing a single page (page_number == 0).
type MarkdownExtractor struct {
	Language string
}

var (
	mdHeadingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdBulletRe    = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	mdBoldItalRe  = regexp.MustCompile(`\*{1,3}`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

func (m MarkdownExtractor) Extract(ctx context.Context, filename string, data []byte, _ Options) (*domain.ExtractedDocument, error) {
	start := time.Now()
	text := strings.ReplaceAll(strings.ReplaceAll(string(data), "\r\n", "\n"), "\r", "\n")

	frontmatter, body := splitFrontmatter(text)

	lang := m.Language
	if lang == "" {
		lang = "en"
	}

	lines := strings.Split(body, "\n")
	var (
		rawBuilder  strings.Builder
		normBuilder strings.Builder
		inCode      bool
		sectionTitle string
		hierarchy   []domain.SectionHeading
	)

	for _, line := range lines {
		rawBuilder.WriteString(line)
		rawBuilder.WriteByte('\n')

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			normBuilder.WriteString(line)
			normBuilder.WriteByte('\n')
			continue
		}
		if inCode {
			normBuilder.WriteString(line)
			normBuilder.WriteByte('\n')
			continue
		}

		if match := mdHeadingRe.FindStringSubmatch(line); match != nil {
			level := len(match[1])
			title := strings.TrimSpace(match[2])
			sectionTitle = title
			hierarchy = append(hierarchy, domain.SectionHeading{Level: level, Title: title})
			normBuilder.WriteString(title)
			normBuilder.WriteByte('\n')
			continue
		}

		cleaned := mdBulletRe.ReplaceAllString(line, "")
		cleaned = mdBoldItalRe.ReplaceAllString(cleaned, "")
		cleaned = mdLinkRe.ReplaceAllString(cleaned, "$1")
		normBuilder.WriteString(cleaned)
		normBuilder.WriteByte('\n')
	}

	normalized := Normalize(normBuilder.String())
	raw := rawBuilder.String()

	metadata := map[string]any{}
	if len(frontmatter) > 0 {
		parsed := map[string]any{}
		if err := yaml.Unmarshal([]byte(frontmatter), &parsed); err == nil {
			for k, v := range parsed {
				metadata[k] = v
			}
		}
	}
	if len(hierarchy) > 0 {
		metadata["section_hierarchy"] = hierarchy
	}

	page := domain.ExtractedPage{
		PageNumber:       0,
		RawText:          raw,
		NormalizedText:   normalized,
		IsEmpty:          IsEmptyPage(normalized),
		WordCount:        CountWords(normalized),
		CharCount:        CountChars(normalized),
		LineCount:        CountLines(raw),
		Language:         lang,
		SectionTitle:     sectionTitle,
		SectionHierarchy: hierarchy,
		ConfidenceScore:  1.0,
	}

	return &domain.ExtractedDocument{
		DocumentID:            domain.NewID(),
		Filename:              filename,
		Format:                domain.FormatMarkdown,
		Language:              lang,
		Pages:                 []domain.ExtractedPage{page},
		ExtractionMetadata:    metadata,
		ExtractionDurationMS: float64(time.Since(start).Milliseconds()),
		CreatedAt:             time.Now().UTC(),
	}, nil
}

// splitFrontmatter peels off a leading "---\n...\n---" YAML-like block.
func splitFrontmatter(text string) (frontmatter, body string) {
	if !strings.HasPrefix(text, "---\n") && text != "---" {
		return "", text
	}
	rest := strings.TrimPrefix(text, "---\n")
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", text
	}
	frontmatter = rest[:idx]
	afterMarker := rest[idx+len("\n---"):]
	afterMarker = strings.TrimPrefix(afterMarker, "\n")
	return frontmatter, afterMarker
}
