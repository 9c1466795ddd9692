package extract

import "strings"

// Normalize removes C0 control characters (except tab/newline/CR), folds
// CRLF/CR to LF, collapses intra-line runs of spaces/tabs, trims each line,
// and drops lines that become empty, while preserving paragraph structure.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	folded := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)

	lines := strings.Split(folded, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := stripControl(line)
		cleaned = collapseSpaces(cleaned)
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return strings.Join(out, "\n")
}

func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t'
		if isSpace {
			if lastWasSpace {
				continue
			}
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
		lastWasSpace = isSpace
	}
	return b.String()
}

// IsEmptyPage reports whether normalized text should be treated as an empty
// page: whitespace-only, or fewer than three tokens.
func IsEmptyPage(normalized string) bool {
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return true
	}
	return len(strings.Fields(trimmed)) < 3
}

// CountWords, CountChars, CountLines back the ExtractedPage metrics.
func CountWords(s string) int { return len(strings.Fields(s)) }
func CountChars(s string) int { return len([]rune(s)) }
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
