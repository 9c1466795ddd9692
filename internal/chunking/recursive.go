package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RecursiveChunker splits text on the first separator that actually occurs,
// preferring paragraph breaks over lines, sentences, and finally words,
// falling back to a hard character split when no separator helps. Offsets
// are rune offsets into the original page text.
type RecursiveChunker struct{}

func (r RecursiveChunker) Chunk(text string, chunkSize int, separators []string, keepSeparator bool) ([]rawSegment, error) {
	if text == "" {
		return nil, nil
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be > 0")
	}
	if len(separators) == 0 {
		separators = []string{"\n\n", "\n", ".", " "}
	}
	return r.split(text, separators, chunkSize, keepSeparator, 0), nil
}

func (r RecursiveChunker) split(text string, separators []string, chunkSize int, keepSeparator bool, offset int) []rawSegment {
	length := utf8.RuneCountInString(text)

	if len(separators) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		runes := []rune(text)
		var segments []rawSegment
		for start := 0; start < length; {
			end := start + chunkSize
			if end > length {
				end = length
			}
			segment := string(runes[start:end])
			if strings.TrimSpace(segment) != "" {
				segments = append(segments, rawSegment{Content: segment, Start: offset + start, End: offset + end})
			}
			start = end
		}
		return segments
	}

	if length <= chunkSize && !strings.Contains(text, separators[0]) {
		return r.split(text, separators[1:], chunkSize, keepSeparator, offset)
	}

	currentSep := separators[0]
	remaining := separators[1:]

	if currentSep != "" && !strings.Contains(text, currentSep) {
		return r.split(text, remaining, chunkSize, keepSeparator, offset)
	}

	parts := strings.Split(text, currentSep)
	if len(parts) == 1 {
		return r.split(text, remaining, chunkSize, keepSeparator, offset)
	}

	var segments []rawSegment
	runningOffset := offset

	for i, part := range parts {
		isLast := i == len(parts)-1
		if part == "" && isLast {
			break
		}

		segment := part
		// Sentence boundaries always keep their period attached to the
		// preceding chunk so chunks end on punctuation, not mid-word.
		attachSeparator := keepSeparator || currentSep == "."
		if attachSeparator && !isLast {
			segment = part + currentSep
		}

		segLen := utf8.RuneCountInString(segment)
		if segLen == 0 {
			partLen := utf8.RuneCountInString(part)
			sepLen := 0
			if !isLast {
				sepLen = utf8.RuneCountInString(currentSep)
			}
			runningOffset += partLen + sepLen
			continue
		}

		if segLen > chunkSize {
			segments = append(segments, r.split(segment, remaining, chunkSize, keepSeparator, runningOffset)...)
		} else if strings.TrimSpace(segment) != "" {
			segments = append(segments, rawSegment{Content: segment, Start: runningOffset, End: runningOffset + segLen})
		}

		runningOffset += segLen
		if !attachSeparator && !isLast {
			runningOffset += utf8.RuneCountInString(currentSep)
		}
	}

	return segments
}
