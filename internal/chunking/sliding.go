package chunking

import (
	"fmt"
	"strings"
)

// SlidingWindowChunker splits text into fixed-size, overlapping windows in
// character (rune) space, discarding windows that are pure whitespace.
type SlidingWindowChunker struct{}

func (SlidingWindowChunker) Chunk(text string, chunkSize, overlap int) ([]rawSegment, error) {
	if text == "" || chunkSize <= 0 {
		return nil, nil
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0")
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be < chunk_size")
	}

	runes := []rune(text)
	total := len(runes)
	step := chunkSize - overlap

	var segments []rawSegment
	for start := 0; start < total; start += step {
		end := start + chunkSize
		if end > total {
			end = total
		}
		content := string(runes[start:end])
		if strings.TrimSpace(content) != "" {
			segments = append(segments, rawSegment{Content: content, Start: start, End: end})
		}
	}
	return segments, nil
}
