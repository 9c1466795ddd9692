// Package chunking splits an extracted document's pages into retrieval-sized
// units, using either a fixed sliding window or a boundary-aware recursive
// splitter, and scores each resulting chunk for retrieval quality.
package chunking

// Strategy selects which low-level splitter Service.Chunk uses.
type Strategy string

const (
	StrategySlidingWindow Strategy = "sliding_window"
	StrategyRecursive     Strategy = "recursive"
)

// Config controls both splitters; fields not used by a given strategy are
// ignored rather than rejected.
type Config struct {
	Strategy Strategy

	// Target size for both strategies; the overlap is sliding-window only.
	ChunkSizeChars    int
	ChunkOverlapChars int

	// Recursive only.
	Separators    []string
	KeepSeparator bool

	// Shared post-processing.
	MinChunkSizeChars int
	MaxChunkSizeChars int
}

// DefaultConfig mirrors the reference defaults: recursive splitting on
// paragraph/line/sentence/word boundaries, 2000-char target chunks with a
// 200-char sliding-window overlap, discarding anything under 10 chars and
// truncating anything over 8000.
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyRecursive,
		ChunkSizeChars:    2000,
		ChunkOverlapChars: 200,
		Separators:        []string{"\n\n", "\n", ".", " "},
		KeepSeparator:     false,
		MinChunkSizeChars: 10,
		MaxChunkSizeChars: 8000,
	}
}
