package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
)

// sha256sum hashes chunk content for cheap exact-duplicate detection, the
// same role content hashing plays ahead of the vector write in the
// ingestion pipeline's duplicate-skip step.
func sha256sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
