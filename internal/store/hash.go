package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeContentHash returns the hex SHA-256 of a file's contents. Scans
// compare it with the stored hash to skip unchanged files.
func ComputeContentHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
