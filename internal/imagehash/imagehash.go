// Package imagehash provides a deterministic content address for image references.
package imagehash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the sha256 hex digest of the reference string. Same reference
// always yields the same hash; it is the dedup key for ingestion.
//
// The hash is computed over the reference (URL) string, not the image bytes,
// so two URLs serving identical content are distinct records.
func Sum(reference string) string {
	h := sha256.Sum256([]byte(reference))
	return hex.EncodeToString(h[:])
}
