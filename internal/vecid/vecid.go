// Package vecid derives stable vector IDs from listing IDs.
package vecid

import (
	"crypto/sha256"
	"encoding/binary"
)

// VectorID returns the vector ID under which the listing's embedding is stored.
// It is a pure function of the listing ID (first 8 bytes of the sha256 digest,
// masked into the non-negative int63 range), so the same listing maps to the
// same vector ID across restarts, rebuilds, and incremental adds.
//
// Two distinct listing IDs can collide; the scheme does not detect or resolve
// that. Changing it would invalidate every persisted snapshot, so it stays as
// is and collisions are handled downstream by de-duplicating search results.
func VectorID(listingID string) int64 {
	sum := sha256.Sum256([]byte(listingID))
	return int64(binary.BigEndian.Uint64(sum[:8]) & 0x7fffffffffffffff)
}
