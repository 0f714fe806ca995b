package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey derives a stable object-key prefix from a user identity.
// Guest identities carry a colon, so the raw ID never appears in a
// storage path; 16 digest bytes keep keys short without collisions at
// this scale.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
