package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// AssetID computes the stable asset identifier for (contextID, key):
// the first 16 hex characters of SHA-256(contextID + ":" + key).
//
// Testable property (spec §8.1): id == substring(SHA-256(context_id+":"+key), 0, 16).
func AssetID(contextID, key string) string {
	sum := sha256.Sum256([]byte(contextID + ":" + key))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash computes the SHA-256 hex digest of content, used as the
// content-addressed key for blobs.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
