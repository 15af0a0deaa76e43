package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RepairKey returns the cache key for the repair of input (the raw request
// JSON) against the catalog identified by catalogHash, produced by engine
// version version. Changing any of the three yields a different key.
func RepairKey(input []byte, catalogHash, version string) string {
	return hashKey("repair", Hash(input), catalogHash, version)
}
