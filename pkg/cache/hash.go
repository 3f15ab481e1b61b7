package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a namespaced cache key from the given parts, in the form
// prefix:sha256(json(parts)). Hashing the JSON form keeps keys a fixed
// length regardless of how many render options feed into them.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash returns the sha256 content hash of data as a 64-character hex
// string. It identifies a document's exact bytes for artifact keying, so
// any edit to the document invalidates its cached renders.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
