// Package determinism provides primitives for byte-identical outputs.
// A preview price and a persisted quote must agree, so anything that is
// hashed, listed or serialized goes through these helpers.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// HashJSON hashes the JSON encoding of v.
// encoding/json writes map keys sorted, so equal values hash equally.
func HashJSON(v any) (ContentHash, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ContentHash{}, err
	}
	return ComputeHash(data), nil
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements Stringer
func (h ContentHash) String() string {
	return h.Hex()[:16] + "..."
}

// IsZero reports whether the hash was never computed
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// SortedKeys returns the keys of m in ascending order
func SortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}

// RangeMapSorted iterates over a map in sorted key order
func RangeMapSorted[K comparable, V any](m map[K]V, fn func(K, V) bool) {
	for _, k := range SortedKeys(m) {
		if !fn(k, m[k]) {
			break
		}
	}
}
