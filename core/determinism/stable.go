// Package determinism provides primitives for deterministic pipeline output:
// content fingerprints of the inputs and stable map iteration.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
)

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements Stringer
func (h ContentHash) String() string {
	return h.Hex()[:16] + "..."
}

// Fingerprint accumulates tabular content into one hash. Every cell is
// followed by a separator so ("ab","c") and ("a","bc") differ.
type Fingerprint struct {
	h hash.Hash
}

// NewFingerprint creates a fingerprint under a namespace
func NewFingerprint(namespace string) *Fingerprint {
	f := &Fingerprint{h: sha256.New()}
	f.h.Write([]byte(namespace))
	f.h.Write([]byte{0})
	return f
}

// Record adds one row of cells
func (f *Fingerprint) Record(cells ...string) {
	for _, c := range cells {
		f.h.Write([]byte(c))
		f.h.Write([]byte{0})
	}
	f.h.Write([]byte{1})
}

// Sum returns the hash of everything recorded so far
func (f *Fingerprint) Sum() ContentHash {
	var out ContentHash
	copy(out[:], f.h.Sum(nil))
	return out
}

// SortedKeys returns the keys of m in sorted order
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
