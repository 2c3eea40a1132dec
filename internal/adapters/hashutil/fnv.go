// Package hashutil provides the stable word hash used to assign bucket
// membership in a WordIndex: FNV-1a 64-bit over the word's UTF-8 bytes,
// wrapped behind ports.WordHasher so the algorithm can be swapped
// without touching callers.
package hashutil

import (
	"hash/fnv"

	"github.com/baditaflorin/glmkit/internal/ports"
)

// FNV1a64 hashes words with the standard library's 64-bit FNV-1a.
type FNV1a64 struct{}

// NewFNV1a64 returns the default WordHasher.
func NewFNV1a64() ports.WordHasher { return FNV1a64{} }

// Hash64 implements ports.WordHasher.
func (FNV1a64) Hash64(word string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	return h.Sum64()
}
