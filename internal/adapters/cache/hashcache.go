// Package cache implements the two Cache backings the built pattern
// store can be loaded into: a flat hash map for exact-sequence lookups,
// and a completion trie for ranked prefix queries.
package cache

import (
	"context"

	"github.com/baditaflorin/glmkit/internal/adapters/mergeutil"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// HashCache is a ports.Cache backed by one map[string]CountRecord per
// loaded pattern. Cheaper to build and query than TrieCache when an
// estimator only ever needs exact-sequence lookups (no completions).
type HashCache struct {
	patterns map[string]map[string]domain.CountRecord
}

// NewHashCache returns an empty HashCache; call Load to populate it.
func NewHashCache() *HashCache {
	return &HashCache{patterns: make(map[string]map[string]domain.CountRecord)}
}

// Load reads every bucket chunk of pattern from st and merges them into
// the cache, replacing any prior data loaded for the same pattern.
func (h *HashCache) Load(ctx context.Context, st *store.Store, pattern domain.Pattern) error {
	sources, err := newBucketSources(ctx, st, pattern)
	if err != nil {
		return err
	}
	table := make(map[string]domain.CountRecord)
	merger := mergeutil.NewMerger(sources)
	for merger.Len() > 0 {
		key, entry := merger.Peek()
		if _, dup := table[key]; dup {
			return &domain.InvariantViolation{Detail: "cache: duplicate key " + key + " across buckets of pattern " + pattern.String()}
		}
		table[key] = entry.Count
		if err := merger.Advance(); err != nil {
			return err
		}
	}
	h.patterns[pattern.Label()] = table
	return nil
}

// Get implements ports.Cache.
func (h *HashCache) Get(pattern domain.Pattern, sequence string) (domain.CountRecord, bool) {
	table, ok := h.patterns[pattern.Label()]
	if !ok {
		return domain.CountRecord{}, false
	}
	rec, ok := table[sequence]
	return rec, ok
}

var _ ports.Cache = (*HashCache)(nil)
