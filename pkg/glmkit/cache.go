package glmkit

import (
	"context"
	"fmt"

	"github.com/baditaflorin/glmkit/internal/adapters/cache"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// Backing selects which in-memory representation a Cache loads a
// pattern's chunk store into.
type Backing int

const (
	// HashBacking loads a flat map, for exact-sequence lookups only.
	HashBacking Backing = iota
	// TrieBacking loads a completion trie, supporting both exact
	// lookups and ranked prefix queries via Query.
	TrieBacking
)

// Cache is an in-memory view of selected Pattern stores, built from a
// Builder's (or any other writer's) working directory.
type Cache struct {
	backing    ports.Cache
	completion ports.CompletionCache // nil unless backing is TrieBacking
}

// NewCache returns an empty Cache of the given Backing; call Load once
// per pattern label to populate it.
func NewCache(backing Backing) *Cache {
	if backing == TrieBacking {
		tc := cache.NewTrieCache()
		return &Cache{backing: tc, completion: tc}
	}
	return &Cache{backing: cache.NewHashCache()}
}

// Load reads every bucket chunk of the pattern named by label from st
// into the cache, replacing any prior data loaded for that pattern.
func (c *Cache) Load(ctx context.Context, st *store.Store, label string) error {
	p, err := domain.ParsePattern(label)
	if err != nil {
		return err
	}
	switch b := c.backing.(type) {
	case interface {
		Load(context.Context, *store.Store, domain.Pattern) error
	}:
		return b.Load(ctx, st, p)
	default:
		return fmt.Errorf("glmkit: cache backing %T does not support Load", c.backing)
	}
}

// Get looks up sequence under the pattern named by label.
func (c *Cache) Get(label, sequence string) (domain.CountRecord, bool, error) {
	p, err := domain.ParsePattern(label)
	if err != nil {
		return domain.CountRecord{}, false, err
	}
	rec, ok := c.backing.Get(p, sequence)
	return rec, ok, nil
}
