package cache

import (
	"context"

	"github.com/baditaflorin/glmkit/internal/adapters/mergeutil"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// bucketSource serves one already-sorted bucket chunk as a
// mergeutil.Source[ports.ChunkEntry]. newBucketSources reads every
// bucket chunk of a pattern into memory in full before the merge
// starts, so all of a pattern's rows are resident while a cache builds.
type bucketSource struct {
	entries []ports.ChunkEntry
	pos     int
}

func newBucketSources(ctx context.Context, st *store.Store, pattern domain.Pattern) ([]mergeutil.Source[ports.ChunkEntry], error) {
	buckets, err := st.Buckets(pattern)
	if err != nil {
		return nil, err
	}
	sources := make([]mergeutil.Source[ports.ChunkEntry], 0, len(buckets))
	for _, b := range buckets {
		entries, err := st.ReadChunk(ctx, pattern, b)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}
		bs := &bucketSource{entries: entries, pos: -1}
		if err := bs.Advance(); err != nil {
			return nil, err
		}
		sources = append(sources, bs)
	}
	return sources, nil
}

func (b *bucketSource) Key() string               { return b.entries[b.pos].Sequence }
func (b *bucketSource) Valid() bool                { return b.pos < len(b.entries) }
func (b *bucketSource) Current() ports.ChunkEntry  { return b.entries[b.pos] }

func (b *bucketSource) Advance() error {
	b.pos++
	return nil
}
