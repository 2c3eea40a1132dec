// Package aggregator reduces the raw per-bucket split files the
// sequencer package produces into the sorted, aggregated chunk store the
// cache package builds its lookups from.
package aggregator

import (
	"context"
	"sort"

	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// DefaultSpillThreshold bounds how many distinct keys an Aggregator
// holds in memory before spilling a sorted run to a temp file.
const DefaultSpillThreshold = 1_000_000

// Aggregator implements ports.Aggregator atop a chunked on-disk store.
type Aggregator struct {
	store          *store.Store
	hasher         ports.WordHasher
	logger         ports.Logger
	spillThreshold int
	tmpDir         string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSpillThreshold overrides DefaultSpillThreshold. A value of 0
// disables spilling, keeping every key resident until the pass ends.
func WithSpillThreshold(n int) Option {
	return func(a *Aggregator) { a.spillThreshold = n }
}

// WithTempDir overrides where spilled runs are created (default: the
// system temp directory).
func WithTempDir(dir string) Option {
	return func(a *Aggregator) { a.tmpDir = dir }
}

// New creates an Aggregator reading split files from and writing chunk
// files to st.
func New(st *store.Store, hasher ports.WordHasher, logger ports.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:          st,
		hasher:         hasher,
		logger:         logger,
		spillThreshold: DefaultSpillThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateAbsolute reduces the (pattern, bucket) split file into its
// sorted chunk of (sequence, absolute count) rows. A split file that
// does not exist (the pattern never occurred in that bucket) is a no-op.
func (a *Aggregator) AggregateAbsolute(ctx context.Context, pattern domain.Pattern, bucket int) error {
	lines, err := a.store.ReadSplitLines(pattern, bucket)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	c := newCounter(a.spillThreshold, a.tmpDir)
	for _, line := range lines {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.add(line); err != nil {
			return err
		}
	}
	pairs, err := c.finish()
	if err != nil {
		return err
	}

	entries := make([]ports.ChunkEntry, len(pairs))
	for i, kc := range pairs {
		entries[i] = ports.ChunkEntry{Sequence: kc.key, Count: domain.NewAbsolute(kc.count)}
	}
	if err := a.store.WriteChunk(ctx, pattern, bucket, entries); err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.Debug("aggregated absolute pattern",
			"pattern", pattern.String(),
			"bucket", bucket,
			"keys", len(entries),
		)
	}
	return nil
}

// continuationAccum tracks the witness statistics behind one
// continuation key: how many distinct absolute sequences reduce to it
// (N1Plus), classified by their own absolute count into N1/N2/N3Plus.
type continuationAccum struct {
	n1plus, n1, n2, n3plus uint64
	bucket                 int
}

// AggregateContinuation derives pattern's continuation counts from the
// already-aggregated chunk store of absolute, the all-CNT pattern of the
// same window length pattern's continuation family was built from. Every
// window absolute counted is one distinct witness for the key it reduces
// to under pattern; the witness's own absolute count buckets it into
// N1, N2, or N3Plus.
//
// The continuation key's bucket is not in general the absolute entry's
// bucket (the two patterns key their Sequencer pass on different word
// positions), so this walks every bucket of absolute's store rather than
// one bucket at a time.
func (a *Aggregator) AggregateContinuation(ctx context.Context, pattern domain.Pattern, absolute domain.Pattern, idx domain.WordIndex) error {
	if !pattern.IsContinuation() {
		return &domain.InvariantViolation{Detail: "aggregator: AggregateContinuation requires a continuation pattern"}
	}
	if !absolute.IsAbsolute() || absolute.Len() != pattern.Len() {
		return &domain.InvariantViolation{Detail: "aggregator: witnessing pattern must be absolute and the same length as pattern"}
	}
	for _, e := range absolute {
		if e == domain.DEL {
			return &domain.InvariantViolation{Detail: "aggregator: witnessing pattern must not contain DEL slots"}
		}
	}

	firstCNT := pattern.FirstCNT()
	buckets, err := a.store.Buckets(absolute)
	if err != nil {
		return err
	}

	acc := make(map[string]*continuationAccum)
	for _, b := range buckets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		entries, err := a.store.ReadChunk(ctx, absolute, b)
		if err != nil {
			return err
		}
		for _, e := range entries {
			words := domain.SplitKey(e.Sequence)
			contWords := make([]domain.Word, len(words))
			for i, w := range words {
				contWords[i] = domain.Word(w)
			}
			key := pattern.Apply(contWords, nil)

			entry, ok := acc[key]
			if !ok {
				bucket := 0
				if firstCNT >= 0 {
					bucket = domain.BucketIndex(a.hasher.Hash64(words[firstCNT]), idx.Buckets)
				}
				entry = &continuationAccum{bucket: bucket}
				acc[key] = entry
			}

			entry.n1plus++
			switch c := e.Count.Absolute; {
			case c == 1:
				entry.n1++
			case c == 2:
				entry.n2++
			default:
				entry.n3plus++
			}
		}
	}

	byBucket := make(map[int][]ports.ChunkEntry)
	for key, entry := range acc {
		cc := domain.ContinuationCounts{N1Plus: entry.n1plus, N1: entry.n1, N2: entry.n2, N3Plus: entry.n3plus}
		if err := cc.Validate(); err != nil {
			return &domain.InvariantViolation{Detail: err.Error()}
		}
		byBucket[entry.bucket] = append(byBucket[entry.bucket], ports.ChunkEntry{
			Sequence: key,
			Count:    domain.NewContinuation(cc),
		})
	}

	for bucket, entries := range byBucket {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
		if err := a.store.WriteChunk(ctx, pattern, bucket, entries); err != nil {
			return err
		}
	}
	if a.logger != nil {
		a.logger.Debug("aggregated continuation pattern",
			"pattern", pattern.String(),
			"absolute", absolute.String(),
			"keys", len(acc),
		)
	}
	return nil
}

var _ ports.Aggregator = (*Aggregator)(nil)
