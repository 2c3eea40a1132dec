package ports

import (
	"context"
	"io"
	"time"

	"github.com/baditaflorin/glmkit/internal/core/domain"
)

// Sequencer streams a tokenised corpus and emits, for each requested
// Pattern, one split file per WordIndex bucket.
type Sequencer interface {
	Sequence(ctx context.Context, r io.Reader, idx domain.WordIndex, patterns []domain.Pattern) (SequenceReport, error)
}

// SequenceReport summarises one Sequencer pass.
type SequenceReport struct {
	LinesRead  int
	NGrams     int
	TokensSeen int
}

// Aggregator reduces the raw split files the Sequencer produced into the
// sorted, aggregated chunk store a Cache is built from.
//
// AggregateAbsolute reduces one (pattern, bucket) split file, counting
// occurrences of each key.
//
// AggregateContinuation derives Kneser-Ney continuation counts for a
// continuation pattern from the already-aggregated chunk store of
// absolute, the all-CNT pattern of the same window length pattern's
// continuation family was built from. It covers every bucket of
// absolute's store itself, since the continuation key's own bucket
// assignment does not in general line up with the absolute pattern's.
type Aggregator interface {
	AggregateAbsolute(ctx context.Context, pattern domain.Pattern, bucket int) error
	AggregateContinuation(ctx context.Context, pattern domain.Pattern, absolute domain.Pattern, idx domain.WordIndex) error
}

// ChunkStore reads and writes the on-disk chunked Pattern store.
type ChunkStore interface {
	WriteChunk(ctx context.Context, pattern domain.Pattern, bucket int, entries []ChunkEntry) error
	ReadChunk(ctx context.Context, pattern domain.Pattern, bucket int) ([]ChunkEntry, error)
	BucketPath(pattern domain.Pattern, bucket int) string
	SplitPath(pattern domain.Pattern, bucket int) string
	Buckets(pattern domain.Pattern) ([]int, error)
	SplitBuckets(pattern domain.Pattern) ([]int, error)

	// The four ModTime accessors back the pipeline driver's idempotence
	// check: an expected output is rebuilt only when its corresponding
	// input is newer than it (or the output is absent).
	SplitModTime(pattern domain.Pattern, bucket int) (time.Time, bool, error)
	ChunkModTime(pattern domain.Pattern, bucket int) (time.Time, bool, error)
	SplitDirModTime(pattern domain.Pattern) (time.Time, bool, error)
	PatternDirModTime(pattern domain.Pattern) (time.Time, bool, error)
}

// ChunkEntry is one sorted (sequence, count) row of a chunk file.
type ChunkEntry struct {
	Sequence string
	Count    domain.CountRecord
}

// Cache is the uniform, read-only lookup contract both estimators and
// the argmax executor build on.
type Cache interface {
	Get(pattern domain.Pattern, sequence string) (domain.CountRecord, bool)
}

// ScoreFunc scores a candidate completion for best-first search. It must
// be monotone non-increasing in trie depth and non-decreasing in count
// magnitude; the trie-backed Completions prunes on both assumptions and
// accepts no separate upper-bound oracle.
type ScoreFunc func(sequence string, count domain.CountRecord) float64

// CompletionCache additionally supports prefix enumeration ordered by a
// caller-supplied monotone score, backed by a completion trie.
type CompletionCache interface {
	Cache
	Completions(pattern domain.Pattern, prefix string, score ScoreFunc, k int) []Completion
}

// Completion is one ranked result of a prefix query.
type Completion struct {
	Sequence string
	Count    domain.CountRecord
	Score    float64
}

// ArgmaxExecutor resolves the highest-scoring completions of a history
// atop a CompletionCache and an estimator-provided score.
type ArgmaxExecutor interface {
	QueryArgmax(ctx context.Context, history string, prefix string, k int, score ScoreFunc) []Completion
}
