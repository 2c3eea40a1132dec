// Package glmkit is the public façade over the counting pipeline: a
// Builder that drives a corpus into a pattern store, a Cache that loads
// a built store into memory, and a Query that answers top-k completion
// requests atop a loaded Cache — mirroring the teacher's pkg re-export
// layer (functional-option config structs, a New constructor applying
// defaults then options, a small struct of resolved ports).
package glmkit

import (
	"context"

	"github.com/baditaflorin/glmkit/internal/adapters/aggregator"
	"github.com/baditaflorin/glmkit/internal/adapters/hashutil"
	"github.com/baditaflorin/glmkit/internal/adapters/logger"
	"github.com/baditaflorin/glmkit/internal/adapters/sequencer"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/pipeline"
	"github.com/baditaflorin/glmkit/internal/ports"
	"github.com/baditaflorin/l"
)

// Builder drives a corpus into a working directory's pattern store.
type Builder struct {
	driver *pipeline.Driver
	store  *store.Store
	hasher ports.WordHasher
	logger ports.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

type builderConfig struct {
	Buckets         int
	Workers         int
	SentenceMarkers bool
	SpillThreshold  int
	TempDir         string
	Logger          ports.Logger
	LogToConsole    bool
}

// WithBuckets sets the WordIndex bucket count used the first time a
// corpus is built under a given working directory.
func WithBuckets(n int) BuilderOption {
	return func(cfg *builderConfig) { cfg.Buckets = n }
}

// WithWorkers sets the Aggregator worker-pool size.
func WithWorkers(n int) BuilderOption {
	return func(cfg *builderConfig) { cfg.Workers = n }
}

// WithSentenceMarkers enables sentence-boundary markers; must match the
// setting any query sub-cache built against the same corpus used.
func WithSentenceMarkers(enabled bool) BuilderOption {
	return func(cfg *builderConfig) { cfg.SentenceMarkers = enabled }
}

// WithSpillThreshold overrides the Aggregator's in-memory key budget
// before it spills a sorted run to a temp file.
func WithSpillThreshold(n int) BuilderOption {
	return func(cfg *builderConfig) { cfg.SpillThreshold = n }
}

// WithTempDir overrides where the Aggregator creates spilled run files.
func WithTempDir(dir string) BuilderOption {
	return func(cfg *builderConfig) { cfg.TempDir = dir }
}

// WithLogger sets a custom logger.
func WithLogger(lg l.Logger) BuilderOption {
	return func(cfg *builderConfig) { cfg.Logger = logger.FromExisting(lg) }
}

// WithLogToConsole mirrors the default workdir logger's writes to
// stdout in addition to the working directory's log file. Has no effect
// if WithLogger was also given.
func WithLogToConsole(enabled bool) BuilderOption {
	return func(cfg *builderConfig) { cfg.LogToConsole = enabled }
}

// NewBuilder creates a Builder reading corpusPath and writing its
// pattern store under workDir.
func NewBuilder(corpusPath, workDir string, opts ...BuilderOption) (*Builder, error) {
	cfg := &builderConfig{
		Buckets: pipeline.DefaultBuckets,
		Workers: pipeline.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		lg, err := logger.NewWorkdirLogger(workDir, cfg.LogToConsole)
		if err != nil {
			return nil, err
		}
		cfg.Logger = lg
	}

	hasher := hashutil.NewFNV1a64()
	st := store.New(workDir)

	seq := sequencer.New(st, hasher, cfg.Logger, sequencer.WithSentenceMarkers(cfg.SentenceMarkers), sequencer.WithCorpusPath(corpusPath))

	var aggOpts []aggregator.Option
	if cfg.SpillThreshold > 0 {
		aggOpts = append(aggOpts, aggregator.WithSpillThreshold(cfg.SpillThreshold))
	}
	if cfg.TempDir != "" {
		aggOpts = append(aggOpts, aggregator.WithTempDir(cfg.TempDir))
	}
	agg := aggregator.New(st, hasher, cfg.Logger, aggOpts...)

	driver := pipeline.New(corpusPath, workDir, st, seq, agg, hasher, cfg.Logger,
		pipeline.WithBuckets(cfg.Buckets),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithSentenceMarkers(cfg.SentenceMarkers),
	)

	return &Builder{driver: driver, store: st, hasher: hasher, logger: cfg.Logger}, nil
}

// Build parses patternLabels (e.g. "cc", "ccc") and drives the full
// pipeline for them: WordIndex, every requested pattern, and every
// continuation pattern interpolated Kneser-Ney smoothing needs.
func (b *Builder) Build(ctx context.Context, patternLabels ...string) (pipeline.Report, error) {
	patterns := make([]domain.Pattern, len(patternLabels))
	for i, label := range patternLabels {
		p, err := domain.ParsePattern(label)
		if err != nil {
			return pipeline.Report{}, err
		}
		patterns[i] = p
	}
	return b.driver.Build(ctx, patterns)
}

// Store exposes the underlying chunked pattern store, e.g. to build a
// Cache against the same working directory without reopening it.
func (b *Builder) Store() *store.Store { return b.store }

// OpenStore opens a previously built working directory's pattern store
// for reading, without the corpus-path and logger machinery a Builder
// needs to drive a new build. Used by read-only consumers such as a
// query server that only ever calls Cache.Load against an existing store.
func OpenStore(workDir string) *store.Store { return store.New(workDir) }

// Close releases the Builder's logger.
func (b *Builder) Close() error { return b.logger.Close() }
