// Package pipeline wires the Sequencer, Aggregator and WordIndex builder
// into one driven build: compute the pattern closure, build or load the
// WordIndex, then for every window length run one Sequencer pass
// followed by the Aggregator tasks that length's patterns need, absolute
// before continuation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/baditaflorin/glmkit/internal/adapters/corpus"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/pipeline/workerpool"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// DefaultWorkers is the fixed worker-pool size used when Option
// WithWorkers is not given.
const DefaultWorkers = 4

// DefaultBuckets is the fixed WordIndex bucket count used when
// WithBuckets is not given.
const DefaultBuckets = 64

// IndexFileName and StatsFileName are the two files written at the
// working-directory root alongside the per-pattern store directories.
const (
	IndexFileName = "index.txt"
	StatsFileName = "stats.txt"
)

// Driver builds the full pattern store for a corpus: WordIndex, every
// requested pattern's aggregated counts, and every continuation pattern
// those patterns need under interpolated Kneser-Ney smoothing.
type Driver struct {
	corpusPath      string
	workDir         string
	chunks          ports.ChunkStore
	sequencer       ports.Sequencer
	aggregator      ports.Aggregator
	hasher          ports.WordHasher
	logger          ports.Logger
	buckets         int
	sentenceMarkers bool
	workers         int
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers overrides DefaultWorkers.
func WithWorkers(n int) Option { return func(d *Driver) { d.workers = n } }

// WithBuckets overrides DefaultBuckets. Only meaningful the first time a
// WordIndex is built for workDir; ignored once index.txt already exists.
func WithBuckets(n int) Option { return func(d *Driver) { d.buckets = n } }

// WithSentenceMarkers enables sentence-boundary markers for both the
// WordIndex build scan and every Sequencer pass.
func WithSentenceMarkers(enabled bool) Option {
	return func(d *Driver) { d.sentenceMarkers = enabled }
}

// New creates a Driver reading corpusPath and writing its store under
// workDir.
func New(corpusPath, workDir string, chunks ports.ChunkStore, seq ports.Sequencer, agg ports.Aggregator, hasher ports.WordHasher, logger ports.Logger, opts ...Option) *Driver {
	d := &Driver{
		corpusPath: corpusPath,
		workDir:    workDir,
		chunks:     chunks,
		sequencer:  seq,
		aggregator: agg,
		hasher:     hasher,
		logger:     logger,
		buckets:    DefaultBuckets,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Report summarises one Build run.
type Report struct {
	Index       domain.WordIndex
	Stats       domain.Stats
	SequenceLog []ports.SequenceReport
}

// closure is the set of patterns a Build run must produce, keyed by
// label, plus the absolute witness pattern each continuation pattern
// needs aggregated first.
type closure struct {
	byLength map[int][]domain.Pattern
	witness  map[string]domain.Pattern // continuation label -> all-CNT absolute pattern
}

// buildClosure expands requested absolute patterns into every pattern a
// full build must produce: the requests themselves, their continuation
// families (interpolated Kneser-Ney needs each), and the all-CNT
// absolute pattern of each continuation length (the witness source
// AggregateContinuation reads from).
func buildClosure(requested []domain.Pattern) (closure, error) {
	seen := make(map[string]domain.Pattern)
	add := func(p domain.Pattern) { seen[p.Label()] = p }

	for _, p := range requested {
		if !p.IsAbsolute() {
			return closure{}, &domain.CLIArgumentError{Detail: fmt.Sprintf("requested pattern %q must be absolute", p.String())}
		}
		add(p)
		for _, c := range p.ContinuationFamily() {
			add(c)
		}
	}

	witness := make(map[string]domain.Pattern)
	for _, p := range seen {
		if !p.IsContinuation() {
			continue
		}
		allCNT, err := domain.ParsePattern(strings.Repeat(string(domain.CNT), p.Len()))
		if err != nil {
			return closure{}, err
		}
		add(allCNT)
		witness[p.Label()] = allCNT
	}

	byLength := make(map[int][]domain.Pattern)
	for _, p := range seen {
		byLength[p.Len()] = append(byLength[p.Len()], p)
	}
	for l := range byLength {
		sort.Slice(byLength[l], func(i, j int) bool {
			return byLength[l][i].String() < byLength[l][j].String()
		})
	}
	return closure{byLength: byLength, witness: witness}, nil
}

// Build drives the full pipeline for the requested absolute patterns,
// skipping any step whose expected output already exists and is newer
// than its input.
func (d *Driver) Build(ctx context.Context, requested []domain.Pattern) (Report, error) {
	cl, err := buildClosure(requested)
	if err != nil {
		return Report{}, err
	}

	corpusInfo, err := os.Stat(d.corpusPath)
	if err != nil {
		return Report{}, &domain.IOError{Path: d.corpusPath, Op: "stat", Cause: err}
	}

	idx, stats, err := d.buildOrLoadIndex(corpusInfo)
	if err != nil {
		return Report{}, err
	}
	report := Report{Index: idx, Stats: stats}

	lengths := make([]int, 0, len(cl.byLength))
	for l := range cl.byLength {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)

	pool := workerpool.New(d.workers)
	defer pool.Shutdown()

	for _, l := range lengths {
		patterns := cl.byLength[l]
		var absolute []domain.Pattern
		var continuation []domain.Pattern
		for _, p := range patterns {
			if p.IsContinuation() {
				continuation = append(continuation, p)
			} else {
				absolute = append(absolute, p)
			}
		}

		seqReport, err := d.sequenceLength(ctx, l, absolute, idx, corpusInfo)
		if err != nil {
			return report, err
		}
		if seqReport != nil {
			report.SequenceLog = append(report.SequenceLog, *seqReport)
		}

		if err := d.scheduleAbsolute(ctx, pool, absolute); err != nil {
			return report, err
		}
		if err := pool.Wait(); err != nil {
			return report, err
		}

		if err := d.scheduleContinuation(ctx, pool, continuation, cl.witness, idx); err != nil {
			return report, err
		}
		if err := pool.Wait(); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (d *Driver) indexPath() string { return filepath.Join(d.workDir, IndexFileName) }
func (d *Driver) statsPath() string { return filepath.Join(d.workDir, StatsFileName) }

func (d *Driver) buildOrLoadIndex(corpusInfo os.FileInfo) (domain.WordIndex, domain.Stats, error) {
	indexInfo, err := os.Stat(d.indexPath())
	if err == nil && !indexInfo.ModTime().Before(corpusInfo.ModTime()) {
		idx, err := corpus.ReadIndex(d.indexPath())
		if err != nil {
			return domain.WordIndex{}, domain.Stats{}, err
		}
		stats, err := corpus.ReadStats(d.statsPath())
		if err != nil {
			return domain.WordIndex{}, domain.Stats{}, err
		}
		if d.logger != nil {
			d.logger.Info("reusing existing word index", "path", d.indexPath())
		}
		return idx, stats, nil
	}

	f, err := os.Open(d.corpusPath)
	if err != nil {
		return domain.WordIndex{}, domain.Stats{}, &domain.IOError{Path: d.corpusPath, Op: "open", Cause: err}
	}
	defer f.Close()

	idx, stats, err := corpus.BuildWordIndex(f, d.corpusPath, d.buckets, d.hasher, corpus.Options{SentenceMarkers: d.sentenceMarkers})
	if err != nil {
		return domain.WordIndex{}, domain.Stats{}, err
	}
	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		return domain.WordIndex{}, domain.Stats{}, &domain.IOError{Path: d.workDir, Op: "mkdir", Cause: err}
	}
	if err := corpus.WriteIndex(d.indexPath(), idx); err != nil {
		return domain.WordIndex{}, domain.Stats{}, err
	}
	if err := corpus.WriteStats(d.statsPath(), stats); err != nil {
		return domain.WordIndex{}, domain.Stats{}, err
	}
	if d.logger != nil {
		d.logger.Info("built word index", "vocabulary", stats.Vocabulary, "tokens", stats.Tokens, "lines", stats.Lines)
	}
	return idx, stats, nil
}

// sequenceLength runs one Sequencer pass over absolute patterns of
// length l, unless every one of them already has a split directory
// newer than the corpus file.
func (d *Driver) sequenceLength(ctx context.Context, l int, absolute []domain.Pattern, idx domain.WordIndex, corpusInfo os.FileInfo) (*ports.SequenceReport, error) {
	if len(absolute) == 0 {
		return nil, nil
	}

	upToDate := true
	for _, p := range absolute {
		mt, ok, err := d.chunks.SplitDirModTime(p)
		if err != nil {
			return nil, err
		}
		if !ok || mt.Before(corpusInfo.ModTime()) {
			upToDate = false
			break
		}
	}
	if upToDate {
		if d.logger != nil {
			d.logger.Debug("skipping sequencer pass, split files up to date", "length", l)
		}
		return nil, nil
	}

	f, err := os.Open(d.corpusPath)
	if err != nil {
		return nil, &domain.IOError{Path: d.corpusPath, Op: "open", Cause: err}
	}
	defer f.Close()

	rep, err := d.sequencer.Sequence(ctx, f, idx, absolute)
	if err != nil {
		return nil, err
	}
	if d.logger != nil {
		d.logger.Info("sequenced corpus", "length", l, "patterns", len(absolute), "ngrams", rep.NGrams)
	}
	return &rep, nil
}

// scheduleAbsolute schedules one AggregateAbsolute task per (pattern,
// bucket) whose chunk file is missing or older than its split file.
func (d *Driver) scheduleAbsolute(ctx context.Context, pool *workerpool.Pool, absolute []domain.Pattern) error {
	for _, p := range absolute {
		buckets, err := d.chunks.SplitBuckets(p)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			splitMT, _, err := d.chunks.SplitModTime(p, b)
			if err != nil {
				return err
			}
			chunkMT, chunkOK, err := d.chunks.ChunkModTime(p, b)
			if err != nil {
				return err
			}
			if chunkOK && !chunkMT.Before(splitMT) {
				continue
			}
			p, b := p, b
			if err := pool.Submit(ctx, func() error {
				return d.aggregator.AggregateAbsolute(ctx, p, b)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// scheduleContinuation schedules one AggregateContinuation task per
// continuation pattern whose witness pattern's store is newer than its
// own, run only after every absolute task of the same length has
// completed (enforced by the caller waiting on pool between the two
// schedule calls).
func (d *Driver) scheduleContinuation(ctx context.Context, pool *workerpool.Pool, continuation []domain.Pattern, witness map[string]domain.Pattern, idx domain.WordIndex) error {
	for _, p := range continuation {
		abs, ok := witness[p.Label()]
		if !ok {
			return &domain.InvariantViolation{Detail: "pipeline: no witness pattern recorded for " + p.String()}
		}

		witnessMT, witnessOK, err := d.chunks.PatternDirModTime(abs)
		if err != nil {
			return err
		}
		ownMT, ownOK, err := d.chunks.PatternDirModTime(p)
		if err != nil {
			return err
		}
		if witnessOK && ownOK && !ownMT.Before(witnessMT) {
			continue
		}

		p, abs := p, abs
		if err := pool.Submit(ctx, func() error {
			return d.aggregator.AggregateContinuation(ctx, p, abs, idx)
		}); err != nil {
			return err
		}
	}
	return nil
}
