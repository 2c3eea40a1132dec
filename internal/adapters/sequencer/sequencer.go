// Package sequencer implements the pattern-driven projection of a
// training corpus into labelled n-gram streams.
package sequencer

import (
	"context"
	"io"

	"github.com/baditaflorin/glmkit/internal/adapters/corpus"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// DefaultOpenFileBudget bounds how many (pattern, bucket) split writers
// may stay open simultaneously before the least-recently-written one is
// closed, avoiding file-descriptor exhaustion on wide pattern sets.
const DefaultOpenFileBudget = 256

// Sequencer streams a tokenised corpus and, for every requested Pattern
// of a common length, appends one key per emitted n-gram to the
// corresponding WordIndex-bucket split file.
type Sequencer struct {
	store           *store.Store
	hasher          ports.WordHasher
	logger          ports.Logger
	openFileBudget  int
	corpusPath      string
	sentenceMarkers bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithOpenFileBudget overrides the default LRU writer-cache capacity.
func WithOpenFileBudget(n int) Option {
	return func(s *Sequencer) { s.openFileBudget = n }
}

// WithSentenceMarkers enables sentence-boundary markers, which must be
// set identically across build and any query-sub-cache.
func WithSentenceMarkers(enabled bool) Option {
	return func(s *Sequencer) { s.sentenceMarkers = enabled }
}

// WithCorpusPath records the corpus path for error messages.
func WithCorpusPath(path string) Option {
	return func(s *Sequencer) { s.corpusPath = path }
}

// New creates a Sequencer writing split files under st.
func New(st *store.Store, hasher ports.WordHasher, logger ports.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		store:          st,
		hasher:         hasher,
		logger:         logger,
		openFileBudget: DefaultOpenFileBudget,
		corpusPath:     "corpus",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sequence implements ports.Sequencer: it scans r once and, for every
// pattern in patterns (all of the same length), emits one key per
// sliding window per WordIndex bucket split file.
func (s *Sequencer) Sequence(ctx context.Context, r io.Reader, idx domain.WordIndex, patterns []domain.Pattern) (report ports.SequenceReport, err error) {
	if len(patterns) == 0 {
		return report, nil
	}
	windowLen := patterns[0].Len()
	for _, p := range patterns {
		if p.Len() != windowLen {
			return report, &domain.InvariantViolation{Detail: "sequencer: all patterns in one pass must share a length"}
		}
		if err := s.store.EnsureSplitDir(p); err != nil {
			return report, err
		}
	}

	cache := newWriterCache(s.openFileBudget)
	defer func() {
		if closeErr := cache.CloseAll(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	opts := corpus.Options{SentenceMarkers: s.sentenceMarkers}
	_, tokens, scanErr := corpus.Scan(r, s.corpusPath, opts, func(line corpus.Line) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		report.LinesRead++
		toks := line.Tokens
		for start := 0; start+windowLen <= len(toks); start++ {
			window := toks[start : start+windowLen]
			report.NGrams++
			for _, p := range patterns {
				key := p.Apply(window, nil)
				bucket := s.bucketOf(p, window, idx)
				path := s.store.SplitPath(p, bucket)
				if err := cache.Append(path, key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	report.TokensSeen = tokens
	if scanErr != nil {
		err = scanErr
		return report, err
	}

	if s.logger != nil {
		s.logger.Debug("sequencer pass complete",
			"patterns", len(patterns),
			"window_len", windowLen,
			"lines_read", report.LinesRead,
			"ngrams", report.NGrams,
		)
	}
	return report, nil
}

// bucketOf determines the split-file bucket for one n-gram window under
// pattern p: the bucket of the first CNT word, or bucket 0 if p has no
// CNT slot.
func (s *Sequencer) bucketOf(p domain.Pattern, window []domain.Word, idx domain.WordIndex) int {
	i := p.FirstCNT()
	if i < 0 {
		return 0
	}
	h := s.hasher.Hash64(window[i])
	return domain.BucketIndex(h, idx.Buckets)
}

var _ ports.Sequencer = (*Sequencer)(nil)
