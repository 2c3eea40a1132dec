package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/baditaflorin/glmkit/internal/adapters/aggregator"
	"github.com/baditaflorin/glmkit/internal/adapters/hashutil"
	"github.com/baditaflorin/glmkit/internal/adapters/sequencer"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
)

func writeCorpus(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDriverBuildEndToEnd(t *testing.T) {
	corpusPath := writeCorpus(t, "a b a b a\n")
	workDir := t.TempDir()

	st := store.New(workDir)
	hasher := hashutil.NewFNV1a64()
	seq := sequencer.New(st, hasher, nil)
	agg := aggregator.New(st, hasher, nil)

	bigram, _ := domain.ParsePattern("cc")
	d := New(corpusPath, workDir, st, seq, agg, hasher, nil, WithBuckets(1), WithWorkers(2))

	report, err := d.Build(context.Background(), []domain.Pattern{bigram})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Stats.Vocabulary != 2 {
		t.Fatalf("Vocabulary = %d, want 2", report.Stats.Vocabulary)
	}

	entries, err := st.ReadChunk(context.Background(), bigram, 0)
	if err != nil {
		t.Fatalf("ReadChunk(cc): %v", err)
	}
	got := map[string]uint64{}
	for _, e := range entries {
		got[e.Sequence] = e.Count.Absolute
	}
	if got["a b"] != 2 || got["b a"] != 2 {
		t.Fatalf("cc chunk = %+v, want a b=2, b a=2", got)
	}

	continuationPattern, _ := domain.ParsePattern("wc")
	contEntries, err := st.ReadChunk(context.Background(), continuationPattern, 0)
	if err != nil {
		t.Fatalf("ReadChunk(wc): %v", err)
	}
	if len(contEntries) == 0 {
		t.Fatal("expected continuation pattern \"wc\" to have been aggregated")
	}

	if _, err := os.Stat(d.indexPath()); err != nil {
		t.Fatalf("index.txt not written: %v", err)
	}
	if _, err := os.Stat(d.statsPath()); err != nil {
		t.Fatalf("stats.txt not written: %v", err)
	}
}

func TestDriverBuildIsIdempotent(t *testing.T) {
	corpusPath := writeCorpus(t, "a b a b a\n")
	workDir := t.TempDir()

	st := store.New(workDir)
	hasher := hashutil.NewFNV1a64()
	seq := sequencer.New(st, hasher, nil)
	agg := aggregator.New(st, hasher, nil)

	bigram, _ := domain.ParsePattern("cc")
	d := New(corpusPath, workDir, st, seq, agg, hasher, nil, WithBuckets(1), WithWorkers(2))

	if _, err := d.Build(context.Background(), []domain.Pattern{bigram}); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	chunkPathBefore, err := os.Stat(st.BucketPath(bigram, 0))
	if err != nil {
		t.Fatalf("stat chunk: %v", err)
	}

	if _, err := d.Build(context.Background(), []domain.Pattern{bigram}); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	chunkPathAfter, err := os.Stat(st.BucketPath(bigram, 0))
	if err != nil {
		t.Fatalf("stat chunk: %v", err)
	}
	if !chunkPathAfter.ModTime().Equal(chunkPathBefore.ModTime()) {
		t.Fatal("second Build should not have rewritten the already up-to-date chunk file")
	}
}

func TestDriverBuildRejectsContinuationPatternRequest(t *testing.T) {
	corpusPath := writeCorpus(t, "a b\n")
	workDir := t.TempDir()

	st := store.New(workDir)
	hasher := hashutil.NewFNV1a64()
	seq := sequencer.New(st, hasher, nil)
	agg := aggregator.New(st, hasher, nil)

	wc, _ := domain.ParsePattern("wc")
	d := New(corpusPath, workDir, st, seq, agg, hasher, nil, WithBuckets(1))

	if _, err := d.Build(context.Background(), []domain.Pattern{wc}); err == nil {
		t.Fatal("expected an error requesting a continuation pattern directly")
	}
}
