package aggregator

import (
	"context"
	"os"
	"testing"

	"github.com/baditaflorin/glmkit/internal/adapters/hashutil"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

func writeSplit(t *testing.T, st *store.Store, p domain.Pattern, bucket int, lines []string) {
	t.Helper()
	if err := st.EnsureSplitDir(p); err != nil {
		t.Fatalf("EnsureSplitDir: %v", err)
	}
	f, err := os.Create(st.SplitPath(p, bucket))
	if err != nil {
		t.Fatalf("create split file: %v", err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("write split line: %v", err)
		}
	}
}

func TestAggregateAbsoluteCountsAndSorts(t *testing.T) {
	st := store.New(t.TempDir())
	unigram, _ := domain.ParsePattern("c")
	writeSplit(t, st, unigram, 0, []string{"a", "b", "a", "b", "a"})

	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateAbsolute(context.Background(), unigram, 0); err != nil {
		t.Fatalf("AggregateAbsolute: %v", err)
	}

	entries, err := st.ReadChunk(context.Background(), unigram, 0)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2 rows", entries)
	}
	if entries[0].Sequence != "a" || entries[0].Count.Absolute != 3 {
		t.Fatalf("entries[0] = %+v, want a=3", entries[0])
	}
	if entries[1].Sequence != "b" || entries[1].Count.Absolute != 2 {
		t.Fatalf("entries[1] = %+v, want b=2", entries[1])
	}
}

func TestAggregateAbsoluteBigram(t *testing.T) {
	st := store.New(t.TempDir())
	bigram, _ := domain.ParsePattern("cc")
	writeSplit(t, st, bigram, 0, []string{"a b", "b a", "a b", "b a"})

	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateAbsolute(context.Background(), bigram, 0); err != nil {
		t.Fatalf("AggregateAbsolute: %v", err)
	}

	entries, err := st.ReadChunk(context.Background(), bigram, 0)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2 rows", entries)
	}
	if entries[0].Sequence != "a b" || entries[0].Count.Absolute != 2 {
		t.Fatalf("entries[0] = %+v, want \"a b\"=2", entries[0])
	}
	if entries[1].Sequence != "b a" || entries[1].Count.Absolute != 2 {
		t.Fatalf("entries[1] = %+v, want \"b a\"=2", entries[1])
	}
}

// TestAggregateAbsoluteSpills forces every add() past a spill threshold
// of 1, exercising the external-merge-sort path instead of the
// direct-sort-in-memory shortcut.
func TestAggregateAbsoluteSpills(t *testing.T) {
	st := store.New(t.TempDir())
	unigram, _ := domain.ParsePattern("c")
	writeSplit(t, st, unigram, 0, []string{"d", "c", "b", "a", "b", "c", "c"})

	a := New(st, hashutil.NewFNV1a64(), nil, WithSpillThreshold(1), WithTempDir(t.TempDir()))
	if err := a.AggregateAbsolute(context.Background(), unigram, 0); err != nil {
		t.Fatalf("AggregateAbsolute: %v", err)
	}

	entries, err := st.ReadChunk(context.Background(), unigram, 0)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	want := map[string]uint64{"a": 1, "b": 2, "c": 3, "d": 1}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v, want %d rows", entries, len(want))
	}
	prev := ""
	for _, e := range entries {
		if e.Sequence <= prev {
			t.Fatalf("entries not strictly ascending at %q", e.Sequence)
		}
		prev = e.Sequence
		if e.Count.Absolute != want[e.Sequence] {
			t.Fatalf("count[%q] = %d, want %d", e.Sequence, e.Count.Absolute, want[e.Sequence])
		}
	}
}

func TestAggregateAbsoluteMissingSplitIsNoop(t *testing.T) {
	st := store.New(t.TempDir())
	bigram, _ := domain.ParsePattern("cc")
	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateAbsolute(context.Background(), bigram, 0); err != nil {
		t.Fatalf("AggregateAbsolute on missing split: %v", err)
	}
	entries, err := st.ReadChunk(context.Background(), bigram, 0)
	if err != nil || entries != nil {
		t.Fatalf("ReadChunk after no-op aggregate = %v, %v", entries, err)
	}
}

func TestAggregateContinuationDerivesWitnessStats(t *testing.T) {
	st := store.New(t.TempDir())
	abs, _ := domain.ParsePattern("cc")
	cont, _ := domain.ParsePattern("wc")
	idx := domain.WordIndex{Buckets: 1, Boundaries: []string{""}}

	err := st.WriteChunk(context.Background(), abs, 0, []ports.ChunkEntry{
		{Sequence: "a c", Count: domain.NewAbsolute(1)},
		{Sequence: "a d", Count: domain.NewAbsolute(1)},
		{Sequence: "b c", Count: domain.NewAbsolute(2)},
		{Sequence: "d c", Count: domain.NewAbsolute(5)},
	})
	if err != nil {
		t.Fatalf("seed absolute chunk: %v", err)
	}

	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateContinuation(context.Background(), cont, abs, idx); err != nil {
		t.Fatalf("AggregateContinuation: %v", err)
	}

	entries, err := st.ReadChunk(context.Background(), cont, 0)
	if err != nil {
		t.Fatalf("ReadChunk continuation: %v", err)
	}
	byKey := make(map[string]domain.ContinuationCounts)
	for _, e := range entries {
		byKey[e.Sequence] = e.Count.Continuation
	}

	c := byKey["% c"]
	if c.N1Plus != 3 || c.N1 != 1 || c.N2 != 1 || c.N3Plus != 1 {
		t.Fatalf("\"%% c\" counts = %+v, want {3 1 1 1}", c)
	}
	d := byKey["% d"]
	if d.N1Plus != 1 || d.N1 != 1 || d.N2 != 0 || d.N3Plus != 0 {
		t.Fatalf("\"%% d\" counts = %+v, want {1 1 0 0}", d)
	}
}

func TestAggregateContinuationRejectsNonContinuationPattern(t *testing.T) {
	st := store.New(t.TempDir())
	abs, _ := domain.ParsePattern("cc")
	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateContinuation(context.Background(), abs, abs, domain.WordIndex{Buckets: 1}); err == nil {
		t.Fatal("expected error when pattern is not a continuation pattern")
	}
}

func TestAggregateContinuationRejectsMismatchedWitness(t *testing.T) {
	st := store.New(t.TempDir())
	cont, _ := domain.ParsePattern("wc")
	trigramAbs, _ := domain.ParsePattern("ccc")
	a := New(st, hashutil.NewFNV1a64(), nil)
	if err := a.AggregateContinuation(context.Background(), cont, trigramAbs, domain.WordIndex{Buckets: 1}); err == nil {
		t.Fatal("expected error for length-mismatched witnessing pattern")
	}
}
