package sequencer

import (
	"bufio"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/baditaflorin/glmkit/internal/adapters/hashutil"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// TestSequenceScenario1 sequences the corpus "a b a b a" under the bigram
// pattern "cc" and the unigram pattern "c", checking the raw split-file
// keys that aggregation will later reduce to a=3,b=2 and "a b"=2,"b a"=2.
func TestSequenceScenario1(t *testing.T) {
	st := store.New(t.TempDir())
	hasher := hashutil.NewFNV1a64()
	seq := New(st, hasher, nil)

	idx := domain.WordIndex{Buckets: 1, Boundaries: []string{"a"}}
	bigram, _ := domain.ParsePattern("cc")
	unigram, _ := domain.ParsePattern("c")

	report, err := seq.Sequence(context.Background(), strings.NewReader("a b a b a"), idx, []domain.Pattern{bigram})
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if report.NGrams != 4 {
		t.Fatalf("NGrams = %d, want 4", report.NGrams)
	}

	lines := readLines(t, st.SplitPath(bigram, 0))
	want := []string{"a b", "b a", "a b", "b a"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %v, want %v", lines, want)
		}
	}

	_, err = seq.Sequence(context.Background(), strings.NewReader("a b a b a"), idx, []domain.Pattern{unigram})
	if err != nil {
		t.Fatalf("Sequence unigram: %v", err)
	}
	ulines := readLines(t, st.SplitPath(unigram, 0))
	if len(ulines) != 5 {
		t.Fatalf("unigram lines = %v, want 5 entries", ulines)
	}
}

func TestSequenceShortLineProducesNoNGrams(t *testing.T) {
	st := store.New(t.TempDir())
	seq := New(st, hashutil.NewFNV1a64(), nil)
	idx := domain.WordIndex{Buckets: 1, Boundaries: []string{""}}
	tri, _ := domain.ParsePattern("ccc")

	report, err := seq.Sequence(context.Background(), strings.NewReader("a b"), idx, []domain.Pattern{tri})
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if report.NGrams != 0 {
		t.Fatalf("NGrams = %d, want 0", report.NGrams)
	}
}

func TestSequenceRejectsMixedLengthPatterns(t *testing.T) {
	st := store.New(t.TempDir())
	seq := New(st, hashutil.NewFNV1a64(), nil)
	idx := domain.WordIndex{Buckets: 1, Boundaries: []string{""}}
	uni, _ := domain.ParsePattern("c")
	bi, _ := domain.ParsePattern("cc")

	_, err := seq.Sequence(context.Background(), strings.NewReader("a b"), idx, []domain.Pattern{uni, bi})
	if err == nil {
		t.Fatal("expected error for mixed-length pattern set")
	}
}

func TestWriterCacheEvictsLRUAndReopensSafely(t *testing.T) {
	dir := t.TempDir()
	c := newWriterCache(1)
	a := dir + "/a"
	b := dir + "/b"

	if err := c.Append(a, "1"); err != nil {
		t.Fatalf("Append a: %v", err)
	}
	if err := c.Append(b, "2"); err != nil { // evicts a's writer
		t.Fatalf("Append b: %v", err)
	}
	if err := c.Append(a, "3"); err != nil { // reopens a in append mode
		t.Fatalf("Append a again: %v", err)
	}
	if err := c.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}

	got := readLines(t, a)
	want := []string{"1", "3"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got = %v, want %v", got, want)
	}
}
