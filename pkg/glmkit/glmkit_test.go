package glmkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

func TestBuildLoadAndQueryArgmax(t *testing.T) {
	corpusPath := writeCorpus(t, "a b a b a\n")
	workDir := t.TempDir()

	b, err := NewBuilder(corpusPath, workDir, WithBuckets(1), WithWorkers(2))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Close()

	if _, err := b.Build(context.Background(), "cc"); err != nil {
		t.Fatalf("Build: %v", err)
	}

	c := NewCache(TrieBacking)
	if err := c.Load(context.Background(), b.Store(), "cc"); err != nil {
		t.Fatalf("Cache.Load: %v", err)
	}

	rec, ok, err := c.Get("cc", "a b")
	if err != nil {
		t.Fatalf("Cache.Get: %v", err)
	}
	if !ok || rec.Absolute != 2 {
		t.Fatalf("Get(a b) = %+v, %v, want 2, true", rec, ok)
	}

	q, err := NewQuery(c)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	score := func(_ string, count domain.CountRecord) float64 { return float64(count.Absolute) }
	got := q.Argmax(context.Background(), "a", "", 1, score)
	if len(got) != 1 || got[0].Sequence != "a b" {
		t.Fatalf("Argmax(a) = %v, want just \"a b\"", got)
	}
}

func TestNewQueryRejectsHashBackedCache(t *testing.T) {
	c := NewCache(HashBacking)
	if _, err := NewQuery(c); err == nil {
		t.Fatal("expected NewQuery to reject a hash-backed cache")
	}
}
