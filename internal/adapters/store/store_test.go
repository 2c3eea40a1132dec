package store

import (
	"context"
	"testing"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

func pattern(t *testing.T, label string) domain.Pattern {
	t.Helper()
	p, err := domain.ParsePattern(label)
	if err != nil {
		t.Fatalf("ParsePattern(%q): %v", label, err)
	}
	return p
}

func TestWriteReadChunkAbsolute(t *testing.T) {
	s := New(t.TempDir())
	p := pattern(t, "cc")
	entries := []ports.ChunkEntry{
		{Sequence: "ab", Count: domain.NewAbsolute(2)},
		{Sequence: "ba", Count: domain.NewAbsolute(2)},
	}
	if err := s.WriteChunk(context.Background(), p, 0, entries); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, err := s.ReadChunk(context.Background(), p, 0)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != "ab" || got[0].Count.Absolute != 2 {
		t.Fatalf("got = %+v", got)
	}
}

func TestWriteChunkRejectsUnsortedKeys(t *testing.T) {
	s := New(t.TempDir())
	p := pattern(t, "cc")
	entries := []ports.ChunkEntry{
		{Sequence: "b", Count: domain.NewAbsolute(1)},
		{Sequence: "a", Count: domain.NewAbsolute(1)},
	}
	err := s.WriteChunk(context.Background(), p, 0, entries)
	if err == nil {
		t.Fatal("expected invariant violation for unsorted keys")
	}
	if _, ok := err.(*domain.InvariantViolation); !ok {
		t.Fatalf("expected *domain.InvariantViolation, got %T", err)
	}
}

func TestWriteReadChunkContinuation(t *testing.T) {
	s := New(t.TempDir())
	p := pattern(t, "wc")
	entries := []ports.ChunkEntry{
		{Sequence: "b", Count: domain.NewContinuation(domain.ContinuationCounts{N1Plus: 1, N1: 0, N2: 1, N3Plus: 0})},
	}
	if err := s.WriteChunk(context.Background(), p, 3, entries); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	got, err := s.ReadChunk(context.Background(), p, 3)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(got) != 1 || !got[0].Count.IsContinuation() {
		t.Fatalf("got = %+v", got)
	}
	if got[0].Count.Continuation.N2 != 1 {
		t.Fatalf("N2 = %d, want 1", got[0].Count.Continuation.N2)
	}
}

func TestReadChunkMissingReturnsNil(t *testing.T) {
	s := New(t.TempDir())
	p := pattern(t, "cc")
	got, err := s.ReadChunk(context.Background(), p, 7)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if got != nil {
		t.Fatalf("got = %v, want nil", got)
	}
}

func TestBucketsListsExistingChunks(t *testing.T) {
	s := New(t.TempDir())
	p := pattern(t, "cc")
	for _, b := range []int{2, 0, 1} {
		if err := s.WriteChunk(context.Background(), p, b, nil); err != nil {
			t.Fatalf("WriteChunk(%d): %v", b, err)
		}
	}
	got, err := s.Buckets(p)
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got = %v, want %v", got, want)
		}
	}
}
