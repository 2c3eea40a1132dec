package domain

import "testing"

func TestBucketIndexDeterministic(t *testing.T) {
	const n = 8
	for _, h := range []uint64{0, 1, 7, 8, 9, 1 << 40} {
		a := BucketIndex(h, n)
		b := BucketIndex(h, n)
		if a != b {
			t.Fatalf("BucketIndex(%d, %d) not deterministic: %d vs %d", h, n, a, b)
		}
		if a < 0 || a >= n {
			t.Fatalf("BucketIndex out of range: %d", a)
		}
	}
}

func TestWordIndexBuilderBoundaries(t *testing.T) {
	b := NewWordIndexBuilder(2)
	b.Observe(0, "banana")
	b.Observe(0, "apple")
	b.Observe(1, "zebra")
	idx := b.Build(3)
	if idx.Buckets != 2 {
		t.Fatalf("Buckets = %d, want 2", idx.Buckets)
	}
	if idx.Boundaries[0] != "apple" {
		t.Fatalf("bucket 0 boundary = %q, want apple", idx.Boundaries[0])
	}
	if idx.Boundaries[1] != "zebra" {
		t.Fatalf("bucket 1 boundary = %q, want zebra", idx.Boundaries[1])
	}
	if idx.Vocabulary != 3 {
		t.Fatalf("Vocabulary = %d, want 3", idx.Vocabulary)
	}
}

func TestWordIndexSortedBoundaries(t *testing.T) {
	idx := WordIndex{Buckets: 3, Boundaries: []string{"c", "", "a"}}
	got := idx.SortedBoundaries()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("SortedBoundaries() = %v", got)
	}
}
