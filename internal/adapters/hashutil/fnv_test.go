package hashutil

import "testing"

func TestHash64Deterministic(t *testing.T) {
	h := NewFNV1a64()
	a := h.Hash64("hello")
	b := h.Hash64("hello")
	if a != b {
		t.Fatalf("hash not deterministic: %d vs %d", a, b)
	}
}

func TestHash64DiffersByInput(t *testing.T) {
	h := NewFNV1a64()
	if h.Hash64("a") == h.Hash64("b") {
		t.Fatal("expected distinct hashes for distinct words (collision is allowed statistically, but not for these two)")
	}
}
