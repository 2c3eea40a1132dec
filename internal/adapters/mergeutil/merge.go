// Package mergeutil implements the k-way merge primitive shared by the
// aggregator's external-merge-sort spill path and the cache package's
// streaming chunk-store reads: both need to walk several
// already-ascending sources in lockstep key order without holding all of
// them in memory as one slice.
package mergeutil

import "container/heap"

// Source is one already-ascending-by-Key stream. Advance must be called
// once before the first call to Valid/Key/Current to position the
// source at its first item.
type Source[T any] interface {
	Key() string
	Valid() bool
	Current() T
	Advance() error
}

// Merger k-way merges a set of primed sources (Advance already called
// once on each, so Valid/Key/Current reflect the first item or
// exhaustion) in ascending key order.
type Merger[T any] struct {
	h sourceHeap[T]
}

// NewMerger builds a Merger over sources, discarding any that are
// already exhausted.
func NewMerger[T any](sources []Source[T]) *Merger[T] {
	m := &Merger[T]{}
	for _, s := range sources {
		if s.Valid() {
			m.h = append(m.h, s)
		}
	}
	heap.Init(&m.h)
	return m
}

// Len reports how many sources still have items.
func (m *Merger[T]) Len() int { return len(m.h) }

// Peek returns the smallest current key across all sources and the
// payload at that position, without consuming it. Valid only while
// Len() > 0.
func (m *Merger[T]) Peek() (key string, value T) {
	top := m.h[0]
	return top.Key(), top.Current()
}

// Advance consumes the item Peek last returned, advancing its source and
// re-establishing heap order (or dropping the source if it is now
// exhausted).
func (m *Merger[T]) Advance() error {
	top := m.h[0]
	if err := top.Advance(); err != nil {
		return err
	}
	if top.Valid() {
		heap.Fix(&m.h, 0)
	} else {
		heap.Pop(&m.h)
	}
	return nil
}

type sourceHeap[T any] []Source[T]

func (h sourceHeap[T]) Len() int           { return len(h) }
func (h sourceHeap[T]) Less(i, j int) bool { return h[i].Key() < h[j].Key() }
func (h sourceHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *sourceHeap[T]) Push(x interface{}) { *h = append(*h, x.(Source[T])) }

func (h *sourceHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
