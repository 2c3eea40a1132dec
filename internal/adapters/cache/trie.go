package cache

import (
	"container/heap"
	"context"
	"sort"

	"github.com/baditaflorin/glmkit/internal/adapters/mergeutil"
	"github.com/baditaflorin/glmkit/internal/adapters/store"
	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// trieNode is one byte of a stored sequence key. record is non-nil only
// on nodes that terminate a complete sequence. best holds the largest
// magnitude (see magnitude) among every terminal descendant of this
// node, including itself; it is the admissible upper bound Completions
// prunes search with.
type trieNode struct {
	children map[byte]*trieNode
	record   *domain.CountRecord
	best     domain.CountRecord
	hasBest  bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[byte]*trieNode)}
}

// magnitude is the scalar used to order trie nodes by "best achievable
// record below here": the absolute count for absolute patterns, the
// distinct-witness count for continuation patterns.
func magnitude(r domain.CountRecord) uint64 {
	if r.IsContinuation() {
		return r.Continuation.N1Plus
	}
	return r.Absolute
}

func (n *trieNode) considerBest(r domain.CountRecord) {
	if !n.hasBest || magnitude(r) > magnitude(n.best) {
		n.best = r
		n.hasBest = true
	}
}

func (n *trieNode) insert(seq string, rec domain.CountRecord) {
	n.considerBest(rec)
	cur := n
	for i := 0; i < len(seq); i++ {
		b := seq[i]
		child, ok := cur.children[b]
		if !ok {
			child = newTrieNode()
			cur.children[b] = child
		}
		child.considerBest(rec)
		cur = child
	}
	rc := rec
	cur.record = &rc
}

// get walks seq byte by byte and returns the record at its terminal
// node, if any.
func (n *trieNode) get(seq string) (domain.CountRecord, bool) {
	cur := n
	for i := 0; i < len(seq); i++ {
		child, ok := cur.children[seq[i]]
		if !ok {
			return domain.CountRecord{}, false
		}
		cur = child
	}
	if cur.record == nil {
		return domain.CountRecord{}, false
	}
	return *cur.record, true
}

// TrieCache is a ports.CompletionCache backed by one byte trie per
// loaded pattern, built from a k-way merge across the pattern's sorted
// bucket chunks. Every bucket chunk of the pattern is read into memory
// before the merge begins.
type TrieCache struct {
	patterns map[string]*trieNode
}

// NewTrieCache returns an empty TrieCache; call Load to populate it.
func NewTrieCache() *TrieCache {
	return &TrieCache{patterns: make(map[string]*trieNode)}
}

// Load reads every bucket chunk of pattern from st and inserts every
// entry into a fresh trie for that pattern, replacing any prior trie
// loaded for the same pattern.
func (t *TrieCache) Load(ctx context.Context, st *store.Store, pattern domain.Pattern) error {
	sources, err := newBucketSources(ctx, st, pattern)
	if err != nil {
		return err
	}
	root := newTrieNode()
	merger := mergeutil.NewMerger(sources)
	var prev string
	first := true
	for merger.Len() > 0 {
		key, entry := merger.Peek()
		if !first && key == prev {
			return &domain.InvariantViolation{Detail: "cache: duplicate key " + key + " across buckets of pattern " + pattern.String()}
		}
		first = false
		prev = key
		root.insert(key, entry.Count)
		if err := merger.Advance(); err != nil {
			return err
		}
	}
	t.patterns[pattern.Label()] = root
	return nil
}

// Get implements ports.Cache.
func (t *TrieCache) Get(pattern domain.Pattern, sequence string) (domain.CountRecord, bool) {
	root, ok := t.patterns[pattern.Label()]
	if !ok {
		return domain.CountRecord{}, false
	}
	return root.get(sequence)
}

// frontierItem is one pending node in the best-first search, carrying
// the full key accumulated from the trie root down to it.
type frontierItem struct {
	node   *trieNode
	prefix string
	bound  float64
}

type frontierHeap []frontierItem

func (h frontierHeap) Len() int            { return len(h) }
func (h frontierHeap) Less(i, j int) bool  { return h[i].bound > h[j].bound } // max-heap
func (h frontierHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frontierHeap) Push(x interface{}) { *h = append(*h, x.(frontierItem)) }
func (h *frontierHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Completions implements ports.CompletionCache: a best-first search over
// the byte trie rooted at prefix, ordered by score. score must be
// monotone non-increasing in trie depth (a longer sequence never scores
// higher than its prefix) and monotone non-decreasing in magnitude (a
// higher-count record never scores lower); together these make
// score(prefix, node.best) an admissible upper bound for every
// completion reachable below node, which is what makes the search safe
// to prune with. Ties are broken lexicographically by sequence.
func (t *TrieCache) Completions(pattern domain.Pattern, prefix string, score ports.ScoreFunc, k int) []ports.Completion {
	if k <= 0 {
		return nil
	}
	root, ok := t.patterns[pattern.Label()]
	if !ok {
		return nil
	}

	node := root
	for i := 0; i < len(prefix); i++ {
		child, ok := node.children[prefix[i]]
		if !ok {
			return nil
		}
		node = child
	}
	if !node.hasBest {
		return nil
	}

	frontier := frontierHeap{{node: node, prefix: prefix, bound: score(prefix, node.best)}}
	heap.Init(&frontier)

	var results []ports.Completion
	for frontier.Len() > 0 {
		top := heap.Pop(&frontier).(frontierItem)
		if len(results) >= k {
			worst := results[len(results)-1].Score
			if top.bound < worst {
				break
			}
		}

		if top.node.record != nil {
			results = append(results, ports.Completion{
				Sequence: top.prefix,
				Count:    *top.node.record,
				Score:    score(top.prefix, *top.node.record),
			})
			sort.SliceStable(results, func(i, j int) bool {
				if results[i].Score != results[j].Score {
					return results[i].Score > results[j].Score
				}
				return results[i].Sequence < results[j].Sequence
			})
			if len(results) > k {
				results = results[:k]
			}
		}

		for b, child := range top.node.children {
			if !child.hasBest {
				continue
			}
			childPrefix := top.prefix + string(b)
			heap.Push(&frontier, frontierItem{
				node:   child,
				prefix: childPrefix,
				bound:  score(childPrefix, child.best),
			})
		}
	}
	return results
}

var (
	_ ports.Cache           = (*TrieCache)(nil)
	_ ports.CompletionCache = (*TrieCache)(nil)
)
