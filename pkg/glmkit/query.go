package glmkit

import (
	"context"
	"fmt"

	"github.com/baditaflorin/glmkit/internal/pipeline"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// Query answers top-k completion requests atop a trie-backed Cache.
type Query struct {
	exec *pipeline.ArgmaxExecutor
}

// NewQuery wraps c, which must have been constructed with TrieBacking.
func NewQuery(c *Cache) (*Query, error) {
	if c.completion == nil {
		return nil, fmt.Errorf("glmkit: argmax queries require a Cache built with TrieBacking")
	}
	return &Query{exec: pipeline.NewArgmaxExecutor(c.completion)}, nil
}

// Argmax finds the top-k completions of history (optionally narrowed by
// a partial next word in prefix), ranked by score. score must be
// monotone non-increasing in trie depth and non-decreasing in count
// magnitude; see ports.ScoreFunc.
func (q *Query) Argmax(ctx context.Context, history, prefix string, k int, score ports.ScoreFunc) []ports.Completion {
	return q.exec.QueryArgmax(ctx, history, prefix, k, score)
}
