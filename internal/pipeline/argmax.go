package pipeline

import (
	"context"
	"strings"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// ArgmaxExecutor answers top-k completion queries atop a single
// CompletionCache: history is the whitespace-separated context words
// already observed, prefix is the (possibly empty) partial next word the
// caller has typed so far. It resolves history+prefix to the all-CNT
// pattern of the matching window length and delegates ranking entirely
// to the cache's Completions search.
type ArgmaxExecutor struct {
	cache ports.CompletionCache
}

// NewArgmaxExecutor wraps cache, which must already have the all-CNT
// pattern of every window length the caller intends to query loaded.
func NewArgmaxExecutor(cache ports.CompletionCache) *ArgmaxExecutor {
	return &ArgmaxExecutor{cache: cache}
}

// QueryArgmax implements ports.ArgmaxExecutor.
func (e *ArgmaxExecutor) QueryArgmax(ctx context.Context, history string, prefix string, k int, score ports.ScoreFunc) []ports.Completion {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	historyWords := strings.Fields(history)
	label := strings.Repeat(string(domain.CNT), len(historyWords)+1)
	pattern, err := domain.ParsePattern(label)
	if err != nil {
		return nil
	}

	var b strings.Builder
	for i, w := range historyWords {
		if i > 0 {
			b.WriteString(domain.KeySeparator)
		}
		b.WriteString(w)
	}
	if len(historyWords) > 0 {
		b.WriteString(domain.KeySeparator)
	}
	b.WriteString(prefix)

	return e.cache.Completions(pattern, b.String(), score, k)
}

var _ ports.ArgmaxExecutor = (*ArgmaxExecutor)(nil)
