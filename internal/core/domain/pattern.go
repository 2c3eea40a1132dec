package domain

import (
	"fmt"
	"strings"

	"github.com/baditaflorin/glmkit/internal/pool"
)

// applyPool reuses the StringBuilder that Apply assembles each n-gram
// key in; Apply runs once per (window, pattern) pair in the Sequencer's
// hot loop, so the builder would otherwise churn one allocation per call.
var applyPool = pool.NewStringBuilderPool()

// PatternElem is the kind of a single slot in a Pattern template.
type PatternElem byte

const (
	// CNT is a counted slot: it copies the word into the key.
	CNT PatternElem = 'c'
	// SKP is an unconditional skip: it emits the skip marker.
	SKP PatternElem = 's'
	// WSKP is a weighted skip, used by continuation patterns.
	WSKP PatternElem = 'w'
	// POS projects the word's part-of-speech tag instead of the word.
	POS PatternElem = 'p'
	// DEL deletes the slot: it consumes a window position but
	// contributes nothing to the key.
	DEL PatternElem = 'd'
	// WildcardElem is a reserved label character that ParsePattern
	// accepts. Apply emits nothing for it, and no component in this
	// module gives it any further meaning.
	WildcardElem PatternElem = 'x'
)

func (e PatternElem) valid() bool {
	switch e {
	case CNT, SKP, WSKP, POS, DEL, WildcardElem:
		return true
	default:
		return false
	}
}

// Pattern is an ordered, fixed-length template of PatternElems describing
// how an n-gram is projected into a counted key. Patterns are values:
// comparable, hashable via their String form, and safe to share.
type Pattern []PatternElem

// ParsePattern parses a label such as "cc" or "wc" into a Pattern.
// The empty pattern is forbidden.
func ParsePattern(label string) (Pattern, error) {
	if label == "" {
		return nil, fmt.Errorf("domain: empty pattern is forbidden")
	}
	p := make(Pattern, len(label))
	for i := 0; i < len(label); i++ {
		e := PatternElem(label[i])
		if !e.valid() {
			return nil, fmt.Errorf("domain: invalid pattern element %q in %q", label[i], label)
		}
		p[i] = e
	}
	return p, nil
}

// String renders the Pattern back to its fixed-length label form.
func (p Pattern) String() string {
	b := make([]byte, len(p))
	for i, e := range p {
		b[i] = byte(e)
	}
	return string(b)
}

// Len is the pattern's length, i.e. the n-gram window size it projects.
func (p Pattern) Len() int { return len(p) }

// ElemAt returns the PatternElem at slot i.
func (p Pattern) ElemAt(i int) PatternElem { return p[i] }

// IsAbsolute reports whether the pattern contains only CNT/SKP/DEL slots.
func (p Pattern) IsAbsolute() bool {
	for _, e := range p {
		if e != CNT && e != SKP && e != DEL {
			return false
		}
	}
	return true
}

// IsContinuation reports whether the pattern contains at least one
// weighted-skip slot.
func (p Pattern) IsContinuation() bool {
	for _, e := range p {
		if e == WSKP {
			return true
		}
	}
	return false
}

// FirstCNT returns the index of the first CNT slot, or -1 if the pattern
// has none. The Sequencer buckets an n-gram on the word at this index.
func (p Pattern) FirstCNT() int {
	for i, e := range p {
		if e == CNT {
			return i
		}
	}
	return -1
}

// KeySeparator joins the per-slot projections of Apply. Corpus tokens
// are whitespace-split, so a single space never occurs inside a word and
// a key can always be split back into its per-slot parts (see
// DESIGN.md for why this beats a no-delimiter encoding).
const KeySeparator = " "

// Apply projects words (len(words) must be >= len(p)) into a key string.
// CNT and POS slots copy from words/tags; SKP emits the skip marker; WSKP
// emits the weighted-skip marker; DEL contributes nothing to the key and
// is omitted from it, though it still consumes the corresponding window
// position. Slots are joined by KeySeparator so the key can be split
// back into its per-slot parts.
func (p Pattern) Apply(words []Word, tags []Word) string {
	b := applyPool.Get()
	defer applyPool.Put(b)

	first := true
	writeSlot := func(s string) {
		if !first {
			b.WriteString(KeySeparator)
		}
		b.WriteString(s)
		first = false
	}
	for i, e := range p {
		switch e {
		case CNT:
			writeSlot(words[i])
		case SKP:
			writeSlot(SkipMarker)
		case WSKP:
			writeSlot(WeightedSkipMarker)
		case POS:
			if tags != nil {
				writeSlot(tags[i])
			} else {
				writeSlot("")
			}
		case DEL:
			// contributes nothing, not even a placeholder slot
		}
	}
	return b.String()
}

// SplitKey splits a key produced by Apply back into its per-slot parts.
func SplitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, KeySeparator)
}

// DeriveAbsolute replaces every WSKP slot with SKP, producing the absolute
// pattern counted alongside a continuation pattern.
func (p Pattern) DeriveAbsolute() Pattern {
	out := make(Pattern, len(p))
	for i, e := range p {
		if e == WSKP {
			out[i] = SKP
		} else {
			out[i] = e
		}
	}
	return out
}

// ContinuationFamily returns the continuation patterns needed to estimate
// p under interpolated Kneser-Ney smoothing. p must be absolute (all
// CNT/SKP). For each prefix length k in 1..len(p)-1, the family contains
// the pattern obtained by turning the leading k CNT slots into WSKP; this
// is the standard "replace the earliest context" construction used by
// interpolated KN recursion (see DESIGN.md for the bigram worked example
// this generalises from).
func (p Pattern) ContinuationFamily() []Pattern {
	if !p.IsAbsolute() {
		return nil
	}
	var family []Pattern
	n := len(p)
	for k := 1; k < n; k++ {
		cnt := 0
		cand := make(Pattern, n)
		copy(cand, p)
		for i := 0; i < n && cnt < k; i++ {
			if p[i] == CNT {
				cand[i] = WSKP
				cnt++
			}
		}
		if cnt == k {
			family = append(family, cand)
		}
	}
	return family
}

// Label renders a Pattern to the directory-safe label used under the
// working directory (identical to String, kept as a separate name for
// readability at call sites that talk about on-disk paths).
func (p Pattern) Label() string { return p.String() }
