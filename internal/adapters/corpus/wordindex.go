package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// BuildWordIndex scans r once, assigning every distinct word to a bucket
// via hasher, and returns the resulting WordIndex and corpus Stats.
func BuildWordIndex(r io.Reader, path string, buckets int, hasher ports.WordHasher, opts Options) (domain.WordIndex, domain.Stats, error) {
	builder := domain.NewWordIndexBuilder(buckets)
	seen := make(map[string]struct{})

	lines, tokens, err := Scan(r, path, opts, func(line Line) error {
		for _, tok := range line.Tokens {
			if tok == SentenceBegin || tok == SentenceEnd {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			b := domain.BucketIndex(hasher.Hash64(tok), buckets)
			builder.Observe(b, tok)
		}
		return nil
	})
	if err != nil {
		return domain.WordIndex{}, domain.Stats{}, err
	}

	idx := builder.Build(len(seen))
	stats := domain.Stats{
		Vocabulary:      len(seen),
		Tokens:          tokens,
		Lines:           lines,
		SentenceMarkers: opts.SentenceMarkers,
	}
	return idx, stats, nil
}

// WriteIndex persists a WordIndex to index.txt: one "<bucket>\t<first-word>"
// line per bucket. Empty buckets are written with an empty second field.
func WriteIndex(path string, idx domain.WordIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return &domain.IOError{Path: path, Op: "create", Cause: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for b := 0; b < idx.Buckets; b++ {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", b, idx.Boundaries[b]); err != nil {
			return &domain.IOError{Path: path, Op: "write", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		return &domain.IOError{Path: path, Op: "flush", Cause: err}
	}
	return nil
}

// ReadIndex loads a WordIndex previously written by WriteIndex.
func ReadIndex(path string) (domain.WordIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.WordIndex{}, &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	defer f.Close()

	var boundaries []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.SplitN(scanner.Text(), "\t", 2)
		if len(parts) == 0 {
			continue
		}
		b, err := strconv.Atoi(parts[0])
		if err != nil {
			return domain.WordIndex{}, &domain.FileFormatError{Path: path, Line: lineNo, Cause: err}
		}
		for len(boundaries) <= b {
			boundaries = append(boundaries, "")
		}
		if len(parts) == 2 {
			boundaries[b] = parts[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.WordIndex{}, &domain.IOError{Path: path, Op: "scan", Cause: err}
	}
	return domain.WordIndex{Buckets: len(boundaries), Boundaries: boundaries}, nil
}

// WriteStats persists corpus Stats to stats.txt as simple key=value lines.
func WriteStats(path string, s domain.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return &domain.IOError{Path: path, Op: "create", Cause: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "vocabulary=%d\n", s.Vocabulary)
	fmt.Fprintf(w, "tokens=%d\n", s.Tokens)
	fmt.Fprintf(w, "lines=%d\n", s.Lines)
	fmt.Fprintf(w, "sentence_markers=%t\n", s.SentenceMarkers)
	if err := w.Flush(); err != nil {
		return &domain.IOError{Path: path, Op: "flush", Cause: err}
	}
	return nil
}

// ReadStats loads corpus Stats previously written by WriteStats.
func ReadStats(path string) (domain.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Stats{}, &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	defer f.Close()

	var s domain.Stats
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "vocabulary":
			s.Vocabulary, _ = strconv.Atoi(kv[1])
		case "tokens":
			s.Tokens, _ = strconv.Atoi(kv[1])
		case "lines":
			s.Lines, _ = strconv.Atoi(kv[1])
		case "sentence_markers":
			s.SentenceMarkers, _ = strconv.ParseBool(kv[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.Stats{}, &domain.IOError{Path: path, Op: "scan", Cause: err}
	}
	return s, nil
}
