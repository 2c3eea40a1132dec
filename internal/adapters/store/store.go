// Package store implements the on-disk chunked Pattern store convention:
// one subdirectory per Pattern holding one file per WordIndex bucket,
// plus the split-file staging area the Sequencer writes into before
// aggregation.
package store

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/ports"
)

// Store roots all Pattern-store and split-file paths at a working
// directory.
type Store struct {
	Root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store { return &Store{Root: dir} }

// patternDir is the directory holding a Pattern's aggregated chunks.
func (s *Store) patternDir(p domain.Pattern) string {
	return filepath.Join(s.Root, p.Label())
}

// splitDir is the directory holding a Pattern's raw (pre-aggregation)
// split files.
func (s *Store) splitDir(p domain.Pattern) string {
	return filepath.Join(s.Root, p.Label()+"-split")
}

// BucketPath is the aggregated chunk file for (pattern, bucket).
func (s *Store) BucketPath(p domain.Pattern, bucket int) string {
	return filepath.Join(s.patternDir(p), strconv.Itoa(bucket))
}

// SplitPath is the raw split file for (pattern, bucket).
func (s *Store) SplitPath(p domain.Pattern, bucket int) string {
	return filepath.Join(s.splitDir(p), strconv.Itoa(bucket))
}

// Buckets lists the bucket ids with an existing chunk file for pattern,
// in ascending numeric order.
func (s *Store) Buckets(p domain.Pattern) ([]int, error) {
	return listBucketIDs(s.patternDir(p))
}

// SplitBuckets lists the bucket ids with an existing split file for
// pattern, in ascending numeric order.
func (s *Store) SplitBuckets(p domain.Pattern) ([]int, error) {
	return listBucketIDs(s.splitDir(p))
}

func listBucketIDs(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.IOError{Path: dir, Op: "readdir", Cause: err}
	}
	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// EnsurePatternDir creates the Pattern's chunk directory if absent.
func (s *Store) EnsurePatternDir(p domain.Pattern) error {
	dir := s.patternDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.IOError{Path: dir, Op: "mkdir", Cause: err}
	}
	return nil
}

// EnsureSplitDir creates the Pattern's split directory if absent.
func (s *Store) EnsureSplitDir(p domain.Pattern) error {
	dir := s.splitDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.IOError{Path: dir, Op: "mkdir", Cause: err}
	}
	return nil
}

// WriteChunk writes entries (already sorted by the caller) to the
// pattern/bucket chunk file, one tab-separated row per entry.
func (s *Store) WriteChunk(ctx context.Context, p domain.Pattern, bucket int, entries []ports.ChunkEntry) error {
	if err := s.EnsurePatternDir(p); err != nil {
		return err
	}
	path := s.BucketPath(p, bucket)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return &domain.IOError{Path: tmp, Op: "create", Cause: err}
	}

	w := bufio.NewWriter(f)
	var prev string
	for i, e := range entries {
		if i > 0 && e.Sequence <= prev {
			f.Close()
			os.Remove(tmp)
			return &domain.InvariantViolation{Detail: fmt.Sprintf("chunk keys not strictly ascending at %q", e.Sequence)}
		}
		prev = e.Sequence
		if err := writeRow(w, e); err != nil {
			f.Close()
			os.Remove(tmp)
			return &domain.IOError{Path: tmp, Op: "write", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &domain.IOError{Path: tmp, Op: "flush", Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Path: tmp, Op: "close", Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Path: path, Op: "rename", Cause: err}
	}
	return nil
}

func writeRow(w *bufio.Writer, e ports.ChunkEntry) error {
	if e.Count.IsContinuation() {
		c := e.Count.Continuation
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", e.Sequence, c.N1Plus, c.N1, c.N2, c.N3Plus)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\t%d\n", e.Sequence, e.Count.Absolute)
	return err
}

// ReadChunk loads every row of the pattern/bucket chunk file.
func (s *Store) ReadChunk(ctx context.Context, p domain.Pattern, bucket int) ([]ports.ChunkEntry, error) {
	path := s.BucketPath(p, bucket)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	defer f.Close()

	continuation := p.IsContinuation()
	var entries []ports.ChunkEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 2 {
			return nil, &domain.FileFormatError{Path: path, Line: lineNo, Cause: fmt.Errorf("malformed chunk row")}
		}
		entry := ports.ChunkEntry{Sequence: cols[0]}
		if continuation {
			if len(cols) != 5 {
				return nil, &domain.FileFormatError{Path: path, Line: lineNo, Cause: fmt.Errorf("continuation row needs 5 columns, got %d", len(cols))}
			}
			vals := [4]uint64{}
			for i := 0; i < 4; i++ {
				n, err := strconv.ParseUint(cols[i+1], 10, 64)
				if err != nil {
					return nil, &domain.FileFormatError{Path: path, Line: lineNo, Cause: err}
				}
				vals[i] = n
			}
			cc := domain.ContinuationCounts{N1Plus: vals[0], N1: vals[1], N2: vals[2], N3Plus: vals[3]}
			if err := cc.Validate(); err != nil {
				return nil, &domain.InvariantViolation{Detail: err.Error()}
			}
			entry.Count = domain.NewContinuation(cc)
		} else {
			n, err := strconv.ParseUint(cols[1], 10, 64)
			if err != nil {
				return nil, &domain.FileFormatError{Path: path, Line: lineNo, Cause: err}
			}
			entry.Count = domain.NewAbsolute(n)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.IOError{Path: path, Op: "scan", Cause: err}
	}
	return entries, nil
}

// RemovePatternDir deletes the aggregated chunk directory for pattern
// (used to force a rebuild).
func (s *Store) RemovePatternDir(p domain.Pattern) error {
	dir := s.patternDir(p)
	if err := os.RemoveAll(dir); err != nil {
		return &domain.IOError{Path: dir, Op: "removeall", Cause: err}
	}
	return nil
}

// RemoveSplitDir deletes the split-file directory for pattern (kept only
// when the caller asked to retain staging files).
func (s *Store) RemoveSplitDir(p domain.Pattern) error {
	dir := s.splitDir(p)
	if err := os.RemoveAll(dir); err != nil {
		return &domain.IOError{Path: dir, Op: "removeall", Cause: err}
	}
	return nil
}

// ReadSplitLines loads every raw key emitted by the Sequencer into the
// pattern/bucket split file, one per n-gram window observed. Returns a
// nil slice, nil error if the split file does not exist (pattern never
// occurred in that bucket).
func (s *Store) ReadSplitLines(p domain.Pattern, bucket int) ([]string, error) {
	path := s.SplitPath(p, bucket)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.IOError{Path: path, Op: "scan", Cause: err}
	}
	return lines, nil
}

func modTime(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, &domain.IOError{Path: path, Op: "stat", Cause: err}
	}
	return info.ModTime(), true, nil
}

// SplitModTime reports the modification time of the raw split file for
// (pattern, bucket), and whether it exists.
func (s *Store) SplitModTime(p domain.Pattern, bucket int) (time.Time, bool, error) {
	return modTime(s.SplitPath(p, bucket))
}

// ChunkModTime reports the modification time of the aggregated chunk
// file for (pattern, bucket), and whether it exists.
func (s *Store) ChunkModTime(p domain.Pattern, bucket int) (time.Time, bool, error) {
	return modTime(s.BucketPath(p, bucket))
}

// SplitDirModTime reports the modification time of pattern's split
// directory, and whether it exists. A directory's mtime advances every
// time a file is created or removed inside it, so this is a cheap
// existed-and-was-touched-after-X check without statting every file.
func (s *Store) SplitDirModTime(p domain.Pattern) (time.Time, bool, error) {
	return modTime(s.splitDir(p))
}

// PatternDirModTime reports the modification time of pattern's
// aggregated chunk directory, and whether it exists.
func (s *Store) PatternDirModTime(p domain.Pattern) (time.Time, bool, error) {
	return modTime(s.patternDir(p))
}

var _ ports.ChunkStore = (*Store)(nil)
