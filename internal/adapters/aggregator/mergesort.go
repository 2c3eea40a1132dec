package aggregator

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/baditaflorin/glmkit/internal/adapters/mergeutil"
	"github.com/baditaflorin/glmkit/internal/core/domain"
)

// keyCount is one aggregated (key, occurrence count) pair.
type keyCount struct {
	key   string
	count uint64
}

// counter accumulates per-key occurrence counts for one split file,
// spilling a sorted run to a temp file whenever the in-memory key set
// grows past spillThreshold, then k-way merging the spilled runs back
// into one ascending sequence. A spillThreshold of 0 disables spilling:
// everything stays resident until finish.
type counter struct {
	spillThreshold int
	tmpDir         string
	counts         map[string]uint64
	runs           []string
}

func newCounter(spillThreshold int, tmpDir string) *counter {
	return &counter{
		spillThreshold: spillThreshold,
		tmpDir:         tmpDir,
		counts:         make(map[string]uint64),
	}
}

// add records one occurrence of key, spilling if the threshold is hit.
func (c *counter) add(key string) error {
	c.counts[key]++
	if c.spillThreshold > 0 && len(c.counts) >= c.spillThreshold {
		return c.spill()
	}
	return nil
}

// spill writes the current in-memory counts to a new sorted run file
// and resets the map. A no-op when the map is empty.
func (c *counter) spill() error {
	if len(c.counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.CreateTemp(c.tmpDir, "aggregator-run-*")
	if err != nil {
		return &domain.IOError{Path: c.tmpDir, Op: "createtemp", Cause: err}
	}
	w := bufio.NewWriter(f)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", k, c.counts[k]); err != nil {
			f.Close()
			os.Remove(f.Name())
			return &domain.IOError{Path: f.Name(), Op: "write", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return &domain.IOError{Path: f.Name(), Op: "flush", Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return &domain.IOError{Path: f.Name(), Op: "close", Cause: err}
	}
	c.runs = append(c.runs, f.Name())
	c.counts = make(map[string]uint64)
	return nil
}

// finish returns every (key, count) pair in ascending key order, merging
// across any spilled runs, and removes the run files it created.
func (c *counter) finish() ([]keyCount, error) {
	if len(c.runs) == 0 {
		keys := make([]string, 0, len(c.counts))
		for k := range c.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]keyCount, len(keys))
		for i, k := range keys {
			out[i] = keyCount{key: k, count: c.counts[k]}
		}
		return out, nil
	}
	if err := c.spill(); err != nil {
		return nil, err
	}
	defer func() {
		for _, p := range c.runs {
			os.Remove(p)
		}
	}()
	return mergeRuns(c.runs)
}

// runReader streams one spilled run file as a mergeutil.Source[uint64].
type runReader struct {
	f     *os.File
	sc    *bufio.Scanner
	key   string
	count uint64
	ok    bool
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	r := &runReader{f: f, sc: sc}
	if err := r.Advance(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *runReader) Key() string   { return r.key }
func (r *runReader) Valid() bool   { return r.ok }
func (r *runReader) Current() uint64 { return r.count }

func (r *runReader) Advance() error {
	if !r.sc.Scan() {
		r.ok = false
		if err := r.sc.Err(); err != nil {
			return &domain.IOError{Path: r.f.Name(), Op: "scan", Cause: err}
		}
		return nil
	}
	cols := strings.SplitN(r.sc.Text(), "\t", 2)
	if len(cols) != 2 {
		return &domain.FileFormatError{Path: r.f.Name(), Cause: fmt.Errorf("malformed run row %q", r.sc.Text())}
	}
	n, err := strconv.ParseUint(cols[1], 10, 64)
	if err != nil {
		return &domain.FileFormatError{Path: r.f.Name(), Cause: err}
	}
	r.key, r.count, r.ok = cols[0], n, true
	return nil
}

// mergeRuns k-way merges sorted run files, summing counts for keys that
// appear in more than one run, and closes every run file it opened.
func mergeRuns(paths []string) ([]keyCount, error) {
	readers := make([]*runReader, 0, len(paths))
	sources := make([]mergeutil.Source[uint64], 0, len(paths))
	defer func() {
		for _, r := range readers {
			r.f.Close()
		}
	}()
	for _, p := range paths {
		r, err := openRun(p)
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)
		sources = append(sources, r)
	}

	merger := mergeutil.NewMerger(sources)
	var out []keyCount
	for merger.Len() > 0 {
		key, _ := merger.Peek()
		var sum uint64
		for merger.Len() > 0 {
			k, count := merger.Peek()
			if k != key {
				break
			}
			sum += count
			if err := merger.Advance(); err != nil {
				return nil, err
			}
		}
		out = append(out, keyCount{key: key, count: sum})
	}
	return out, nil
}
