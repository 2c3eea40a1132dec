package sequencer

import (
	"bufio"
	"container/list"
	"os"

	"github.com/baditaflorin/glmkit/internal/core/domain"
)

// writerCache is a bounded, least-recently-written cache of open append
// writers, keyed by split-file path. When the open-file budget is
// exceeded it closes the least-recently-written writer; reopening it
// later in append mode is safe because split files are not sorted yet.
type writerCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently written
}

type writerEntry struct {
	path string
	file *os.File
	w    *bufio.Writer
}

func newWriterCache(capacity int) *writerCache {
	if capacity <= 0 {
		capacity = DefaultOpenFileBudget
	}
	return &writerCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Append writes line+"\n" to the split file at path, opening (or
// reopening, in append mode) it as needed and evicting the
// least-recently-written entry if the cache is at capacity.
func (c *writerCache) Append(path, line string) error {
	if el, ok := c.entries[path]; ok {
		c.order.MoveToFront(el)
		we := el.Value.(*writerEntry)
		_, err := we.w.WriteString(line)
		if err == nil {
			err = we.w.WriteByte('\n')
		}
		if err != nil {
			return &domain.IOError{Path: path, Op: "write", Cause: err}
		}
		return nil
	}

	if c.order.Len() >= c.capacity {
		if err := c.evictOldest(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &domain.IOError{Path: path, Op: "open", Cause: err}
	}
	we := &writerEntry{path: path, file: f, w: bufio.NewWriter(f)}
	el := c.order.PushFront(we)
	c.entries[path] = el

	if _, err := we.w.WriteString(line); err != nil {
		return &domain.IOError{Path: path, Op: "write", Cause: err}
	}
	if err := we.w.WriteByte('\n'); err != nil {
		return &domain.IOError{Path: path, Op: "write", Cause: err}
	}
	return nil
}

func (c *writerCache) evictOldest() error {
	el := c.order.Back()
	if el == nil {
		return nil
	}
	we := el.Value.(*writerEntry)
	c.order.Remove(el)
	delete(c.entries, we.path)
	return closeEntry(we)
}

func closeEntry(we *writerEntry) error {
	if err := we.w.Flush(); err != nil {
		we.file.Close()
		return &domain.IOError{Path: we.path, Op: "flush", Cause: err}
	}
	if err := we.file.Close(); err != nil {
		return &domain.IOError{Path: we.path, Op: "close", Cause: err}
	}
	return nil
}

// CloseAll flushes and closes every open writer, in LRU order.
func (c *writerCache) CloseAll() error {
	var firstErr error
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		we := el.Value.(*writerEntry)
		if err := closeEntry(we); err != nil && firstErr == nil {
			firstErr = err
		}
		c.order.Remove(el)
		delete(c.entries, we.path)
		el = prev
	}
	return firstErr
}
