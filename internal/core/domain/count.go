package domain

import "fmt"

// ContinuationCounts is the (N1+, N1, N2, N3+) tuple recorded for a
// continuation-pattern key: the distinct-context witness count and its
// decomposition into frequency buckets, used by Kneser-Ney smoothing.
type ContinuationCounts struct {
	N1Plus uint64
	N1     uint64
	N2     uint64
	N3Plus uint64
}

// Validate checks the invariant N1+ >= N1+N2+N3+.
func (c ContinuationCounts) Validate() error {
	sum := c.N1 + c.N2 + c.N3Plus
	if c.N1Plus < sum {
		return fmt.Errorf("domain: invariant violation: n1+ (%d) < n1+n2+n3+ (%d)", c.N1Plus, sum)
	}
	return nil
}

// CountRecord is either an absolute count or a continuation tuple,
// never both. The zero value is not a valid record.
type CountRecord struct {
	Absolute     uint64
	Continuation ContinuationCounts
	isCont       bool
	isAbs        bool
}

// NewAbsolute builds an absolute CountRecord.
func NewAbsolute(n uint64) CountRecord {
	return CountRecord{Absolute: n, isAbs: true}
}

// NewContinuation builds a continuation CountRecord.
func NewContinuation(c ContinuationCounts) CountRecord {
	return CountRecord{Continuation: c, isCont: true}
}

// IsContinuation reports whether the record holds a continuation tuple.
func (r CountRecord) IsContinuation() bool { return r.isCont }

// IsAbsolute reports whether the record holds an absolute count.
func (r CountRecord) IsAbsolute() bool { return r.isAbs }
