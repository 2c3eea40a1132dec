// Package corpus implements the streaming corpus reader shared by
// WordIndex building and the Sequencer: it turns a byte stream of
// whitespace-tokenised lines into validated token slices, optionally
// bracketed by sentence-boundary markers.
package corpus

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/internal/pool"
)

// scanBufPool reuses the scanner's initial line buffer across Scan
// calls: the pipeline driver runs one Scan per window length (WordIndex
// build plus one Sequencer pass per length), so a fresh 64KB allocation
// per call is avoidable scratch-buffer churn.
var scanBufPool = pool.NewBufferPool(64 * 1024)

// Sentence-boundary marker tokens, inserted only when WithSentenceMarkers
// is enabled. They are not reserved symbols; they are ordinary tokens
// chosen to be visually distinct and never mistaken for corpus words.
const (
	SentenceBegin = "<s>"
	SentenceEnd   = "</s>"
)

// Options configures how the corpus is scanned.
type Options struct {
	// SentenceMarkers, when true, prepends SentenceBegin and appends
	// SentenceEnd to every line before windowing. Build and query must
	// agree on this setting.
	SentenceMarkers bool
}

// Line is one tokenised, validated corpus line.
type Line struct {
	Number int // 1-based
	Tokens []domain.Word
}

// LineFunc is called once per scanned line. Returning an error stops the
// scan and the error propagates to the caller of Scan.
type LineFunc func(Line) error

// Scan reads r line by line, splits each line on whitespace, validates
// every token against the reserved-symbol set, and invokes fn. A
// reserved symbol in a token aborts the scan with a
// *domain.FileFormatError citing the 1-based line number.
func Scan(r io.Reader, path string, opts Options, fn LineFunc) (lines int, tokens int, err error) {
	buf := scanBufPool.Get()
	defer scanBufPool.Put(buf)

	scanner := bufio.NewScanner(r)
	scanner.Buffer((*buf)[:cap(*buf)], 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		for _, tok := range fields {
			if sym := domain.ReservedSymbol(tok); sym != "" {
				return lines, tokens, &domain.FileFormatError{
					Path:  path,
					Line:  lineNo,
					Cause: &reservedSymbolError{symbol: sym, token: tok},
				}
			}
		}

		if len(fields) == 0 {
			continue
		}

		toks := fields
		if opts.SentenceMarkers {
			toks = make([]domain.Word, 0, len(fields)+2)
			toks = append(toks, SentenceBegin)
			toks = append(toks, fields...)
			toks = append(toks, SentenceEnd)
		}

		lines++
		tokens += len(fields)

		if err := fn(Line{Number: lineNo, Tokens: toks}); err != nil {
			return lines, tokens, err
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, tokens, &domain.IOError{Path: path, Op: "scan", Cause: err}
	}
	return lines, tokens, nil
}

type reservedSymbolError struct {
	symbol string
	token  string
}

func (e *reservedSymbolError) Error() string {
	return "reserved symbol " + strconv.Quote(e.symbol) + " found in token " + strconv.Quote(e.token)
}
