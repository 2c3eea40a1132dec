// Command glmkit-build drives a corpus into a working directory's
// chunked pattern store, analogous to the teacher's examples/CLI_TOOL
// demonstration CLI. Thin: flag parsing only, no CLI framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/pkg/glmkit"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("glmkit-build", flag.ContinueOnError)
	corpus := fs.String("corpus", "", "path to the corpus text file (required)")
	workDir := fs.String("workdir", "", "working directory for the pattern store (required)")
	order := fs.String("order", "", "build the all-count pattern of this window length, e.g. 3 for \"ccc\"")
	patterns := fs.String("patterns", "", "comma-separated pattern labels to build, e.g. cc,ccc,scc")
	workers := fs.Int("workers", 4, "aggregator worker-pool size")
	buckets := fs.Int("buckets", 64, "WordIndex bucket count (first build only)")
	sentenceMarkers := fs.Bool("sentence-markers", false, "insert sentence-boundary markers into the token stream")
	logToConsole := fs.Bool("log-to-console", false, "also write log events to stdout")
	keepTemp := fs.Bool("keep-temp", false, "create aggregator spill files in workdir/tmp instead of the OS temp dir (they are still removed after merging)")
	debug := fs.Bool("debug", false, "print the full error chain instead of just the top message")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return domain.ExitCLIArgumentError
	}

	labels, err := resolveLabels(*order, *patterns)
	if err != nil {
		return reportErr(err, *debug)
	}
	if *corpus == "" || *workDir == "" {
		return reportErr(&domain.CLIArgumentError{Detail: "-corpus and -workdir are required"}, *debug)
	}

	opts := []glmkit.BuilderOption{
		glmkit.WithBuckets(*buckets),
		glmkit.WithWorkers(*workers),
		glmkit.WithSentenceMarkers(*sentenceMarkers),
		glmkit.WithLogToConsole(*logToConsole),
	}
	if *keepTemp {
		tmp := *workDir + string(os.PathSeparator) + "tmp"
		if err := os.MkdirAll(tmp, 0o755); err != nil {
			return reportErr(&domain.IOError{Path: tmp, Op: "mkdir", Cause: err}, *debug)
		}
		opts = append(opts, glmkit.WithTempDir(tmp))
	}

	b, err := glmkit.NewBuilder(*corpus, *workDir, opts...)
	if err != nil {
		return reportErr(err, *debug)
	}
	defer b.Close()

	report, err := b.Build(context.Background(), labels...)
	if err != nil {
		return reportErr(err, *debug)
	}

	fmt.Printf("built %s: %d patterns, %d tokens, %d vocabulary words, %d sequence passes\n",
		*workDir, len(labels), report.Stats.Tokens, report.Stats.Vocabulary, len(report.SequenceLog))
	return domain.ExitSuccess
}

// resolveLabels merges -order (a shorthand for the all-count pattern of
// that window length) with -patterns into one label list.
func resolveLabels(order, patterns string) ([]string, error) {
	var labels []string
	if order != "" {
		n, err := strconv.Atoi(order)
		if err != nil || n <= 0 {
			return nil, &domain.CLIArgumentError{Detail: "-order must be a positive integer"}
		}
		labels = append(labels, strings.Repeat(string(domain.CNT), n))
	}
	for _, l := range strings.Split(patterns, ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return nil, &domain.CLIArgumentError{Detail: "at least one of -order or -patterns is required"}
	}
	return labels, nil
}

type exitCoder interface{ ExitCode() int }

func reportErr(err error, debug bool) int {
	if debug {
		fmt.Fprintf(os.Stderr, "glmkit-build: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "glmkit-build: %v\n", err)
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return domain.ExitInvariant
}
