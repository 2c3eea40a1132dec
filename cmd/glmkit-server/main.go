// Command glmkit-server is an HTTP demonstration server exposing
// argmax completion queries over a cache loaded from a working
// directory built by glmkit-build, grounded on the teacher's
// cmd/server/main.go (fasthttp + graceful shutdown).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baditaflorin/glmkit/internal/core/domain"
	"github.com/baditaflorin/glmkit/pkg/glmkit"
	"github.com/valyala/fasthttp"
)

const (
	defaultPort        = 8090
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// ArgmaxRequest is the JSON body accepted by POST /argmax.
type ArgmaxRequest struct {
	Pattern string `json:"pattern"`
	History string `json:"history"`
	Prefix  string `json:"prefix"`
	K       int    `json:"k"`
}

// ArgmaxResponse is the JSON body returned by POST /argmax.
type ArgmaxResponse struct {
	Completions []completionView `json:"completions"`
}

type completionView struct {
	Sequence string  `json:"sequence"`
	Absolute uint64  `json:"absolute"`
	Score    float64 `json:"score"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var query *glmkit.Query

func main() {
	port := flag.Int("port", defaultPort, "HTTP server port")
	workDir := flag.String("workdir", "", "working directory built by glmkit-build (required)")
	pattern := flag.String("pattern", "", "default pattern label loaded into the cache, e.g. ccc (required)")
	readTimeout := flag.Duration("read-timeout", defaultReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", defaultWriteTimeout, "HTTP write timeout")
	flag.Parse()

	if *workDir == "" || *pattern == "" {
		fmt.Fprintln(os.Stderr, "glmkit-server: -workdir and -pattern are required")
		os.Exit(domain.ExitCLIArgumentError)
	}

	var err error
	query, err = loadQuery(*workDir, *pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "glmkit-server: %v\n", err)
		os.Exit(domain.ExitIOError)
	}

	server := &fasthttp.Server{
		Handler:      requestHandler,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		if err := server.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "glmkit-server: shutdown error: %v\n", err)
		}
		close(idleConnsClosed)
	}()

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("glmkit-server listening on %s, pattern=%q workdir=%q\n", addr, *pattern, *workDir)
	if err := server.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "glmkit-server: %v\n", err)
	}

	<-idleConnsClosed
}

// loadQuery opens workDir's pattern store read-only, loads
// defaultPattern into a trie-backed Cache, and wraps it in a Query.
func loadQuery(workDir, defaultPattern string) (*glmkit.Query, error) {
	st := glmkit.OpenStore(workDir)

	c := glmkit.NewCache(glmkit.TrieBacking)
	if err := c.Load(context.Background(), st, defaultPattern); err != nil {
		return nil, err
	}
	return glmkit.NewQuery(c)
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	switch string(ctx.Path()) {
	case "/health":
		handleHealth(ctx)
	case "/argmax":
		handleArgmax(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSONError(ctx, "not found")
	}
}

func handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSON(ctx, map[string]string{"status": "ok"})
}

func handleArgmax(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "method not allowed")
		return
	}

	var req ArgmaxRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "invalid request: "+err.Error())
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	score := func(_ string, count domain.CountRecord) float64 { return float64(count.Absolute) }
	results := query.Argmax(c, req.History, req.Prefix, req.K, score)

	views := make([]completionView, len(results))
	for i, r := range results {
		views[i] = completionView{Sequence: r.Sequence, Absolute: r.Count.Absolute, Score: r.Score}
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSON(ctx, ArgmaxResponse{Completions: views})
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":"internal server error"}`)
		return
	}
	ctx.SetBody(body)
}

func writeJSONError(ctx *fasthttp.RequestCtx, msg string) {
	writeJSON(ctx, ErrorResponse{Error: msg})
}
