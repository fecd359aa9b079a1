// Package batch runs one operation over every document of a container with
// a bounded worker pool. A failing document is recorded and skipped; it never
// stops the batch and is never written to the output.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/concord/pkg/concord/container"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Process transforms one document.
type Process func(ctx context.Context, name string, doc *schema.Document) (*schema.Document, error)

// Runner executes batches.
type Runner struct {
	Workers int
	Log     *slog.Logger
}

// Failure describes one document that was not written.
type Failure struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error"`
	Alignment  bool   `json:"alignment"`
}

// Report summarizes a batch.
type Report struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Failed reports whether any document failed.
func (r *Report) Failed() bool { return len(r.Failures) > 0 }

// Err returns a summary error when any document failed.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("%d of %d documents failed", len(r.Failures), r.Total)
}

// Run reads every document at input, applies fn and puts the results into
// sink. The returned error covers only container-level problems and context
// cancellation; per-document failures are in the report.
func (r *Runner) Run(ctx context.Context, input string, sink *container.Sink, fn Process) (*Report, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	rep := &Report{Failures: []Failure{}}
	var mu sync.Mutex
	fail := func(name, docID string, err error) {
		log.Warn("document failed", "name", name, "doc_id", docID, "error", err)
		mu.Lock()
		rep.Failures = append(rep.Failures, Failure{Name: name, DocumentID: docID, Error: err.Error(), Alignment: internalerr.IsAlignment(err)})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := container.Walk(input, func(name string, e *container.Entry, err error) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		rep.Total++
		mu.Unlock()
		if err != nil {
			fail(name, "", err)
			return nil
		}
		g.Go(func() error {
			out, err := fn(gctx, name, e.Document)
			if err != nil {
				fail(name, e.Document.ID, err)
				return nil
			}
			if err := sink.Put(container.Entry{Name: name, Document: out}); err != nil {
				fail(name, e.Document.ID, fmt.Errorf("write: %w", err))
				return nil
			}
			mu.Lock()
			rep.Succeeded++
			mu.Unlock()
			return nil
		})
		return nil
	})
	waitErr := g.Wait()
	rep.Elapsed = time.Since(start)
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Name < rep.Failures[j].Name })

	if walkErr != nil {
		return rep, walkErr
	}
	if waitErr != nil {
		return rep, waitErr
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if err := sink.Commit(); err != nil {
		return rep, fmt.Errorf("commit output: %w", err)
	}
	log.Info("batch complete", "total", rep.Total, "succeeded", rep.Succeeded, "failed", len(rep.Failures), "elapsed", rep.Elapsed)
	return rep, nil
}
