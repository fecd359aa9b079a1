package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cognicore/concord/internal/api"
	"github.com/cognicore/concord/internal/sgml"
	"github.com/cognicore/concord/pkg/concord"
	"github.com/cognicore/concord/pkg/concord/batch"
	"github.com/cognicore/concord/pkg/concord/container"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/schema"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runBatch applies fn to every document of input and writes successes to
// output. Any failed document makes the command fail after the batch ends.
func runBatch(ctx context.Context, cc *concord.Concord, input, output string, fn batch.Process) error {
	kind, err := container.KindOf(input)
	if err != nil {
		return err
	}
	if output == "" {
		output = container.DefaultOutput(input)
	}
	sink, err := container.NewSink(output, kind)
	if err != nil {
		return err
	}
	runner := &batch.Runner{Workers: cc.Config().Workers}
	rep, err := runner.Run(ctx, input, sink, fn)
	if perr := printJSON(rep); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return err
	}
	return rep.Err()
}

// AnnotateCmd annotates every eligible section of tokenized documents.
type AnnotateCmd struct {
	Input  string `arg:"" help:"Document container (.json, directory, .zip, .tar.xz or .tar.gz)" type:"existingpath"`
	Output string `arg:"" optional:"" help:"Output container (default: <input stem>.annotated<ext>)" type:"path"`
	Lang   string `arg:"" optional:"" default:"en" help:"Language: en, zh (or cn)"`
}

func (c *AnnotateCmd) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()
	cc, _, err := g.open(ctx, c.Lang)
	if err != nil {
		return err
	}
	defer cc.Close()
	return runBatch(ctx, cc, c.Input, c.Output, func(ctx context.Context, name string, doc *schema.Document) (*schema.Document, error) {
		out, _, err := cc.Annotate(ctx, doc)
		return out, err
	})
}

// IngestCmd runs the raw-text pipeline over a container.
type IngestCmd struct {
	Input          string `arg:"" help:"Document container" type:"existingpath"`
	Output         string `arg:"" optional:"" help:"Output container" type:"path"`
	Lang           string `name:"lang" short:"l" help:"Language: en, zh (or cn)"`
	SegmentationID string `name:"segmentation" short:"s" help:"Section segmentation id (default: the only one)"`
}

func (c *IngestCmd) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()
	cc, _, err := g.open(ctx, c.Lang)
	if err != nil {
		return err
	}
	defer cc.Close()
	return runBatch(ctx, cc, c.Input, c.Output, func(ctx context.Context, name string, doc *schema.Document) (*schema.Document, error) {
		out, _, err := cc.Ingest(ctx, doc, c.SegmentationID)
		return out, err
	})
}

// AlignCmd maps a flat stream file onto one document.
type AlignCmd struct {
	Input          string   `arg:"" help:"Document (.json)" type:"existingfile"`
	Stream         string   `name:"stream" required:"" help:"Flat stream: .jsonl records or a JSON document with corefs" type:"existingfile"`
	SegmentationID string   `name:"segmentation" short:"s" required:"" help:"Section segmentation id"`
	Sections       []string `name:"section" required:"" help:"Target section ids, in stream order"`
	Counts         []int    `name:"count" required:"" help:"Sentences per target section"`
	Output         string   `name:"output" short:"o" help:"Output file (default: <input stem>.annotated.json)" type:"path"`
}

func (c *AlignCmd) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()
	cc, _, err := g.open(ctx, "")
	if err != nil {
		return err
	}
	defer cc.Close()

	doc, err := container.ReadFile(c.Input)
	if err != nil {
		return err
	}
	stream, err := flat.Load(c.Stream)
	if err != nil {
		return err
	}
	out, run, err := cc.Align(ctx, doc, concord.AlignRequest{
		SegmentationID: c.SegmentationID,
		SectionIDs:     c.Sections,
		SentenceCounts: c.Counts,
		Stream:         stream.Sentences,
		Corefs:         stream.Corefs,
	})
	if err != nil {
		return err
	}
	output := c.Output
	if output == "" {
		output = container.DefaultOutput(c.Input)
	}
	if err := container.WriteFile(output, out); err != nil {
		return err
	}
	return printJSON(run)
}

// ImportCmd converts SGML files into one JSON document per <DOC>.
type ImportCmd struct {
	Inputs []string `arg:"" help:"SGML files" type:"existingfile"`
	Output string   `name:"output" short:"o" required:"" help:"Output directory" type:"path"`
}

func (c *ImportCmd) Run(g *Globals) error {
	cfg, log, err := g.load("")
	if err != nil {
		return err
	}
	sink, err := container.NewSink(c.Output, container.KindDir)
	if err != nil {
		return err
	}
	for _, path := range c.Inputs {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		docs, err := sgml.Parse(f, sgml.Options{Tool: cfg.Tool})
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, doc := range docs {
			if err := sink.Put(container.Entry{Name: safeName(doc.ID) + ".json", Document: doc}); err != nil {
				return err
			}
		}
		log.Info("imported", "file", path, "documents", len(docs))
	}
	if err := sink.Commit(); err != nil {
		return err
	}
	fmt.Printf("Imported %d documents into %s\n", sink.Written(), c.Output)
	return nil
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		if r == filepath.Separator || r == '/' || r == 0 {
			return '_'
		}
		return r
	}, id)
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Addr string `name:"addr" help:"Listen address (default from config)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signalContext()
	defer cancel()
	cc, log, err := g.open(ctx, "")
	if err != nil {
		return err
	}
	defer cc.Close()

	addr := c.Addr
	if addr == "" {
		addr = cc.Config().Server.Addr
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(cc, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cc.Config().Engine.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting concord", "addr", addr, "language", cc.Config().Language)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunsCmd prints the run history of a document.
type RunsCmd struct {
	DocumentID string `arg:"" help:"Document id"`
	Limit      int    `name:"limit" short:"n" default:"20" help:"Maximum runs to show (0 for all)"`
}

func (c *RunsCmd) Run(g *Globals) error {
	ctx := context.Background()
	cc, _, err := g.open(ctx, "")
	if err != nil {
		return err
	}
	defer cc.Close()
	runs, err := cc.Runs(ctx, c.DocumentID, c.Limit)
	if err != nil {
		return err
	}
	return printJSON(runs)
}
