// Package concord is the library facade: it wires configuration, the
// external engine and the run ledger to the three entry points Annotate,
// Align and Ingest. Every entry point works on a copy of the document and
// records one run.
package concord

import (
	"context"
	"log/slog"
	"time"

	"github.com/cognicore/concord/pkg/concord/config"
	"github.com/cognicore/concord/pkg/concord/coref"
	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/ingest"
	"github.com/cognicore/concord/pkg/concord/inject"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
	"github.com/cognicore/concord/pkg/concord/store"
	"github.com/cognicore/concord/pkg/concord/store/memstore"
	"github.com/cognicore/concord/pkg/concord/walker"
)

// Concord is the main alignment facade
type Concord struct {
	cfg      config.Config
	store    store.Store
	injector *inject.Injector
	pipeline *ingest.Pipeline
	walker   *walker.Walker
	ids      *store.IDSource
	now      func() time.Time
	log      *slog.Logger
}

// Options configures a Concord instance. Engine may be nil when only Align
// is used. A nil Store keeps runs in memory.
type Options struct {
	Config config.Config
	Engine engine.Engine
	Store  store.Store
	Now    func() time.Time
	Log    *slog.Logger
}

// New validates the configuration and builds the components.
func New(opts Options) (*Concord, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Concord{
		cfg:   cfg,
		store: opts.Store,
		ids:   store.NewIDSource(),
		now:   opts.Now,
		log:   opts.Log,
	}
	if c.store == nil {
		c.store = memstore.New()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	layers := cfg.LayerSet()
	c.walker = walker.New(walker.Options{Tool: cfg.Tool, Layers: layers, Now: c.now, Log: c.log})

	if opts.Engine != nil {
		var err error
		c.injector, err = inject.New(inject.Options{
			Engine:     opts.Engine,
			Language:   cfg.Language,
			BodyLabels: cfg.BodyLabels,
			Layers:     layers,
			Tool:       cfg.Tool,
			Now:        c.now,
			Log:        c.log,
		})
		if err != nil {
			return nil, err
		}
		c.pipeline, err = ingest.NewPipeline(ingest.Options{
			Engine:     opts.Engine,
			Language:   cfg.Language,
			BodyLabels: cfg.BodyLabels,
			Layers:     layers,
			Tool:       cfg.Tool,
			Now:        c.now,
			Log:        c.log,
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Close cleanly shuts down the Concord instance
func (c *Concord) Close() error {
	return c.store.Close()
}

// Config returns the effective configuration.
func (c *Concord) Config() config.Config { return c.cfg }

// Store exposes the run ledger.
func (c *Concord) Store() store.Store { return c.store }

// Annotate injects engine annotations into every eligible section of an
// already tokenized document.
func (c *Concord) Annotate(ctx context.Context, doc *schema.Document) (*schema.Document, store.Run, error) {
	run := c.begin(doc, store.ModeAnnotate)
	if c.injector == nil {
		err := errNoEngine()
		return nil, c.finish(ctx, run, err), err
	}
	out, stats, err := c.injector.AnnotateDocument(ctx, doc)
	run.Sections = stats.Sections
	run.Sentences = stats.Sentences
	return out, c.finish(ctx, run, err), err
}

// AlignRequest is a walker request plus optional coreference chains indexed
// into the same stream.
type AlignRequest struct {
	SegmentationID string           `json:"segmentation_id"`
	SectionIDs     []string         `json:"section_ids"`
	SentenceCounts []int            `json:"sentence_counts"`
	Stream         []*flat.Sentence `json:"stream"`
	Corefs         []*flat.Chain    `json:"corefs,omitempty"`
}

// Align maps a pre-built flat stream onto the requested sections.
func (c *Concord) Align(ctx context.Context, doc *schema.Document, req AlignRequest) (*schema.Document, store.Run, error) {
	run := c.begin(doc, store.ModeAlign)
	res, err := c.walker.Align(doc, walker.Request{
		SegmentationID: req.SegmentationID,
		SectionIDs:     req.SectionIDs,
		SentenceCounts: req.SentenceCounts,
		Stream:         req.Stream,
	})
	if err != nil {
		return nil, c.finish(ctx, run, err), err
	}
	run.Sections = len(res.Segmentations)
	run.Sentences = len(res.Tokenizations)
	if len(req.Corefs) > 0 {
		ems, es, err := coref.Attach(res.Document, req.Corefs, res.Tokenizations, schema.NewMetadata(c.cfg.Tool, c.now()))
		if err != nil {
			return nil, c.finish(ctx, run, err), err
		}
		run.Mentions = len(ems.Mentions)
		run.Entities = len(es.Entities)
	}
	return res.Document, c.finish(ctx, run, nil), nil
}

// Ingest segments and annotates raw section text through the engine.
func (c *Concord) Ingest(ctx context.Context, doc *schema.Document, segmentationID string) (*schema.Document, store.Run, error) {
	run := c.begin(doc, store.ModeIngest)
	if c.pipeline == nil {
		err := errNoEngine()
		return nil, c.finish(ctx, run, err), err
	}
	res, err := c.pipeline.Process(ctx, doc, segmentationID)
	if err != nil {
		return nil, c.finish(ctx, run, err), err
	}
	run.Sections = len(res.SectionIDs)
	run.Sentences = len(res.Stream.Sentences)
	run.Mentions = res.Mentions
	run.Entities = res.Entities
	return res.Document, c.finish(ctx, run, nil), nil
}

// Runs lists a document's runs, newest first.
func (c *Concord) Runs(ctx context.Context, documentID string, limit int) ([]store.Run, error) {
	return c.store.ListRuns(ctx, documentID, limit)
}

// Run returns one run by ID.
func (c *Concord) Run(ctx context.Context, id string) (store.Run, error) {
	return c.store.GetRun(ctx, id)
}

func (c *Concord) begin(doc *schema.Document, mode store.Mode) store.Run {
	started := c.now()
	return store.Run{
		ID:          c.ids.New(started),
		DocumentID:  doc.ID,
		ContentHash: store.ContentHash(doc.Text),
		Mode:        mode,
		Language:    c.cfg.Language,
		Tool:        c.cfg.Tool,
		StartedAt:   started,
	}
}

// finish stamps and records the run. A ledger failure is logged and never
// replaces the outcome of the document itself.
func (c *Concord) finish(ctx context.Context, run store.Run, err error) store.Run {
	run.FinishedAt = c.now()
	run.Status = store.StatusSucceeded
	if err != nil {
		run.Status = store.StatusFailed
		run.Error = err.Error()
	}
	if rerr := c.store.RecordRun(ctx, run); rerr != nil {
		c.log.Warn("record run failed", "run_id", run.ID, "doc_id", run.DocumentID, "error", rerr)
	}
	log := c.log.With("doc_id", run.DocumentID, "run_id", run.ID, "mode", run.Mode)
	if err != nil {
		log.Warn("document failed", "error", err)
	} else {
		log.Info("document processed", "sections", run.Sections, "sentences", run.Sentences, "entities", run.Entities)
	}
	return run
}

func errNoEngine() error {
	return internalerr.NewValidation("engine", "no annotation engine configured")
}
