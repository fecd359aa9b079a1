// Package inject annotates already tokenized documents: each eligible
// Section is sent through the external engine once, with its sentence
// partition fixed, and the returned layers are written back onto the
// existing Tokenizations by position.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/concord/pkg/concord/bridge"
	"github.com/cognicore/concord/pkg/concord/convert"
	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Options configures an Injector.
type Options struct {
	Engine     engine.Engine
	Language   string
	BodyLabels []string
	Layers     convert.LayerSet
	Tool       string
	Now        func() time.Time
	Log        *slog.Logger
}

// Injector writes engine annotations onto existing tokenizations.
type Injector struct {
	engine engine.Engine
	recon  *bridge.Reconstructor
	labels map[string]struct{}
	layers convert.LayerSet
	tool   string
	now    func() time.Time
	log    *slog.Logger
}

// Stats summarizes one AnnotateDocument call.
type Stats struct {
	Sections  int
	Skipped   int
	Sentences int
}

// New validates the options. An unsupported language fails here, before any
// document is processed.
func New(opts Options) (*Injector, error) {
	if opts.Engine == nil {
		return nil, internalerr.NewValidation("engine", "an engine is required")
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	recon, err := bridge.NewReconstructor(opts.Language, log)
	if err != nil {
		return nil, err
	}
	in := &Injector{
		engine: opts.Engine,
		recon:  recon,
		labels: make(map[string]struct{}, len(opts.BodyLabels)),
		layers: opts.Layers,
		tool:   opts.Tool,
		now:    opts.Now,
		log:    log,
	}
	for _, l := range opts.BodyLabels {
		in.labels[l] = struct{}{}
	}
	if in.layers == (convert.LayerSet{}) {
		in.layers = convert.AllLayers()
	}
	if in.tool == "" {
		in.tool = "concord"
	}
	if in.now == nil {
		in.now = time.Now
	}
	return in, nil
}

// Eligible reports whether a section receives annotation: its label is unset
// or belongs to the configured body-text label set.
func (in *Injector) Eligible(sec *schema.Section) bool {
	if sec.Label == "" {
		return true
	}
	_, ok := in.labels[sec.Label]
	return ok
}

// AnnotateDocument annotates every eligible section of every section
// segmentation in a copy of doc and returns the copy.
func (in *Injector) AnnotateDocument(ctx context.Context, doc *schema.Document) (*schema.Document, Stats, error) {
	var stats Stats
	out := doc.Clone()
	runes := out.Runes()
	for _, ss := range out.SectionSegmentations {
		for _, sec := range ss.Sections {
			if !in.Eligible(sec) {
				stats.Skipped++
				continue
			}
			sents := sec.Sentences()
			if len(sents) == 0 {
				stats.Skipped++
				in.log.Debug("section has no sentences", "doc_id", doc.ID, "section_id", sec.ID)
				continue
			}
			if err := in.injectSection(ctx, sec, out, runes); err != nil {
				return nil, stats, fmt.Errorf("section %s: %w", sec.ID, err)
			}
			stats.Sections++
			stats.Sentences += len(sents)
		}
	}
	return out, stats, nil
}

// InjectSection annotates sec in place. The section's tokenizations are
// replaced only after every sentence converted, so a failure leaves sec as
// it was.
func (in *Injector) InjectSection(ctx context.Context, sec *schema.Section, doc *schema.Document) error {
	return in.injectSection(ctx, sec, doc, doc.Runes())
}

// InjectSentence annotates a single sentence in place.
func (in *Injector) InjectSentence(ctx context.Context, sent *schema.Sentence, doc *schema.Document) error {
	return in.inject(ctx, sent.ID, []*schema.Sentence{sent}, doc, doc.Runes())
}

func (in *Injector) injectSection(ctx context.Context, sec *schema.Section, doc *schema.Document, runes []rune) error {
	return in.inject(ctx, sec.ID, sec.Sentences(), doc, runes)
}

func (in *Injector) inject(ctx context.Context, scope string, sents []*schema.Sentence, doc *schema.Document, runes []rune) error {
	req, err := in.recon.Request(doc, runes, sents)
	if err != nil {
		return err
	}
	results, err := in.engine.AnnotateTokens(ctx, req)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if len(results) != len(sents) {
		return &internalerr.AnnotationCountMismatchError{
			Level:    "sentence",
			Scope:    scope,
			Expected: len(sents),
			Actual:   len(results),
		}
	}

	meta := schema.NewMetadata(in.tool, in.now())
	updated := make([]*schema.Tokenization, len(sents))
	for i, s := range sents {
		if results[i] == nil || len(results[i].Tokens) == 0 {
			return &internalerr.EmptySentenceError{SentenceID: s.ID, Position: i}
		}
		tok := s.Tokenization.Clone()
		if err := convert.Attach(tok, results[i], in.layers, meta); err != nil {
			return fmt.Errorf("sentence %s: %w", s.ID, err)
		}
		updated[i] = tok
	}
	for i, s := range sents {
		s.Tokenization = updated[i]
	}
	return nil
}
