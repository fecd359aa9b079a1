// Package ingest annotates documents that have sections but no sentences
// yet. The engine segments and annotates each eligible section's raw text;
// the results are stitched into one flat stream in document offsets and
// aligned back onto the document with the walker.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/concord/pkg/concord/bridge"
	"github.com/cognicore/concord/pkg/concord/convert"
	"github.com/cognicore/concord/pkg/concord/coref"
	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
	"github.com/cognicore/concord/pkg/concord/walker"
)

// Options configures a Pipeline.
type Options struct {
	Engine     engine.Engine
	Language   string
	BodyLabels []string
	Layers     convert.LayerSet
	Tool       string
	Now        func() time.Time
	Log        *slog.Logger
}

// Pipeline orchestrates the raw-text flow:
// section text → engine → offset shift → stream → walker → coreference
type Pipeline struct {
	engine engine.Engine
	walker *walker.Walker
	lang   string
	labels map[string]struct{}
	tool   string
	now    func() time.Time
	log    *slog.Logger
}

// NewPipeline validates the options and builds the walker it aligns with.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, internalerr.NewValidation("engine", "an engine is required")
	}
	if _, err := bridge.ModeFor(opts.Language); err != nil {
		return nil, err
	}
	p := &Pipeline{
		engine: opts.Engine,
		lang:   opts.Language,
		labels: make(map[string]struct{}, len(opts.BodyLabels)),
		tool:   opts.Tool,
		now:    opts.Now,
		log:    opts.Log,
	}
	if p.tool == "" {
		p.tool = "concord"
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	for _, l := range opts.BodyLabels {
		p.labels[l] = struct{}{}
	}
	p.walker = walker.New(walker.Options{Tool: p.tool, Layers: opts.Layers, Now: p.now, Log: p.log})
	return p, nil
}

// Result is a processed document together with the stream it was built from.
type Result struct {
	Document *schema.Document
	// Stream holds every engine sentence in document offsets, with
	// coreference chains indexing into it.
	Stream         *flat.Document
	SectionIDs     []string
	SentenceCounts []int
	Mentions       int
	Entities       int
}

// Process annotates a copy of doc. segmentationID may be empty when the
// document has exactly one section segmentation.
func (p *Pipeline) Process(ctx context.Context, doc *schema.Document, segmentationID string) (*Result, error) {
	ss, err := p.segmentation(doc, segmentationID)
	if err != nil {
		return nil, err
	}
	runes := doc.Runes()

	res := &Result{Stream: &flat.Document{}}
	for _, sec := range ss.Sections {
		if !p.eligible(sec) || sec.Span == nil || sec.Span.Len() <= 0 {
			continue
		}
		text, err := schema.SliceRunes(runes, *sec.Span)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		out, err := p.engine.AnnotateText(ctx, p.lang, text)
		if err != nil {
			return nil, fmt.Errorf("section %s: engine: %w", sec.ID, err)
		}
		if out == nil {
			return nil, fmt.Errorf("section %s: engine returned no document", sec.ID)
		}
		for i, s := range out.Sentences {
			if s == nil || len(s.Tokens) == 0 {
				return nil, fmt.Errorf("section %s: %w", sec.ID,
					&internalerr.EmptySentenceError{Position: len(res.Stream.Sentences) + i})
			}
		}
		chains, err := reindex(out, len(res.Stream.Sentences))
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		for _, s := range out.Sentences {
			s.Shift(sec.Span.Start)
		}
		res.Stream.Sentences = append(res.Stream.Sentences, out.Sentences...)
		res.Stream.Corefs = append(res.Stream.Corefs, chains...)
		res.SectionIDs = append(res.SectionIDs, sec.ID)
		res.SentenceCounts = append(res.SentenceCounts, len(out.Sentences))
		p.log.Debug("annotated section text", "doc_id", doc.ID, "section_id", sec.ID, "sentences", len(out.Sentences))
	}

	aligned, err := p.walker.Align(doc, walker.Request{
		SegmentationID: ss.ID,
		SectionIDs:     res.SectionIDs,
		SentenceCounts: res.SentenceCounts,
		Stream:         res.Stream.Sentences,
	})
	if err != nil {
		return nil, err
	}
	res.Document = aligned.Document

	if len(res.Stream.Corefs) > 0 {
		meta := schema.NewMetadata(p.tool, p.now())
		ems, es, err := coref.Attach(res.Document, res.Stream.Corefs, aligned.Tokenizations, meta)
		if err != nil {
			return nil, fmt.Errorf("coreference: %w", err)
		}
		res.Mentions = len(ems.Mentions)
		res.Entities = len(es.Entities)
	}
	return res, nil
}

func (p *Pipeline) segmentation(doc *schema.Document, id string) (*schema.SectionSegmentation, error) {
	if id != "" {
		ss, _, err := doc.SectionSegmentation(id)
		return ss, err
	}
	switch len(doc.SectionSegmentations) {
	case 0:
		return nil, &internalerr.SegmentationNotFoundError{}
	case 1:
		return doc.SectionSegmentations[0], nil
	}
	return nil, internalerr.NewValidation("segmentation_id", "document has %d section segmentations; choose one", len(doc.SectionSegmentations))
}

func (p *Pipeline) eligible(sec *schema.Section) bool {
	if sec.Label == "" {
		return true
	}
	_, ok := p.labels[sec.Label]
	return ok
}

// reindex copies a section's chains into stream space. A mention that points
// outside the section's own sentences is rejected here, before it could land
// on a neighbouring section's sentence.
func reindex(out *flat.Document, base int) ([]*flat.Chain, error) {
	chains := make([]*flat.Chain, 0, len(out.Corefs))
	for ci, c := range out.Corefs {
		if c == nil {
			return nil, internalerr.NewValidation("corefs", "chain %d is null", ci)
		}
		nc := &flat.Chain{Mentions: make([]flat.Mention, len(c.Mentions))}
		for mi, m := range c.Mentions {
			if m.SentenceIndex < 0 || m.SentenceIndex >= len(out.Sentences) {
				return nil, fmt.Errorf("chain %d mention %d: %w", ci, mi,
					&internalerr.IndexOutOfRangeError{What: "sentence", Index: m.SentenceIndex, Len: len(out.Sentences)})
			}
			m.SentenceIndex += base
			nc.Mentions[mi] = m
		}
		chains = append(chains, nc)
	}
	return chains, nil
}
