// Package walker aligns a flat, positionally addressed annotation stream with
// the Sections of a structured document.
//
// The walker visits the requested Sections in the caller's order, creates one
// Sentence-Segmentation per Section holding exactly the requested number of
// Sentences, and fills each Sentence with a Tokenization built from the next
// unconsumed stream record. Every record is consumed exactly once, in order.
//
// Traversal state is an explicit cursor value threaded through the helpers;
// the walker itself holds only read-only configuration and is safe for
// concurrent use across documents.
package walker

import (
	"log/slog"
	"time"

	"github.com/cognicore/concord/pkg/concord/convert"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Options configures a Walker.
type Options struct {
	Tool   string
	Layers convert.LayerSet
	Now    func() time.Time
	Log    *slog.Logger
}

// Walker performs the alignment.
type Walker struct {
	tool   string
	layers convert.LayerSet
	now    func() time.Time
	log    *slog.Logger
}

// New creates a Walker. Zero-valued options get defaults: tool "concord",
// every layer, time.Now and slog.Default.
func New(opts Options) *Walker {
	w := &Walker{tool: opts.Tool, layers: opts.Layers, now: opts.Now, log: opts.Log}
	if w.tool == "" {
		w.tool = "concord"
	}
	if w.layers == (convert.LayerSet{}) {
		w.layers = convert.AllLayers()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// Request describes one alignment.
type Request struct {
	// SegmentationID identifies the Section-Segmentation to annotate.
	SegmentationID string
	// SectionIDs lists the target sections in the order the stream covers them.
	SectionIDs []string
	// SentenceCounts[i] is the number of stream records belonging to SectionIDs[i].
	SentenceCounts []int
	// Stream holds one record per sentence, in document order.
	Stream []*flat.Sentence
}

// Result is the outcome of a successful alignment.
type Result struct {
	// Document is an annotated copy; the input document is left untouched.
	Document *schema.Document
	// Tokenizations[k] was built from Stream[k].
	Tokenizations []*schema.Tokenization
	// Segmentations[i] is the new Sentence-Segmentation of SectionIDs[i].
	Segmentations []*schema.SentenceSegmentation
}

// cursor is the traversal position: the next target section and the next
// unconsumed stream record. Both only move forward.
type cursor struct {
	section int
	stream  int
}

// Align annotates a copy of doc. On any error the copy is discarded, so the
// caller never observes a partially annotated document.
func (w *Walker) Align(doc *schema.Document, req Request) (*Result, error) {
	demanded, err := validate(req)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	ss, _, err := out.SectionSegmentation(req.SegmentationID)
	if err != nil {
		return nil, err
	}
	index, err := ss.SectionIndex()
	if err != nil {
		return nil, err
	}

	meta := schema.NewMetadata(w.tool, w.now())
	res := &Result{
		Document:      out,
		Tokenizations: make([]*schema.Tokenization, 0, len(req.Stream)),
		Segmentations: make([]*schema.SentenceSegmentation, 0, len(req.SectionIDs)),
	}

	var cur cursor
	for cur.section < len(req.SectionIDs) {
		target := req.SectionIDs[cur.section]
		pos, ok := index[target]
		if !ok {
			break
		}
		sec := ss.Sections[pos]
		var (
			seg  *schema.SentenceSegmentation
			toks []*schema.Tokenization
		)
		seg, toks, cur, err = w.alignSection(req, cur, meta)
		if err != nil {
			return nil, err
		}
		sec.SentenceSegmentations = append(sec.SentenceSegmentations, seg)
		res.Segmentations = append(res.Segmentations, seg)
		res.Tokenizations = append(res.Tokenizations, toks...)
		w.log.Debug("aligned section", "doc_id", doc.ID, "section_id", target, "sentences", len(seg.Sentences))
	}

	if cur.section != len(req.SectionIDs) {
		return nil, &internalerr.SectionCountMismatchError{
			Found:    cur.section,
			Expected: len(req.SectionIDs),
			Missing:  req.SectionIDs[cur.section],
		}
	}
	if cur.stream != len(req.Stream) {
		return nil, &internalerr.StreamLengthMismatchError{Demanded: demanded, Stream: len(req.Stream), Consumed: cur.stream}
	}
	return res, nil
}

// alignSection builds the Sentence-Segmentation for the section at
// cur.section and returns the advanced cursor.
func (w *Walker) alignSection(req Request, cur cursor, meta schema.AnnotationMetadata) (*schema.SentenceSegmentation, []*schema.Tokenization, cursor, error) {
	n := req.SentenceCounts[cur.section]
	seg := &schema.SentenceSegmentation{
		ID:        schema.NewID(),
		Metadata:  meta,
		Sentences: make([]*schema.Sentence, 0, n),
	}
	toks := make([]*schema.Tokenization, 0, n)
	for i := 0; i < n; i++ {
		if cur.stream >= len(req.Stream) {
			return nil, nil, cur, &internalerr.StreamLengthMismatchError{Demanded: sumCounts(req.SentenceCounts), Stream: len(req.Stream), Consumed: cur.stream}
		}
		sent, tok, err := w.sentence(req.Stream[cur.stream], cur.stream, meta)
		if err != nil {
			return nil, nil, cur, err
		}
		cur.stream++
		toks = append(toks, tok)
		seg.Sentences = append(seg.Sentences, sent)
	}
	cur.section++
	return seg, toks, cur, nil
}

func (w *Walker) sentence(rec *flat.Sentence, pos int, meta schema.AnnotationMetadata) (*schema.Sentence, *schema.Tokenization, error) {
	if rec == nil || len(rec.Tokens) == 0 {
		return nil, nil, &internalerr.EmptySentenceError{Position: pos}
	}
	tok, err := convert.Tokenization(rec, w.layers, meta)
	if err != nil {
		return nil, nil, err
	}
	first, last := tok.Tokens[0], tok.Tokens[len(tok.Tokens)-1]
	return &schema.Sentence{
		ID:           schema.NewID(),
		Span:         &schema.TextSpan{Start: first.Span.Start, End: last.Span.End},
		Tokenization: tok,
	}, tok, nil
}

// validate checks the request shape before anything is copied or built and
// returns the number of records the sections demand.
func validate(req Request) (int, error) {
	if len(req.SectionIDs) == 0 {
		return 0, &internalerr.EmptyTargetSetError{}
	}
	if len(req.SentenceCounts) != len(req.SectionIDs) {
		return 0, internalerr.NewValidation("sentence_counts", "%d counts for %d sections", len(req.SentenceCounts), len(req.SectionIDs))
	}
	seen := make(map[string]struct{}, len(req.SectionIDs))
	for i, id := range req.SectionIDs {
		if _, dup := seen[id]; dup {
			return 0, &internalerr.DuplicateIdentifierError{Kind: "requested section", ID: id}
		}
		seen[id] = struct{}{}
		if req.SentenceCounts[i] < 0 {
			return 0, internalerr.NewValidation("sentence_counts", "negative count %d for section %s", req.SentenceCounts[i], id)
		}
	}
	demanded := sumCounts(req.SentenceCounts)
	if demanded != len(req.Stream) {
		return 0, &internalerr.StreamLengthMismatchError{Demanded: demanded, Stream: len(req.Stream)}
	}
	return demanded, nil
}

func sumCounts(counts []int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
