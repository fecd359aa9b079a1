package inject

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cognicore/concord/pkg/concord/convert"
	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// fakeEngine tags every token NN and records the requests it saw.
type fakeEngine struct {
	requests []*engine.Request
	drop     int // sentences to drop from each answer
	shortAt  int // answer this sentence with one token too few, -1 for none
}

func (f *fakeEngine) AnnotateTokens(ctx context.Context, req *engine.Request) ([]*flat.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	var out []*flat.Sentence
	for i, sa := range req.Sentences {
		s := &flat.Sentence{}
		for _, tk := range sa.Tokens {
			s.Tokens = append(s.Tokens, flat.Token{Word: tk.Word, POS: "NN", CharStart: tk.Begin, CharEnd: tk.End})
		}
		if i == f.shortAt {
			s.Tokens = s.Tokens[:len(s.Tokens)-1]
		}
		out = append(out, s)
	}
	return out[:len(out)-f.drop], nil
}

func (f *fakeEngine) AnnotateText(ctx context.Context, language, text string) (*flat.Document, error) {
	return nil, fmt.Errorf("not used")
}

func tokenized(id string, start int, words ...string) *schema.Sentence {
	tok := &schema.Tokenization{ID: "tok-" + id}
	pos := start
	for i, w := range words {
		n := len([]rune(w))
		tok.Tokens = append(tok.Tokens, schema.Token{Index: i, Text: w, Span: schema.TextSpan{Start: pos, End: pos + n}})
		pos += n + 1
	}
	return &schema.Sentence{ID: id, Tokenization: tok}
}

// sampleDoc has a headline and a two-sentence body: "Big news\nA ( b ). C d."
func sampleDoc() *schema.Document {
	return &schema.Document{
		ID:   "doc",
		Text: "Big news\nA ( b ). C d.",
		SectionSegmentations: []*schema.SectionSegmentation{{
			ID: "ss",
			Sections: []*schema.Section{
				{ID: "head", Label: "HEADLINE", SentenceSegmentations: []*schema.SentenceSegmentation{{
					ID: "h", Sentences: []*schema.Sentence{tokenized("h1", 0, "Big", "news")},
				}}},
				{ID: "body", Label: "TEXT", SentenceSegmentations: []*schema.SentenceSegmentation{{
					ID: "b", Sentences: []*schema.Sentence{
						tokenized("b1", 9, "A", "(", "b", ")."),
						tokenized("b2", 18, "C", "d."),
					},
				}}},
				{ID: "empty", Label: "TEXT"},
			},
		}},
	}
}

func newInjector(t *testing.T, eng engine.Engine, labels ...string) *Injector {
	t.Helper()
	in, err := New(Options{
		Engine:     eng,
		Language:   "en",
		BodyLabels: labels,
		Tool:       "test",
		Now:        func() time.Time { return time.Unix(42, 0) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

func TestNewRejectsUnsupportedLanguage(t *testing.T) {
	_, err := New(Options{Engine: &fakeEngine{shortAt: -1}, Language: "fr"})
	var ule *internalerr.UnsupportedLanguageError
	if !errors.As(err, &ule) || ule.Language != "fr" {
		t.Fatalf("Expected UnsupportedLanguageError, got %v", err)
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := New(Options{Language: "en"}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestEligible(t *testing.T) {
	in := newInjector(t, &fakeEngine{shortAt: -1}, "TEXT")
	if !in.Eligible(&schema.Section{Label: "TEXT"}) {
		t.Error("TEXT should be eligible")
	}
	if !in.Eligible(&schema.Section{}) {
		t.Error("Unlabelled section should be eligible")
	}
	if in.Eligible(&schema.Section{Label: "HEADLINE"}) {
		t.Error("HEADLINE should not be eligible")
	}
}

func TestAnnotateDocument(t *testing.T) {
	eng := &fakeEngine{shortAt: -1}
	in := newInjector(t, eng, "TEXT")
	doc := sampleDoc()

	out, stats, err := in.AnnotateDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("AnnotateDocument: %v", err)
	}
	if stats.Sections != 1 || stats.Sentences != 2 || stats.Skipped != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if len(eng.requests) != 1 {
		t.Fatalf("Expected one engine call per section, got %d", len(eng.requests))
	}

	req := eng.requests[0]
	if len(req.Sentences) != 2 || len(req.Tokens) != 6 {
		t.Fatalf("Expected 2 sentences and 6 tokens, got %d and %d", len(req.Sentences), len(req.Tokens))
	}
	if req.Sentences[0].Text != "A ( b )." {
		t.Errorf("Expected substring text, got %q", req.Sentences[0].Text)
	}
	if req.Sentences[1].TokenBegin != 4 || req.Sentences[1].TokenEnd != 6 {
		t.Errorf("Expected token range 4-6, got %d-%d", req.Sentences[1].TokenBegin, req.Sentences[1].TokenEnd)
	}
	if req.Tokens[1].Word != "（" || req.Tokens[1].Original != "(" {
		t.Errorf("Expected widened bracket, got %+v", req.Tokens[1])
	}

	body := out.SectionSegmentations[0].Sections[1].Sentences()
	for _, s := range body {
		if len(s.Tokenization.TokenTaggings) != 1 {
			t.Fatalf("Sentence %s: expected one tagging, got %d", s.ID, len(s.Tokenization.TokenTaggings))
		}
		if s.Tokenization.TokenTaggings[0].Metadata.Timestamp != 42 {
			t.Errorf("Expected injected clock")
		}
	}
	if body[0].Tokenization.Tokens[1].Text != "(" {
		t.Error("Structured token text must not be rewritten")
	}
	head := out.SectionSegmentations[0].Sections[0].Sentences()[0]
	if len(head.Tokenization.TokenTaggings) != 0 {
		t.Error("Ineligible section must not be annotated")
	}
	if len(doc.SectionSegmentations[0].Sections[1].Sentences()[0].Tokenization.TokenTaggings) != 0 {
		t.Error("Input document must not be mutated")
	}
}

func TestAnnotateDocumentSentenceCountMismatch(t *testing.T) {
	in := newInjector(t, &fakeEngine{drop: 1, shortAt: -1}, "TEXT")
	_, _, err := in.AnnotateDocument(context.Background(), sampleDoc())
	var acm *internalerr.AnnotationCountMismatchError
	if !errors.As(err, &acm) {
		t.Fatalf("Expected AnnotationCountMismatchError, got %v", err)
	}
	if acm.Level != "sentence" || acm.Expected != 2 || acm.Actual != 1 {
		t.Errorf("Unexpected error fields %+v", acm)
	}
}

func TestInjectSectionIsAtomic(t *testing.T) {
	// The second sentence comes back one token short; the first sentence
	// must not be annotated either.
	in := newInjector(t, &fakeEngine{shortAt: 1}, "TEXT")
	doc := sampleDoc()
	sec := doc.SectionSegmentations[0].Sections[1]
	first := sec.Sentences()[0].Tokenization

	err := in.InjectSection(context.Background(), sec, doc)
	if !errors.Is(err, internalerr.ErrMismatch) {
		t.Fatalf("Expected mismatch, got %v", err)
	}
	if sec.Sentences()[0].Tokenization != first || len(first.TokenTaggings) != 0 {
		t.Error("Failed section must be left unchanged")
	}
}

func TestInjectSentence(t *testing.T) {
	eng := &fakeEngine{shortAt: -1}
	in := newInjector(t, eng)
	doc := sampleDoc()
	sent := doc.SectionSegmentations[0].Sections[1].Sentences()[1]

	if err := in.InjectSentence(context.Background(), sent, doc); err != nil {
		t.Fatalf("InjectSentence: %v", err)
	}
	if len(eng.requests) != 1 || len(eng.requests[0].Sentences) != 1 {
		t.Fatal("Expected a single one-sentence request")
	}
	tags := sent.Tokenization.TokenTaggings
	if len(tags) != 1 || len(tags[0].Tags) != 2 || tags[0].Tags[1].Tag != "NN" {
		t.Errorf("Unexpected tagging %+v", tags)
	}
}

func TestInjectRejectsTokenlessSentence(t *testing.T) {
	in := newInjector(t, &fakeEngine{shortAt: -1})
	doc := sampleDoc()
	sent := &schema.Sentence{ID: "bare"}
	var es *internalerr.EmptySentenceError
	if err := in.InjectSentence(context.Background(), sent, doc); !errors.As(err, &es) {
		t.Fatalf("Expected EmptySentenceError, got %v", err)
	}
}

func TestLayerSelection(t *testing.T) {
	eng := &fakeEngine{shortAt: -1}
	in, err := New(Options{Engine: eng, Language: "zh", Layers: convert.LayerSet{CParse: true}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc := sampleDoc()
	sent := doc.SectionSegmentations[0].Sections[0].Sentences()[0]
	if err := in.InjectSentence(context.Background(), sent, doc); err != nil {
		t.Fatalf("InjectSentence: %v", err)
	}
	if eng.requests[0].Sentences[0].Text != "Big news" {
		t.Errorf("Expected joined text, got %q", eng.requests[0].Sentences[0].Text)
	}
	if len(sent.Tokenization.TokenTaggings) != 0 {
		t.Error("POS layer was not selected")
	}
}

// nullEngine answers with the right number of records, all of them null.
type nullEngine struct{}

func (nullEngine) AnnotateTokens(ctx context.Context, req *engine.Request) ([]*flat.Sentence, error) {
	return make([]*flat.Sentence, len(req.Sentences)), nil
}

func (nullEngine) AnnotateText(ctx context.Context, language, text string) (*flat.Document, error) {
	return nil, fmt.Errorf("not used")
}

func TestAnnotateDocumentRejectsNullRecords(t *testing.T) {
	in := newInjector(t, nullEngine{}, "TEXT")
	doc := sampleDoc()
	_, _, err := in.AnnotateDocument(context.Background(), doc)
	var es *internalerr.EmptySentenceError
	if !errors.As(err, &es) {
		t.Fatalf("Expected EmptySentenceError, got %v", err)
	}
	if es.SentenceID != "b1" || es.Position != 0 {
		t.Errorf("Unexpected error fields %+v", es)
	}
	if !internalerr.IsAlignment(err) {
		t.Error("Null records should be classified as an alignment failure")
	}
}
