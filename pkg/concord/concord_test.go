package concord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/concord/internal/logging"
	"github.com/cognicore/concord/pkg/concord/config"
	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
	"github.com/cognicore/concord/pkg/concord/store"
)

// wordEngine treats every space-separated word as a token and every section
// text as a single sentence.
type wordEngine struct{}

func (wordEngine) AnnotateTokens(ctx context.Context, req *engine.Request) ([]*flat.Sentence, error) {
	out := make([]*flat.Sentence, len(req.Sentences))
	for i, sa := range req.Sentences {
		s := &flat.Sentence{}
		for _, tk := range sa.Tokens {
			s.Tokens = append(s.Tokens, flat.Token{Word: tk.Word, POS: "W", CharStart: tk.Begin, CharEnd: tk.End})
		}
		out[i] = s
	}
	return out, nil
}

func (wordEngine) AnnotateText(ctx context.Context, language, text string) (*flat.Document, error) {
	s := &flat.Sentence{}
	pos := 0
	for _, w := range strings.Fields(text) {
		start := strings.Index(text[pos:], w) + pos
		pos = start + len(w)
		s.Tokens = append(s.Tokens, flat.Token{Word: w, POS: "W", CharStart: start, CharEnd: pos})
	}
	return &flat.Document{
		Sentences: []*flat.Sentence{s},
		Corefs:    []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: 0, Start: 0, End: 1}}}},
	}, nil
}

// tickClock advances one second per call.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newConcord(t *testing.T, eng engine.Engine) *Concord {
	t.Helper()
	clock := &tickClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cc, err := New(Options{Config: config.Default(), Engine: eng, Now: clock.Now, Log: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return cc
}

func rawDoc() *schema.Document {
	return &schema.Document{
		ID:   "d1",
		Text: "Ann sings",
		SectionSegmentations: []*schema.SectionSegmentation{{
			ID:       "ss",
			Sections: []*schema.Section{{ID: "s", Label: "TEXT", Span: &schema.TextSpan{Start: 0, End: 9}}},
		}},
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "xx"
	_, err := New(Options{Config: cfg})
	if !errors.Is(err, internalerr.ErrUnsupported) {
		t.Fatalf("Expected unsupported language, got %v", err)
	}
}

func TestAlignRecordsRun(t *testing.T) {
	cc := newConcord(t, nil)
	ctx := context.Background()
	out, run, err := cc.Align(ctx, rawDoc(), AlignRequest{
		SegmentationID: "ss",
		SectionIDs:     []string{"s"},
		SentenceCounts: []int{1},
		Stream: []*flat.Sentence{{Tokens: []flat.Token{
			{Word: "Ann", CharStart: 0, CharEnd: 3},
			{Word: "sings", CharStart: 4, CharEnd: 9},
		}}},
		Corefs: []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: 0, Start: 0, End: 1}}}},
	})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if out.SentenceCount() != 1 || len(out.EntitySets) != 1 {
		t.Errorf("Unexpected output: %d sentences, %d entity sets", out.SentenceCount(), len(out.EntitySets))
	}
	if run.Status != store.StatusSucceeded || run.Mode != store.ModeAlign {
		t.Errorf("Unexpected run %+v", run)
	}
	if run.Sentences != 1 || run.Entities != 1 || run.Mentions != 1 {
		t.Errorf("Unexpected counters %+v", run)
	}
	if run.ContentHash != store.ContentHash("Ann sings") {
		t.Error("Run should carry the content hash")
	}
	if run.Duration() <= 0 {
		t.Errorf("Expected positive duration, got %v", run.Duration())
	}

	got, err := cc.Run(ctx, run.ID)
	if err != nil || got.ID != run.ID {
		t.Fatalf("Run lookup: %v", err)
	}
}

func TestAlignFailureRecordsFailedRun(t *testing.T) {
	cc := newConcord(t, nil)
	ctx := context.Background()
	_, run, err := cc.Align(ctx, rawDoc(), AlignRequest{
		SegmentationID: "ss",
		SectionIDs:     []string{"s"},
		SentenceCounts: []int{2},
		Stream:         []*flat.Sentence{{Tokens: []flat.Token{{Word: "Ann", CharEnd: 3}}}},
	})
	var slm *internalerr.StreamLengthMismatchError
	if !errors.As(err, &slm) {
		t.Fatalf("Expected StreamLengthMismatchError, got %v", err)
	}
	if run.Status != store.StatusFailed || run.Error == "" {
		t.Errorf("Expected failed run with error, got %+v", run)
	}
	runs, err := cc.Runs(ctx, "d1", 0)
	if err != nil || len(runs) != 1 || runs[0].Status != store.StatusFailed {
		t.Fatalf("Expected one failed run in ledger, got %v (%v)", runs, err)
	}
}

func TestAnnotateWithoutEngine(t *testing.T) {
	cc := newConcord(t, nil)
	_, run, err := cc.Annotate(context.Background(), rawDoc())
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if run.Status != store.StatusFailed {
		t.Errorf("Expected failed run, got %s", run.Status)
	}

	out, run, err := cc.Ingest(context.Background(), rawDoc(), "")
	if !errors.Is(err, internalerr.ErrInvalidInput) || out != nil {
		t.Fatalf("Expected validation error from Ingest, got %v", err)
	}
	if run.Mode != store.ModeIngest || run.Status != store.StatusFailed {
		t.Errorf("Unexpected ingest run %+v", run)
	}
}

func TestIngestThenAnnotate(t *testing.T) {
	cc := newConcord(t, wordEngine{})
	ctx := context.Background()

	ingested, run, err := cc.Ingest(ctx, rawDoc(), "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if run.Sections != 1 || run.Sentences != 1 || run.Entities != 1 {
		t.Errorf("Unexpected ingest counters %+v", run)
	}

	annotated, run2, err := cc.Annotate(ctx, ingested)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if run2.Mode != store.ModeAnnotate || run2.Sentences != 1 {
		t.Errorf("Unexpected annotate run %+v", run2)
	}
	tok := annotated.SectionSegmentations[0].Sections[0].Sentences()[0].Tokenization
	if len(tok.TokenTaggings) != 2 {
		t.Errorf("Expected ingest and annotate taggings, got %d", len(tok.TokenTaggings))
	}

	runs, err := cc.Runs(ctx, "d1", 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != run2.ID {
		t.Errorf("Expected annotate run first, got %+v", runs)
	}
	last, ok, err := cc.Store().LastSuccess(ctx, run.ContentHash, store.ModeIngest)
	if err != nil || !ok || last.ID != run.ID {
		t.Errorf("LastSuccess: %+v %v %v", last, ok, err)
	}
}
