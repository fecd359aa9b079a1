package coref

import (
	"errors"
	"testing"
	"time"

	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

func tokenization(id string, words ...string) *schema.Tokenization {
	tok := &schema.Tokenization{ID: id}
	for i, w := range words {
		tok.Tokens = append(tok.Tokens, schema.Token{Index: i, Text: w})
	}
	return tok
}

func threeTokenizations() []*schema.Tokenization {
	return []*schema.Tokenization{
		tokenization("t0", "John", "Smith", "arrived", "."),
		tokenization("t1", "It", "rained", "."),
		tokenization("t2", "He", "left", "."),
	}
}

func TestAttachSingleChain(t *testing.T) {
	doc := &schema.Document{ID: "d"}
	chains := []*flat.Chain{{Mentions: []flat.Mention{
		{SentenceIndex: 0, Start: 0, End: 2, Head: 1, Representative: true},
		{SentenceIndex: 2, Start: 0, End: 1, Head: 0},
	}}}
	meta := schema.NewMetadata("test", time.Unix(0, 0))

	ems, es, err := Attach(doc, chains, threeTokenizations(), meta)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(doc.EntityMentionSets) != 1 || len(doc.EntitySets) != 1 {
		t.Fatalf("Expected 1 mention set and 1 entity set, got %d and %d", len(doc.EntityMentionSets), len(doc.EntitySets))
	}
	if len(es.Entities) != 1 {
		t.Fatalf("Expected 1 entity, got %d", len(es.Entities))
	}
	if len(ems.Mentions) != 2 {
		t.Fatalf("Expected 2 mentions, got %d", len(ems.Mentions))
	}

	first, second := ems.Mentions[0], ems.Mentions[1]
	if first.TokenizationID != "t0" || second.TokenizationID != "t2" {
		t.Errorf("Mentions attached to %s and %s", first.TokenizationID, second.TokenizationID)
	}
	if first.Text != "John Smith" || first.AnchorToken != 1 {
		t.Errorf("Unexpected first mention %+v", first)
	}
	if len(first.TokenIndices) != 2 || first.TokenIndices[0] != 0 || first.TokenIndices[1] != 1 {
		t.Errorf("Unexpected token indices %v", first.TokenIndices)
	}

	entity := es.Entities[0]
	if entity.CanonicalName != "John Smith" {
		t.Errorf("Expected representative canonical name, got %q", entity.CanonicalName)
	}
	if len(entity.MentionIDs) != 2 || entity.MentionIDs[0] != first.ID || entity.MentionIDs[1] != second.ID {
		t.Errorf("Entity mention ids %v do not match mentions", entity.MentionIDs)
	}
	if ems.Metadata.Tool != "test" || es.Metadata.Tool != "test" {
		t.Error("Metadata not propagated")
	}
}

func TestProjectSentenceIndexOutOfRange(t *testing.T) {
	for _, idx := range []int{3, 7, -1} {
		chains := []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: idx, Start: 0, End: 1}}}}
		_, _, err := Project(chains, threeTokenizations(), schema.AnnotationMetadata{})
		var oor *internalerr.IndexOutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("index %d: expected IndexOutOfRangeError, got %v", idx, err)
		}
		if oor.Index != idx || oor.Len != 3 {
			t.Errorf("index %d: unexpected error fields %+v", idx, oor)
		}
	}
}

func TestAttachFailureLeavesDocument(t *testing.T) {
	doc := &schema.Document{ID: "d"}
	chains := []*flat.Chain{{Mentions: []flat.Mention{
		{SentenceIndex: 0, Start: 0, End: 1},
		{SentenceIndex: 5, Start: 0, End: 1},
	}}}
	if _, _, err := Attach(doc, chains, threeTokenizations(), schema.AnnotationMetadata{}); err == nil {
		t.Fatal("Expected error")
	}
	if len(doc.EntityMentionSets) != 0 || len(doc.EntitySets) != 0 {
		t.Error("Failed projection must not attach sets")
	}
}

func TestProjectTokenRangeChecks(t *testing.T) {
	cases := []flat.Mention{
		{SentenceIndex: 1, Start: 3, End: 4},
		{SentenceIndex: 1, Start: 1, End: 1},
		{SentenceIndex: 1, Start: 0, End: 4},
	}
	for _, m := range cases {
		_, _, err := Project([]*flat.Chain{{Mentions: []flat.Mention{m}}}, threeTokenizations(), schema.AnnotationMetadata{})
		if !errors.Is(err, internalerr.ErrOutOfRange) {
			t.Errorf("%+v: expected out of range, got %v", m, err)
		}
	}
}

func TestAnchorFallsBackToLastToken(t *testing.T) {
	chains := []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: 0, Start: 0, End: 3, Head: 9}}}}
	ems, es, err := Project(chains, threeTokenizations(), schema.AnnotationMetadata{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if ems.Mentions[0].AnchorToken != 2 {
		t.Errorf("Expected anchor 2, got %d", ems.Mentions[0].AnchorToken)
	}
	if es.Entities[0].CanonicalName != "John Smith arrived" {
		t.Errorf("Expected first mention as canonical name, got %q", es.Entities[0].CanonicalName)
	}
}

func TestProjectNoChains(t *testing.T) {
	ems, es, err := Project(nil, threeTokenizations(), schema.AnnotationMetadata{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if ems.Mentions == nil || es.Entities == nil {
		t.Error("Empty sets should hold empty, non-nil lists")
	}
	if ems.ID == "" || es.ID == "" || ems.ID == es.ID {
		t.Error("Sets need distinct identifiers")
	}
}

func TestAttachTwiceAddsIndependentSets(t *testing.T) {
	doc := &schema.Document{ID: "d"}
	chains := []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: 1, Start: 0, End: 1}}}}
	for i := 0; i < 2; i++ {
		if _, _, err := Attach(doc, chains, threeTokenizations(), schema.AnnotationMetadata{}); err != nil {
			t.Fatalf("Attach %d: %v", i, err)
		}
	}
	if len(doc.EntitySets) != 2 || doc.EntitySets[0].ID == doc.EntitySets[1].ID {
		t.Error("Expected two independent entity sets")
	}
}

func TestProjectRejectsNullChain(t *testing.T) {
	chains := []*flat.Chain{{Mentions: []flat.Mention{{SentenceIndex: 0, Start: 0, End: 1}}}, nil}
	_, _, err := Project(chains, threeTokenizations(), schema.AnnotationMetadata{})
	var ve *internalerr.ValidationError
	if !errors.As(err, &ve) || ve.Field != "corefs" {
		t.Fatalf("Expected corefs ValidationError, got %v", err)
	}
}
