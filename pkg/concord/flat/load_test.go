package flat

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadJSONL(t *testing.T) {
	in := `{"tokens":[{"word":"Hi","pos":"UH","char_start":0,"char_end":2}]}

{"tokens":[{"word":"Bye","char_start":3,"char_end":6}],"parse":"(ROOT (UH Bye))"}
`
	sents, err := ReadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(sents) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(sents))
	}
	if !sents[0].HasPOS() || sents[1].HasPOS() {
		t.Error("HasPOS mismatch")
	}
	if sents[1].Parse == "" {
		t.Error("Expected parse on second sentence")
	}
}

func TestReadJSONLMalformedLineIsFatal(t *testing.T) {
	in := `{"tokens":[]}
{not json}
{"tokens":[]}`
	_, err := ReadJSONL(strings.NewReader(in))
	if err == nil {
		t.Fatal("Expected error on malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected line number in error, got %v", err)
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	sents := []*Sentence{
		{Tokens: []Token{{Word: "a", CharStart: 0, CharEnd: 1}}},
		{Tokens: []Token{{Word: "b", CharStart: 2, CharEnd: 3}}, Dependencies: []Dependency{{Type: "root", Gov: -1, Dep: 0}}},
	}
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sents); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("Expected 2 lines, got %d", n)
	}
	back, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if back[1].Dependencies[0].Gov != -1 {
		t.Errorf("Expected root governor -1, got %d", back[1].Dependencies[0].Gov)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "s.jsonl")
	os.WriteFile(jsonl, []byte(`{"tokens":[{"word":"x","char_start":0,"char_end":1}]}`+"\n"), 0o644)
	doc, err := Load(jsonl)
	if err != nil {
		t.Fatalf("Load jsonl: %v", err)
	}
	if len(doc.Sentences) != 1 || len(doc.Corefs) != 0 {
		t.Errorf("Unexpected document %+v", doc)
	}

	js := filepath.Join(dir, "d.json")
	os.WriteFile(js, []byte(`{"sentences":[{"tokens":[{"word":"x","char_start":0,"char_end":1}]}],
		"corefs":[{"mentions":[{"sentence_index":0,"start":0,"end":1,"head":0,"representative":true}]}]}`), 0o644)
	doc, err = Load(js)
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	if len(doc.Corefs) != 1 || !doc.Corefs[0].Mentions[0].Representative {
		t.Errorf("Expected one representative mention, got %+v", doc.Corefs)
	}
}

func TestShift(t *testing.T) {
	s := &Sentence{Tokens: []Token{{CharStart: 0, CharEnd: 3}, {CharStart: 4, CharEnd: 6}}}
	s.Shift(10)
	if s.Tokens[0].CharStart != 10 || s.Tokens[1].CharEnd != 16 {
		t.Errorf("Unexpected offsets after shift: %+v", s.Tokens)
	}
}
