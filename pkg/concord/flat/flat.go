// Package flat models the external annotation engine's output: a flat,
// positionally addressed stream of per-sentence records plus coreference
// chains that point into that stream by sentence index.
package flat

// Document is the engine's view of a whole document.
type Document struct {
	Sentences []*Sentence `json:"sentences"`
	Corefs    []*Chain    `json:"corefs,omitempty"`
}

// Sentence is one FlatAnnotationRecord.
type Sentence struct {
	Tokens []Token `json:"tokens"`
	// Parse is a PTB-style bracketed constituency tree, e.g.
	// "(ROOT (S (NP (NNP John)) (VP (VBD ran))))".
	Parse        string       `json:"parse,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Token is an engine token with its character offsets into the text the
// engine was given.
type Token struct {
	Word      string `json:"word"`
	Lemma     string `json:"lemma,omitempty"`
	POS       string `json:"pos,omitempty"`
	NER       string `json:"ner,omitempty"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// Dependency is a typed arc between token indices. Gov is -1 for root.
type Dependency struct {
	Type string `json:"type"`
	Gov  int    `json:"gov"`
	Dep  int    `json:"dep"`
}

// Chain is one coreference chain.
type Chain struct {
	Mentions []Mention `json:"mentions"`
}

// Mention locates a mention by sentence index into the flat stream and a
// half-open token range within that sentence.
type Mention struct {
	SentenceIndex  int  `json:"sentence_index"`
	Start          int  `json:"start"`
	End            int  `json:"end"`
	Head           int  `json:"head"`
	Representative bool `json:"representative,omitempty"`
}

// HasPOS reports whether every token carries a part-of-speech tag.
func (s *Sentence) HasPOS() bool {
	if len(s.Tokens) == 0 {
		return false
	}
	for _, t := range s.Tokens {
		if t.POS == "" {
			return false
		}
	}
	return true
}

// Shift moves every token offset by delta. The ingest pipeline uses it to
// map section-relative offsets onto document offsets.
func (s *Sentence) Shift(delta int) {
	for i := range s.Tokens {
		s.Tokens[i].CharStart += delta
		s.Tokens[i].CharEnd += delta
	}
}
