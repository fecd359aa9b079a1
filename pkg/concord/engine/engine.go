// Package engine defines the boundary to the external NLP annotation engine.
// The engine itself (tagger, parser, coreference resolver) lives outside this
// module; only its input and output shapes are described here.
package engine

import (
	"context"

	"github.com/cognicore/concord/pkg/concord/flat"
)

// Token is the engine's minimal token representation.
type Token struct {
	// Word is the text handed to the engine, after character normalization.
	Word string `json:"word"`
	// Original is the structured token's text before normalization.
	Original string `json:"original"`
	// Begin and End are rune offsets into the document text.
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len returns End - Begin.
func (t Token) Len() int {
	return t.End - t.Begin
}

// SentenceAnnotation is the engine's per-sentence wrapper, reconstructed
// from a known sentence partition instead of the engine's own splitter.
type SentenceAnnotation struct {
	Text       string  `json:"text"`
	CharBegin  int     `json:"char_begin"`
	CharEnd    int     `json:"char_end"`
	TokenBegin int     `json:"token_begin"`
	TokenEnd   int     `json:"token_end"`
	Tokens     []Token `json:"tokens"`
}

// Request is a pre-tokenized, pre-split unit of work (one section or one
// sentence). Tokens is the concatenation of every sentence's tokens.
type Request struct {
	Language  string               `json:"language"`
	Text      string               `json:"text"`
	Tokens    []Token              `json:"tokens"`
	Sentences []SentenceAnnotation `json:"sentences"`
}

// Engine is an external annotator. Both calls block until the engine answers;
// callers that need a deadline set one on ctx.
type Engine interface {
	// AnnotateTokens annotates already tokenized and split input and returns
	// one record per request sentence, in order.
	AnnotateTokens(ctx context.Context, req *Request) ([]*flat.Sentence, error)
	// AnnotateText segments, tokenizes and annotates raw text, including
	// coreference. Offsets in the result are relative to text.
	AnnotateText(ctx context.Context, language, text string) (*flat.Document, error)
}
