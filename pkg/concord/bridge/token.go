// Package bridge converts structured-document tokens and sentences into the
// external engine's input representation and back.
package bridge

import (
	"golang.org/x/text/width"

	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// NormalizeWord rewrites tokens consisting of a lone ASCII parenthesis to the
// full-width form. The engine's head finder fails on some bracket-only
// sentences, e.g. "( CROSSTALK )", and bare ASCII parentheses would also
// collide with the bracketed parse output.
func NormalizeWord(word string) string {
	switch word {
	case "(", ")":
		return width.Widen.String(word)
	}
	return word
}

// ToExternal converts tok without modifying it. The span is kept as-is, so
// the external token's length always equals the structured token's length.
func ToExternal(tok schema.Token) engine.Token {
	return engine.Token{
		Word:     NormalizeWord(tok.Text),
		Original: tok.Text,
		Begin:    tok.Span.Start,
		End:      tok.Span.Start + tok.Span.Len(),
	}
}

// FromExternal restores the structured token fields. index is the token's
// position within its tokenization.
func FromExternal(et engine.Token, index int) schema.Token {
	text := et.Original
	if text == "" {
		text = et.Word
	}
	return schema.Token{
		Index: index,
		Text:  text,
		Span:  schema.TextSpan{Start: et.Begin, End: et.Begin + et.Len()},
	}
}

// SentenceToExternal converts every token of a tokenization.
func SentenceToExternal(tok *schema.Tokenization) []engine.Token {
	if tok == nil {
		return nil
	}
	out := make([]engine.Token, len(tok.Tokens))
	for i, t := range tok.Tokens {
		out[i] = ToExternal(t)
	}
	return out
}
