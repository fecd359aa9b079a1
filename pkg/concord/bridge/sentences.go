package bridge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Language codes with a sentence reconstruction mode.
const (
	LangEnglish       = "en"
	LangChinese       = "zh"
	LangChineseLegacy = "cn" // older corpora and scripts pass this for Chinese
)

// TextMode selects how a sentence's literal text is rebuilt.
type TextMode int

const (
	// TextSubstring slices the document text between the first token's start
	// and the last token's end.
	TextSubstring TextMode = iota
	// TextJoin joins token words with a single ASCII space, for languages
	// whose token literals do not line up contiguously with the offsets.
	TextJoin
)

// ModeFor returns the text mode for a language code.
func ModeFor(lang string) (TextMode, error) {
	switch lang {
	case LangEnglish:
		return TextSubstring, nil
	case LangChinese, LangChineseLegacy:
		return TextJoin, nil
	}
	return 0, &internalerr.UnsupportedLanguageError{Language: lang}
}

// Reconstructor builds the engine's per-sentence annotations from a sentence
// partition that is already known, bypassing the engine's own splitter.
type Reconstructor struct {
	lang string
	mode TextMode
	log  *slog.Logger
}

// NewReconstructor fails with UnsupportedLanguageError for unknown codes, so
// configuration errors surface before any document is touched.
func NewReconstructor(lang string, log *slog.Logger) (*Reconstructor, error) {
	mode, err := ModeFor(lang)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconstructor{lang: lang, mode: mode, log: log}, nil
}

// Reconstruct produces one SentenceAnnotation per token list. text is the
// document text as runes. Token indices run across sentences so that
// downstream parse layers index the concatenated token list correctly.
func (r *Reconstructor) Reconstruct(sents [][]engine.Token, text []rune) ([]engine.SentenceAnnotation, error) {
	out := make([]engine.SentenceAnnotation, 0, len(sents))
	tokenOffset := 0
	for i, toks := range sents {
		if len(toks) == 0 {
			return nil, &internalerr.EmptySentenceError{Position: i}
		}
		begin := toks[0].Begin
		end := toks[len(toks)-1].End

		var sentText string
		switch r.mode {
		case TextSubstring:
			s, err := schema.SliceRunes(text, schema.TextSpan{Start: begin, End: end})
			if err != nil {
				return nil, err
			}
			sentText = s
		case TextJoin:
			words := make([]string, len(toks))
			for j, t := range toks {
				words[j] = t.Word
			}
			sentText = strings.Join(words, " ")
		}

		out = append(out, engine.SentenceAnnotation{
			Text:       sentText,
			CharBegin:  begin,
			CharEnd:    end,
			TokenBegin: tokenOffset,
			TokenEnd:   tokenOffset + len(toks),
			Tokens:     toks,
		})
		tokenOffset += len(toks)
	}
	return out, nil
}

// Request converts sentences into a single engine request. A sentence without
// a tokenization or with no tokens fails with EmptySentenceError.
func (r *Reconstructor) Request(doc *schema.Document, runes []rune, sents []*schema.Sentence) (*engine.Request, error) {
	lists := make([][]engine.Token, len(sents))
	var all []engine.Token
	for i, s := range sents {
		toks := SentenceToExternal(s.Tokenization)
		if len(toks) == 0 {
			return nil, &internalerr.EmptySentenceError{SentenceID: s.ID, Position: i}
		}
		lists[i] = toks
		all = append(all, toks...)
		if r.log.Enabled(context.Background(), slog.LevelDebug) {
			r.log.Debug("converted sentence", "sentence_id", s.ID, "words", joinWords(toks))
		}
	}
	annos, err := r.Reconstruct(lists, runes)
	if err != nil {
		return nil, err
	}
	return &engine.Request{
		Language:  r.lang,
		Text:      doc.Text,
		Tokens:    all,
		Sentences: annos,
	}, nil
}

func joinWords(toks []engine.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Word)
	}
	return sb.String()
}
