// Package convert turns flat engine records into structured Tokenizations and
// annotation layers.
package convert

import (
	"fmt"
	"strings"

	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Layer names accepted by ParseLayers.
const (
	LayerPOS    = "pos"
	LayerCParse = "cparse"
	LayerDParse = "dparse"
)

// DefaultLayers is every layer the engine can produce.
var DefaultLayers = []string{LayerPOS, LayerCParse, LayerDParse}

// LayerSet selects which annotation layers are copied onto a tokenization.
type LayerSet struct {
	POS    bool
	CParse bool
	DParse bool
}

// AllLayers selects every layer.
func AllLayers() LayerSet {
	return LayerSet{POS: true, CParse: true, DParse: true}
}

// ParseLayers builds a LayerSet from layer names.
func ParseLayers(names []string) (LayerSet, error) {
	var ls LayerSet
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case LayerPOS:
			ls.POS = true
		case LayerCParse:
			ls.CParse = true
		case LayerDParse:
			ls.DParse = true
		default:
			return LayerSet{}, internalerr.NewValidation("layers", "unknown layer %q", n)
		}
	}
	return ls, nil
}

// Names returns the selected layer names in canonical order.
func (ls LayerSet) Names() []string {
	var out []string
	if ls.POS {
		out = append(out, LayerPOS)
	}
	if ls.CParse {
		out = append(out, LayerCParse)
	}
	if ls.DParse {
		out = append(out, LayerDParse)
	}
	return out
}

// Tokenization builds a new Tokenization, tokens included, from an engine
// record.
func Tokenization(sent *flat.Sentence, layers LayerSet, meta schema.AnnotationMetadata) (*schema.Tokenization, error) {
	tok := &schema.Tokenization{
		ID:       schema.NewID(),
		Metadata: meta,
		Tokens:   make([]schema.Token, len(sent.Tokens)),
	}
	for i, t := range sent.Tokens {
		if t.CharEnd < t.CharStart {
			return nil, internalerr.NewValidation("token", "token %d has end %d before start %d", i, t.CharEnd, t.CharStart)
		}
		tok.Tokens[i] = schema.Token{
			Index: i,
			Text:  t.Word,
			Span:  schema.TextSpan{Start: t.CharStart, End: t.CharEnd},
		}
	}
	if err := Attach(tok, sent, layers, meta); err != nil {
		return nil, err
	}
	return tok, nil
}

// Attach copies the selected layers of sent onto an existing tokenization,
// matching tokens by position. The token counts must agree.
func Attach(tok *schema.Tokenization, sent *flat.Sentence, layers LayerSet, meta schema.AnnotationMetadata) error {
	if len(sent.Tokens) != len(tok.Tokens) {
		return &internalerr.AnnotationCountMismatchError{
			Level:    "token",
			Scope:    "tokenization " + tok.ID,
			Expected: len(tok.Tokens),
			Actual:   len(sent.Tokens),
		}
	}
	var (
		tt  *schema.TokenTagging
		p   *schema.Parse
		dp  *schema.DependencyParse
		err error
	)
	if layers.POS {
		if tt, err = posLayer(sent, meta); err != nil {
			return fmt.Errorf("tokenization %s: %w", tok.ID, err)
		}
	}
	if layers.CParse && sent.Parse != "" {
		if p, err = parseLayer(sent, meta); err != nil {
			return fmt.Errorf("tokenization %s: %w", tok.ID, err)
		}
	}
	if layers.DParse && sent.Dependencies != nil {
		if dp, err = depLayer(sent, meta); err != nil {
			return fmt.Errorf("tokenization %s: %w", tok.ID, err)
		}
	}

	// Layers are only attached once all of them converted cleanly.
	if tt != nil {
		tok.TokenTaggings = append(tok.TokenTaggings, tt)
	}
	if p != nil {
		tok.Parses = append(tok.Parses, p)
	}
	if dp != nil {
		tok.DependencyParses = append(tok.DependencyParses, dp)
	}
	return nil
}

// posLayer returns nil when the engine supplied no tags at all.
func posLayer(sent *flat.Sentence, meta schema.AnnotationMetadata) (*schema.TokenTagging, error) {
	tagged := 0
	for _, t := range sent.Tokens {
		if t.POS != "" {
			tagged++
		}
	}
	if tagged == 0 {
		return nil, nil
	}
	if tagged != len(sent.Tokens) {
		return nil, internalerr.NewValidation("pos", "%d of %d tokens tagged", tagged, len(sent.Tokens))
	}
	tt := &schema.TokenTagging{
		ID:       schema.NewID(),
		Metadata: meta,
		Kind:     schema.TaggingPOS,
		Tags:     make([]schema.TaggedToken, len(sent.Tokens)),
	}
	for i, t := range sent.Tokens {
		tt.Tags[i] = schema.TaggedToken{TokenIndex: i, Tag: t.POS}
	}
	return tt, nil
}

func parseLayer(sent *flat.Sentence, meta schema.AnnotationMetadata) (*schema.Parse, error) {
	cons, leaves, err := ParseTree(sent.Parse)
	if err != nil {
		return nil, err
	}
	if leaves != len(sent.Tokens) {
		return nil, &internalerr.AnnotationCountMismatchError{
			Level:    "token",
			Scope:    "constituency parse",
			Expected: len(sent.Tokens),
			Actual:   leaves,
		}
	}
	return &schema.Parse{ID: schema.NewID(), Metadata: meta, Constituents: cons}, nil
}

func depLayer(sent *flat.Sentence, meta schema.AnnotationMetadata) (*schema.DependencyParse, error) {
	n := len(sent.Tokens)
	dp := &schema.DependencyParse{
		ID:           schema.NewID(),
		Metadata:     meta,
		Dependencies: make([]schema.Dependency, len(sent.Dependencies)),
	}
	for i, d := range sent.Dependencies {
		if d.Gov < -1 || d.Gov >= n {
			return nil, &internalerr.IndexOutOfRangeError{What: "dependency governor", Index: d.Gov, Len: n}
		}
		if d.Dep < 0 || d.Dep >= n {
			return nil, &internalerr.IndexOutOfRangeError{What: "dependency dependent", Index: d.Dep, Len: n}
		}
		dp.Dependencies[i] = schema.Dependency{Gov: d.Gov, Dep: d.Dep, Type: d.Type}
	}
	return dp, nil
}
