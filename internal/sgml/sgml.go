// Package sgml imports LDC-style SGML newswire and forum files
// (<DOC id=...><HEADLINE>...</HEADLINE><TEXT><P>...</P></TEXT></DOC>) as
// documents with one section segmentation.
package sgml

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/cognicore/concord/pkg/concord/schema"
)

// Options configures Parse.
type Options struct {
	Tool string
	Now  func() time.Time
}

// Paragraph elements do not name a section kind of their own; they take the
// label of the element that encloses them.
var paragraphTags = map[string]bool{"P": true}

type frame struct {
	tag      string
	label    string
	segStart int
}

type builder struct {
	doc   *schema.Document
	runes []rune
	stack []frame
	ss    *schema.SectionSegmentation
}

// Parse reads every <DOC> element from r. Document text is the concatenated
// character data of the DOC element, tags removed and entities decoded.
// Each element run of text becomes a Section labelled with the upper-cased
// element name and spanning the text with surrounding whitespace trimmed.
func Parse(r io.Reader, opts Options) ([]*schema.Document, error) {
	tool := opts.Tool
	if tool == "" {
		tool = "concord"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var (
		docs []*schema.Document
		cur  *builder
	)
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("sgml: %w", err)
			}
			if cur != nil {
				docs = append(docs, cur.finish())
			}
			return docs, nil

		case html.StartTagToken:
			tok := z.Token()
			name := strings.ToUpper(tok.Data)
			if name == "DOC" {
				if cur != nil {
					docs = append(docs, cur.finish())
				}
				cur = newBuilder(tok, schema.NewMetadata(tool, now()))
				continue
			}
			if cur != nil {
				cur.open(name)
			}

		case html.EndTagToken:
			tok := z.Token()
			name := strings.ToUpper(tok.Data)
			if cur == nil {
				continue
			}
			if name == "DOC" {
				docs = append(docs, cur.finish())
				cur = nil
				continue
			}
			cur.close(name)

		case html.TextToken:
			if cur != nil {
				cur.runes = append(cur.runes, []rune(z.Token().Data)...)
			}
		}
	}
}

func newBuilder(tok html.Token, meta schema.AnnotationMetadata) *builder {
	doc := &schema.Document{}
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "id", "docid":
			doc.ID = a.Val
		case "type":
			doc.Type = a.Val
		}
	}
	return &builder{
		doc: doc,
		ss:  &schema.SectionSegmentation{ID: schema.NewID(), Metadata: meta, Sections: []*schema.Section{}},
	}
}

func (b *builder) open(name string) {
	label := name
	if n := len(b.stack); n > 0 {
		parent := &b.stack[n-1]
		b.emit(parent.label, parent.segStart, len(b.runes))
		if paragraphTags[name] {
			label = parent.label
		}
	}
	b.stack = append(b.stack, frame{tag: name, label: label, segStart: len(b.runes)})
}

// close pops up to and including the innermost frame opened by name. An end
// tag with no matching open element is ignored.
func (b *builder) close(name string) {
	idx := -1
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].tag == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for len(b.stack) > idx {
		top := b.stack[len(b.stack)-1]
		b.emit(top.label, top.segStart, len(b.runes))
		b.stack = b.stack[:len(b.stack)-1]
	}
	if n := len(b.stack); n > 0 {
		b.stack[n-1].segStart = len(b.runes)
	}
}

func (b *builder) emit(label string, start, end int) {
	for start < end && unicode.IsSpace(b.runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(b.runes[end-1]) {
		end--
	}
	if start == end {
		return
	}
	if label == "DOCID" && b.doc.ID == "" {
		b.doc.ID = string(b.runes[start:end])
	}
	b.ss.Sections = append(b.ss.Sections, &schema.Section{
		ID:    schema.NewID(),
		Label: label,
		Span:  &schema.TextSpan{Start: start, End: end},
	})
}

func (b *builder) finish() *schema.Document {
	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]
		b.emit(top.label, top.segStart, len(b.runes))
		b.stack = b.stack[:len(b.stack)-1]
	}
	b.doc.Text = string(b.runes)
	if b.doc.ID == "" {
		b.doc.ID = schema.NewID()
	}
	b.doc.SectionSegmentations = []*schema.SectionSegmentation{b.ss}
	return b.doc
}
