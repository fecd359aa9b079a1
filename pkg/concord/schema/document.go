package schema

import (
	"github.com/cognicore/concord/pkg/concord/internalerr"
)

// Slice returns the text covered by span. Offsets are rune offsets.
func (d *Document) Slice(span TextSpan) (string, error) {
	runes := []rune(d.Text)
	return sliceRunes(runes, span)
}

// Runes returns the document text as runes, for callers that slice repeatedly.
func (d *Document) Runes() []rune {
	return []rune(d.Text)
}

// SliceRunes is Slice over a pre-converted rune slice.
func SliceRunes(runes []rune, span TextSpan) (string, error) {
	return sliceRunes(runes, span)
}

func sliceRunes(runes []rune, span TextSpan) (string, error) {
	if span.Start < 0 || span.Start > len(runes) {
		return "", &internalerr.IndexOutOfRangeError{What: "span start", Index: span.Start, Len: len(runes) + 1}
	}
	if span.End < span.Start || span.End > len(runes) {
		return "", &internalerr.IndexOutOfRangeError{What: "span end", Index: span.End, Len: len(runes) + 1}
	}
	return string(runes[span.Start:span.End]), nil
}

// SectionSegmentation returns the segmentation carrying id. It fails when no
// segmentation or more than one segmentation carries it.
func (d *Document) SectionSegmentation(id string) (*SectionSegmentation, int, error) {
	found := -1
	for i, ss := range d.SectionSegmentations {
		if ss.ID != id {
			continue
		}
		if found >= 0 {
			return nil, -1, &internalerr.DuplicateIdentifierError{Kind: "section segmentation", ID: id}
		}
		found = i
	}
	if found < 0 {
		return nil, -1, &internalerr.SegmentationNotFoundError{ID: id}
	}
	return d.SectionSegmentations[found], found, nil
}

// AddEntities attaches a mention set and its entity set to the document.
func (d *Document) AddEntities(ems *EntityMentionSet, es *EntitySet) {
	d.EntityMentionSets = append(d.EntityMentionSets, ems)
	d.EntitySets = append(d.EntitySets, es)
}

// SectionIndex maps section identifiers to their position, rejecting
// duplicates.
func (ss *SectionSegmentation) SectionIndex() (map[string]int, error) {
	idx := make(map[string]int, len(ss.Sections))
	for i, sec := range ss.Sections {
		if _, dup := idx[sec.ID]; dup {
			return nil, &internalerr.DuplicateIdentifierError{Kind: "section", ID: sec.ID}
		}
		idx[sec.ID] = i
	}
	return idx, nil
}

// SentenceCount returns the number of sentences across all sections' first
// sentence segmentations.
func (d *Document) SentenceCount() int {
	n := 0
	for _, ss := range d.SectionSegmentations {
		for _, sec := range ss.Sections {
			n += len(sec.Sentences())
		}
	}
	return n
}

// Clone returns a deep copy of the document. Alignment works on clones so a
// failed run never leaves a partially annotated document behind.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{ID: d.ID, Type: d.Type, Text: d.Text}
	if d.SectionSegmentations != nil {
		out.SectionSegmentations = make([]*SectionSegmentation, len(d.SectionSegmentations))
		for i, ss := range d.SectionSegmentations {
			out.SectionSegmentations[i] = ss.clone()
		}
	}
	if d.EntityMentionSets != nil {
		out.EntityMentionSets = make([]*EntityMentionSet, len(d.EntityMentionSets))
		for i, ems := range d.EntityMentionSets {
			out.EntityMentionSets[i] = ems.clone()
		}
	}
	if d.EntitySets != nil {
		out.EntitySets = make([]*EntitySet, len(d.EntitySets))
		for i, es := range d.EntitySets {
			out.EntitySets[i] = es.clone()
		}
	}
	return out
}

func (ss *SectionSegmentation) clone() *SectionSegmentation {
	if ss == nil {
		return nil
	}
	out := &SectionSegmentation{ID: ss.ID, Metadata: ss.Metadata}
	if ss.Sections != nil {
		out.Sections = make([]*Section, len(ss.Sections))
		for i, sec := range ss.Sections {
			out.Sections[i] = sec.clone()
		}
	}
	return out
}

func (s *Section) clone() *Section {
	if s == nil {
		return nil
	}
	out := &Section{ID: s.ID, Label: s.Label, Span: cloneSpan(s.Span)}
	if s.SentenceSegmentations != nil {
		out.SentenceSegmentations = make([]*SentenceSegmentation, len(s.SentenceSegmentations))
		for i, ss := range s.SentenceSegmentations {
			out.SentenceSegmentations[i] = ss.clone()
		}
	}
	return out
}

func (ss *SentenceSegmentation) clone() *SentenceSegmentation {
	if ss == nil {
		return nil
	}
	out := &SentenceSegmentation{ID: ss.ID, Metadata: ss.Metadata}
	if ss.Sentences != nil {
		out.Sentences = make([]*Sentence, len(ss.Sentences))
		for i, s := range ss.Sentences {
			out.Sentences[i] = s.clone()
		}
	}
	return out
}

func (s *Sentence) clone() *Sentence {
	if s == nil {
		return nil
	}
	return &Sentence{ID: s.ID, Span: cloneSpan(s.Span), Tokenization: s.Tokenization.Clone()}
}

// Clone returns a deep copy of the tokenization.
func (t *Tokenization) Clone() *Tokenization {
	if t == nil {
		return nil
	}
	out := &Tokenization{ID: t.ID, Metadata: t.Metadata}
	if t.Tokens != nil {
		out.Tokens = append([]Token(nil), t.Tokens...)
	}
	for _, tt := range t.TokenTaggings {
		c := *tt
		c.Tags = append([]TaggedToken(nil), tt.Tags...)
		out.TokenTaggings = append(out.TokenTaggings, &c)
	}
	for _, p := range t.Parses {
		c := *p
		c.Constituents = make([]Constituent, len(p.Constituents))
		for i, con := range p.Constituents {
			con.Children = append([]int(nil), con.Children...)
			c.Constituents[i] = con
		}
		out.Parses = append(out.Parses, &c)
	}
	for _, dp := range t.DependencyParses {
		c := *dp
		c.Dependencies = append([]Dependency(nil), dp.Dependencies...)
		out.DependencyParses = append(out.DependencyParses, &c)
	}
	return out
}

func (ems *EntityMentionSet) clone() *EntityMentionSet {
	out := &EntityMentionSet{ID: ems.ID, Metadata: ems.Metadata}
	for _, m := range ems.Mentions {
		c := *m
		c.TokenIndices = append([]int(nil), m.TokenIndices...)
		out.Mentions = append(out.Mentions, &c)
	}
	return out
}

func (es *EntitySet) clone() *EntitySet {
	out := &EntitySet{ID: es.ID, Metadata: es.Metadata}
	for _, e := range es.Entities {
		c := *e
		c.MentionIDs = append([]string(nil), e.MentionIDs...)
		out.Entities = append(out.Entities, &c)
	}
	return out
}

func cloneSpan(s *TextSpan) *TextSpan {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
