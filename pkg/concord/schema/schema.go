// Package schema holds the structured document model that annotations are
// aligned into.
//
// A Document owns Section-Segmentations, each of which partitions the raw text
// into Sections. Sections own Sentence-Segmentations, Sentences own a single
// Tokenization, and Tokenizations carry the auxiliary layers (part-of-speech,
// constituency parse, dependency parse) attached by the alignment engine.
// Entity mention sets and entity sets hang off the Document and refer to
// tokens by Tokenization identifier and token index only.
//
// All character offsets are half-open rune offsets into Document.Text.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh identifier for a newly created node.
func NewID() string {
	return uuid.NewString()
}

// AnnotationMetadata records which tool produced a node and when.
type AnnotationMetadata struct {
	Tool      string `json:"tool"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

// NewMetadata stamps tool with the given time.
func NewMetadata(tool string, now time.Time) AnnotationMetadata {
	return AnnotationMetadata{Tool: tool, Timestamp: now.Unix()}
}

// TextSpan is a half-open [Start, End) rune range.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns End - Start.
func (s TextSpan) Len() int {
	return s.End - s.Start
}

// Document is the root of the structured representation.
type Document struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Text string `json:"text"`

	SectionSegmentations []*SectionSegmentation `json:"section_segmentations,omitempty"`
	EntityMentionSets    []*EntityMentionSet    `json:"entity_mention_sets,omitempty"`
	EntitySets           []*EntitySet           `json:"entity_sets,omitempty"`
}

// SectionSegmentation is a named partition of the document into sections.
type SectionSegmentation struct {
	ID       string             `json:"id"`
	Metadata AnnotationMetadata `json:"metadata"`
	Sections []*Section         `json:"sections"`
}

// Section is a contiguous region of the document. An empty Label means the
// label is unset.
type Section struct {
	ID                    string                  `json:"id"`
	Label                 string                  `json:"label,omitempty"`
	Span                  *TextSpan               `json:"span,omitempty"`
	SentenceSegmentations []*SentenceSegmentation `json:"sentence_segmentations,omitempty"`
}

// Sentences returns the sentences of the section's first sentence
// segmentation, or nil if it has none.
func (s *Section) Sentences() []*Sentence {
	if len(s.SentenceSegmentations) == 0 {
		return nil
	}
	return s.SentenceSegmentations[0].Sentences
}

// SentenceSegmentation partitions a section into sentences.
type SentenceSegmentation struct {
	ID        string             `json:"id"`
	Metadata  AnnotationMetadata `json:"metadata"`
	Sentences []*Sentence        `json:"sentences"`
}

// Sentence owns exactly one Tokenization once annotated.
type Sentence struct {
	ID           string        `json:"id"`
	Span         *TextSpan     `json:"span,omitempty"`
	Tokenization *Tokenization `json:"tokenization,omitempty"`
}

// Token is a single token of a Tokenization.
type Token struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Span  TextSpan `json:"span"`
}

// Tokenization is the ordered token sequence for one sentence plus the
// annotation layers attached to it.
type Tokenization struct {
	ID       string             `json:"id"`
	Metadata AnnotationMetadata `json:"metadata"`
	Tokens   []Token            `json:"tokens"`

	TokenTaggings    []*TokenTagging    `json:"token_taggings,omitempty"`
	Parses           []*Parse           `json:"parses,omitempty"`
	DependencyParses []*DependencyParse `json:"dependency_parses,omitempty"`
}

// TaggingPOS is the TokenTagging kind for part-of-speech tags.
const TaggingPOS = "POS"

// TokenTagging assigns one tag per token.
type TokenTagging struct {
	ID       string             `json:"id"`
	Metadata AnnotationMetadata `json:"metadata"`
	Kind     string             `json:"kind"`
	Tags     []TaggedToken      `json:"tags"`
}

// TaggedToken is a tag for the token at TokenIndex.
type TaggedToken struct {
	TokenIndex int    `json:"token_index"`
	Tag        string `json:"tag"`
}

// Parse is a constituency parse over a tokenization.
type Parse struct {
	ID           string             `json:"id"`
	Metadata     AnnotationMetadata `json:"metadata"`
	Constituents []Constituent      `json:"constituents"`
}

// Constituent is a node of a constituency parse. Children refer to other
// constituents by ID; Start/End are token indices, half-open.
type Constituent struct {
	ID        int    `json:"id"`
	Tag       string `json:"tag"`
	Children  []int  `json:"children,omitempty"`
	HeadChild int    `json:"head_child"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// DependencyParse is a set of typed governor/dependent arcs.
type DependencyParse struct {
	ID           string             `json:"id"`
	Metadata     AnnotationMetadata `json:"metadata"`
	Dependencies []Dependency       `json:"dependencies"`
}

// Dependency is one arc. Gov is -1 for the root.
type Dependency struct {
	Gov  int    `json:"gov"`
	Dep  int    `json:"dep"`
	Type string `json:"type,omitempty"`
}

// EntityMentionSet groups the mentions produced by one projection.
type EntityMentionSet struct {
	ID       string             `json:"id"`
	Metadata AnnotationMetadata `json:"metadata"`
	Mentions []*EntityMention   `json:"mentions"`
}

// EntityMention references tokens of a Tokenization by identifier and index.
type EntityMention struct {
	ID             string `json:"id"`
	TokenizationID string `json:"tokenization_id"`
	TokenIndices   []int  `json:"token_indices"`
	AnchorToken    int    `json:"anchor_token"`
	Text           string `json:"text,omitempty"`
}

// EntitySet groups the entities produced by one projection.
type EntitySet struct {
	ID       string             `json:"id"`
	Metadata AnnotationMetadata `json:"metadata"`
	Entities []*Entity          `json:"entities"`
}

// Entity refers to its mentions by ID.
type Entity struct {
	ID            string   `json:"id"`
	CanonicalName string   `json:"canonical_name,omitempty"`
	MentionIDs    []string `json:"mention_ids"`
}
