// Package coref projects coreference chains from the flat annotation stream
// onto Tokenizations produced by the walker.
package coref

import (
	"fmt"
	"strings"

	"github.com/cognicore/concord/pkg/concord/flat"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Project builds one Entity per chain and one EntityMention per mention.
// tokenizations must share the flat stream's index space: tokenizations[k]
// was built from stream record k. A mention outside that space is a
// desynchronized stream and fails with IndexOutOfRangeError; it is never
// clamped or skipped.
func Project(chains []*flat.Chain, tokenizations []*schema.Tokenization, meta schema.AnnotationMetadata) (*schema.EntityMentionSet, *schema.EntitySet, error) {
	ems := &schema.EntityMentionSet{ID: schema.NewID(), Metadata: meta, Mentions: []*schema.EntityMention{}}
	es := &schema.EntitySet{ID: schema.NewID(), Metadata: meta, Entities: []*schema.Entity{}}

	for ci, chain := range chains {
		if chain == nil {
			return nil, nil, internalerr.NewValidation("corefs", "chain %d is null", ci)
		}
		entity := &schema.Entity{ID: schema.NewID(), MentionIDs: make([]string, 0, len(chain.Mentions))}
		for mi, m := range chain.Mentions {
			em, err := mention(m, tokenizations)
			if err != nil {
				return nil, nil, fmt.Errorf("chain %d mention %d: %w", ci, mi, err)
			}
			ems.Mentions = append(ems.Mentions, em)
			entity.MentionIDs = append(entity.MentionIDs, em.ID)
			if m.Representative || entity.CanonicalName == "" {
				entity.CanonicalName = em.Text
			}
		}
		es.Entities = append(es.Entities, entity)
	}
	return ems, es, nil
}

// Attach projects chains and adds the resulting sets to doc. Calling it twice
// attaches two independent pairs of sets.
func Attach(doc *schema.Document, chains []*flat.Chain, tokenizations []*schema.Tokenization, meta schema.AnnotationMetadata) (*schema.EntityMentionSet, *schema.EntitySet, error) {
	ems, es, err := Project(chains, tokenizations, meta)
	if err != nil {
		return nil, nil, err
	}
	doc.AddEntities(ems, es)
	return ems, es, nil
}

func mention(m flat.Mention, tokenizations []*schema.Tokenization) (*schema.EntityMention, error) {
	if m.SentenceIndex < 0 || m.SentenceIndex >= len(tokenizations) {
		return nil, &internalerr.IndexOutOfRangeError{What: "sentence", Index: m.SentenceIndex, Len: len(tokenizations)}
	}
	tok := tokenizations[m.SentenceIndex]
	n := len(tok.Tokens)
	if m.Start < 0 || m.Start >= n {
		return nil, &internalerr.IndexOutOfRangeError{What: "mention start token", Index: m.Start, Len: n}
	}
	if m.End <= m.Start || m.End > n {
		return nil, &internalerr.IndexOutOfRangeError{What: "mention end token", Index: m.End, Len: n + 1}
	}
	anchor := m.Head
	if anchor < m.Start || anchor >= m.End {
		anchor = m.End - 1
	}

	indices := make([]int, 0, m.End-m.Start)
	words := make([]string, 0, m.End-m.Start)
	for i := m.Start; i < m.End; i++ {
		indices = append(indices, i)
		words = append(words, tok.Tokens[i].Text)
	}
	return &schema.EntityMention{
		ID:             schema.NewID(),
		TokenizationID: tok.ID,
		TokenIndices:   indices,
		AnchorToken:    anchor,
		Text:           strings.Join(words, " "),
	}, nil
}
