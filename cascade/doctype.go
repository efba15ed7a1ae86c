package cascade

import (
	"strings"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/identifier"
)

// phraseRule is one row of the evidence-based document-type classifier:
// data, not code, per spec.md §4.6's ordered rule cascade.
type phraseRule struct {
	phrase string
	result scanbib.DocumentType
}

// phraseRules are checked in order; the first phrase found in the record's
// title, container or abstract (see classifyByPhrase) wins. This table is the heuristic tail of the
// document_type rule cascade, applied only once every more specific signal
// (JSTOR id, arXiv id, catalog/parser/oracle hint) has been exhausted.
var phraseRules = []phraseRule{
	{"proceedings of", scanbib.DocumentTypeConference},
	{"conference on", scanbib.DocumentTypeConference},
	{"submitted to", scanbib.DocumentTypePreprint},
	{"thesis", scanbib.DocumentTypeThesis},
	{"dissertation", scanbib.DocumentTypeThesis},
	{"chapter", scanbib.DocumentTypeBookChapter},
	{"technical report", scanbib.DocumentTypeReport},
	{"working paper", scanbib.DocumentTypeReport},
}

// resolveDocumentType applies the ordered rule cascade from spec.md §4.6:
// JSTOR id present, then arXiv id present, then a catalog/parser/oracle
// type hint (whichever is non-nil, in call order), finally the phrase-rule
// heuristic. It only ever narrows an unknown document type; a type already
// set by a prior, higher-precedence stage is left untouched.
func resolveDocumentType(record *scanbib.PaperRecord, extracted identifier.Extracted, structuralHint, llmHint *scanbib.DocumentType) {
	b := &record.Bibliographic
	if b.DocumentType != scanbib.DocumentTypeUnknown {
		return
	}
	if _, ok := record.Identifier(scanbib.IdentifierJSTOR); ok {
		b.DocumentType = scanbib.DocumentTypeJournalArticle
		return
	}
	if _, ok := record.Identifier(scanbib.IdentifierArxiv); ok {
		b.DocumentType = scanbib.DocumentTypePreprint
		return
	}
	if structuralHint != nil && structuralHint.Valid() && *structuralHint != scanbib.DocumentTypeUnknown {
		b.DocumentType = *structuralHint
		return
	}
	if llmHint != nil && llmHint.Valid() && *llmHint != scanbib.DocumentTypeUnknown {
		b.DocumentType = *llmHint
		return
	}
	b.DocumentType = classifyByPhrase(record)
}

// classifyByPhrase walks the phrase-rule table against the record's
// warnings-free evidence: title, container, and abstract text gathered so
// far. It never has access to the raw page text here (that's consumed
// upstream), so it works purely off record fields already populated.
func classifyByPhrase(record *scanbib.PaperRecord) scanbib.DocumentType {
	haystack := strings.ToLower(record.Bibliographic.Title + " " + record.Bibliographic.Container + " " + record.Bibliographic.Abstract)
	for _, rule := range phraseRules {
		if strings.Contains(haystack, rule.phrase) {
			return rule.result
		}
	}
	if _, ok := record.Identifier(scanbib.IdentifierISBN); ok {
		return scanbib.DocumentTypeBook
	}
	if len(record.Bibliographic.Container) > 0 {
		return scanbib.DocumentTypeJournalArticle
	}
	return scanbib.DocumentTypeUnknown
}
