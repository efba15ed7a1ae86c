package scanbib

import (
	"errors"
	"fmt"
	"time"
)

// DocumentType is a closed set of bibliographic item kinds.
type DocumentType string

const (
	DocumentTypeJournalArticle DocumentType = "journal_article"
	DocumentTypeBookChapter    DocumentType = "book_chapter"
	DocumentTypeConference     DocumentType = "conference_paper"
	DocumentTypeBook           DocumentType = "book"
	DocumentTypeThesis         DocumentType = "thesis"
	DocumentTypeReport         DocumentType = "report"
	DocumentTypePreprint       DocumentType = "preprint"
	DocumentTypeNewsArticle    DocumentType = "news_article"
	DocumentTypeUnknown        DocumentType = "unknown"
)

// Valid reports whether d is one of the closed set of document types.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentTypeJournalArticle, DocumentTypeBookChapter, DocumentTypeConference,
		DocumentTypeBook, DocumentTypeThesis, DocumentTypeReport, DocumentTypePreprint,
		DocumentTypeNewsArticle, DocumentTypeUnknown:
		return true
	default:
		return false
	}
}

// IdentifierKind enumerates the identifier classes the system recognizes.
type IdentifierKind string

const (
	IdentifierDOI   IdentifierKind = "DOI"
	IdentifierISBN  IdentifierKind = "ISBN"
	IdentifierISSN  IdentifierKind = "ISSN"
	IdentifierArxiv IdentifierKind = "ARXIV"
	IdentifierJSTOR IdentifierKind = "JSTOR"
	IdentifierURL   IdentifierKind = "URL"
)

// Stage identifies which cascade stage (or the user) produced a value.
type Stage string

const (
	StageRegex    Stage = "regex"
	StageAPI      Stage = "api"
	StageGrobid   Stage = "grobid"
	StageLLM      Stage = "llm"
	StageUser     Stage = "user"
	StageCatalog  Stage = "catalog"
	StageParser   Stage = "parser"
	StageOracle   Stage = "oracle"
	StageHeuristic Stage = "heuristic"
)

// Identifier is a single extracted/validated identifier value.
type Identifier struct {
	Kind       IdentifierKind
	Value      string // canonical/normalized form
	Provenance Stage
	Valid      bool
}

// ErrInvalidAuthor is returned by NewAuthor when both name fields are empty.
var ErrInvalidAuthor = errors.New("author must have given+family or literal")

// Author is a single normalized author name record. Invariant: at least one
// of (Given+Family) or Literal is non-empty.
type Author struct {
	Given   string
	Family  string
	Literal string
}

// NewAuthor validates and constructs an Author, enforcing the data model
// invariant that an author is never entirely empty.
func NewAuthor(given, family, literal string) (Author, error) {
	a := Author{Given: given, Family: family, Literal: literal}
	if a.Family == "" && a.Literal == "" {
		return Author{}, ErrInvalidAuthor
	}
	return a, nil
}

// DisplayName returns a human-readable rendering, preferring the
// structured given/family form over the literal fallback.
func (a Author) DisplayName() string {
	switch {
	case a.Family != "" && a.Given != "":
		return fmt.Sprintf("%s, %s", a.Family, a.Given)
	case a.Family != "":
		return a.Family
	default:
		return a.Literal
	}
}

// FamilyOrLiteral returns the best available family-name-like token used for
// matching against the local store (search_by_authors_ordered).
func (a Author) FamilyOrLiteral() string {
	if a.Family != "" {
		return a.Family
	}
	return a.Literal
}

// Bibliographic holds the neutral field set shared by every extraction
// stage and catalog client. Optional scalar fields use pointers so that
// "absent" is representable without sentinel values.
type Bibliographic struct {
	DocumentType DocumentType
	Title        string
	Authors      []Author
	Year         *int // nil = unknown
	Container    string
	Volume       string
	Issue        string
	Pages        string
	Publisher    string
	Abstract     string
	Keywords     map[string]struct{}
	Language     string
}

// Provenance records which stage produced a given field's current value. A
// user edit always wins and is never overwritten by a later cascade stage.
type Provenance struct {
	Stage Stage
	At    time.Time
}

// PaperRecord is the mutable working record for a single document as it
// moves through the extraction cascade and the interactive approval flow.
type PaperRecord struct {
	SourcePDFPath string
	LanguageHint  string

	Identifiers []Identifier

	Bibliographic Bibliographic

	// FieldProvenance maps a dotted field path (e.g. "title",
	// "bibliographic.year") to the stage that most recently set it.
	FieldProvenance map[string]Provenance

	ProcessingTimeSeconds float64
	Warnings              []string

	// YearConflicts records every year proposed by a distinct stage, for
	// the YEAR_CONFIRM UI step. Keyed by stage name.
	YearConflicts map[Stage]int
}

// NewPaperRecord creates an empty record rooted at the given source path.
func NewPaperRecord(sourcePDFPath, languageHint string) *PaperRecord {
	return &PaperRecord{
		SourcePDFPath:   sourcePDFPath,
		LanguageHint:    languageHint,
		FieldProvenance: make(map[string]Provenance),
		YearConflicts:   make(map[Stage]int),
		Bibliographic: Bibliographic{
			DocumentType: DocumentTypeUnknown,
			Keywords:     make(map[string]struct{}),
		},
	}
}

// SetField records a new provenance for field, refusing to downgrade a
// user-edit with a cascade-stage value. Callers are expected to have
// already applied the actual field mutation; SetField only governs the
// provenance bookkeeping invariant.
func (p *PaperRecord) SetField(field string, stage Stage) {
	if prior, ok := p.FieldProvenance[field]; ok && prior.Stage == StageUser && stage != StageUser {
		return
	}
	p.FieldProvenance[field] = Provenance{Stage: stage, At: time.Now()}
}

// AddWarning appends a diagnostic warning to the record.
func (p *PaperRecord) AddWarning(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// AddIdentifier appends an identifier, enforcing the uniqueness invariant:
// at most one DOI, at most one arXiv id, at most one JSTOR id. A later
// identifier of a singleton kind replaces the earlier one only if the
// earlier one was invalid; otherwise it is dropped with a warning.
func (p *PaperRecord) AddIdentifier(id Identifier) {
	singleton := id.Kind == IdentifierDOI || id.Kind == IdentifierArxiv || id.Kind == IdentifierJSTOR
	if singleton {
		for i, existing := range p.Identifiers {
			if existing.Kind == id.Kind {
				if !existing.Valid && id.Valid {
					p.Identifiers[i] = id
				} else {
					p.AddWarning("dropped duplicate %s identifier %q", id.Kind, id.Value)
				}
				return
			}
		}
	}
	p.Identifiers = append(p.Identifiers, id)
}

// Identifier returns the first identifier of the given kind, if any.
func (p *PaperRecord) Identifier(kind IdentifierKind) (Identifier, bool) {
	for _, id := range p.Identifiers {
		if id.Kind == kind {
			return id, true
		}
	}
	return Identifier{}, false
}

// DropInvalidIdentifiers removes any identifier with provenance != user that
// failed validation, per the invariant in spec §3.
func (p *PaperRecord) DropInvalidIdentifiers() {
	kept := p.Identifiers[:0]
	for _, id := range p.Identifiers {
		if !id.Valid && id.Provenance != StageUser {
			p.AddWarning("dropped invalid %s identifier %q (stage=%s)", id.Kind, id.Value, id.Provenance)
			continue
		}
		kept = append(kept, id)
	}
	p.Identifiers = kept
}

// CascadeResult is the output of the metadata extraction pipeline (C6).
type CascadeResult struct {
	Success     bool
	Record      *PaperRecord
	StagesTried []Stage
	FinalStage  Stage
	Err         error
}
