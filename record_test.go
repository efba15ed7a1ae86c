package scanbib

import "testing"

func TestNewAuthorInvariant(t *testing.T) {
	if _, err := NewAuthor("", "", ""); err != ErrInvalidAuthor {
		t.Fatalf("expected ErrInvalidAuthor, got %v", err)
	}
	if _, err := NewAuthor("Ada", "", ""); err != ErrInvalidAuthor {
		t.Fatalf("expected ErrInvalidAuthor for given-only, got %v", err)
	}
	a, err := NewAuthor("Ada", "Lovelace", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := a.DisplayName(), "Lovelace, Ada"; got != want {
		t.Fatalf("DisplayName() = %q, want %q", got, want)
	}
	lit, err := NewAuthor("", "", "Working Group on Foo")
	if err != nil {
		t.Fatalf("unexpected error for literal author: %v", err)
	}
	if got := lit.FamilyOrLiteral(); got != "Working Group on Foo" {
		t.Fatalf("FamilyOrLiteral() = %q", got)
	}
}

func TestSetFieldUserEditWins(t *testing.T) {
	p := NewPaperRecord("/scans/EN_x.pdf", "en")
	p.SetField("title", StageRegex)
	p.SetField("title", StageUser)
	p.SetField("title", StageOracle)
	if got := p.FieldProvenance["title"].Stage; got != StageUser {
		t.Fatalf("user edit was overwritten, provenance = %v", got)
	}
}

func TestAddIdentifierSingletonInvariant(t *testing.T) {
	p := NewPaperRecord("/scans/EN_x.pdf", "en")
	p.AddIdentifier(Identifier{Kind: IdentifierDOI, Value: "10.1/a", Provenance: StageRegex, Valid: true})
	p.AddIdentifier(Identifier{Kind: IdentifierDOI, Value: "10.1/b", Provenance: StageLLM, Valid: true})
	got, ok := p.Identifier(IdentifierDOI)
	if !ok {
		t.Fatal("expected a DOI identifier")
	}
	if got.Value != "10.1/a" {
		t.Fatalf("expected first valid DOI to win, got %q", got.Value)
	}
	count := 0
	for _, id := range p.Identifiers {
		if id.Kind == IdentifierDOI {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one DOI identifier, got %d", count)
	}
}

func TestAddIdentifierReplacesInvalid(t *testing.T) {
	p := NewPaperRecord("/scans/EN_x.pdf", "en")
	p.AddIdentifier(Identifier{Kind: IdentifierArxiv, Value: "bad", Provenance: StageRegex, Valid: false})
	p.AddIdentifier(Identifier{Kind: IdentifierArxiv, Value: "2101.00001", Provenance: StageLLM, Valid: true})
	got, _ := p.Identifier(IdentifierArxiv)
	if got.Value != "2101.00001" {
		t.Fatalf("expected valid identifier to replace invalid one, got %q", got.Value)
	}
}

func TestDropInvalidIdentifiers(t *testing.T) {
	p := NewPaperRecord("/scans/EN_x.pdf", "en")
	p.Identifiers = []Identifier{
		{Kind: IdentifierISBN, Value: "bad", Provenance: StageLLM, Valid: false},
		{Kind: IdentifierISBN, Value: "9780306406157", Provenance: StageRegex, Valid: true},
		{Kind: IdentifierDOI, Value: "user-typed-garbage", Provenance: StageUser, Valid: false},
	}
	p.DropInvalidIdentifiers()
	if len(p.Identifiers) != 2 {
		t.Fatalf("expected 2 identifiers to survive (1 valid + 1 user-provenance), got %d", len(p.Identifiers))
	}
}

func TestDocumentTypeValid(t *testing.T) {
	if !DocumentTypeJournalArticle.Valid() {
		t.Fatal("journal_article should be valid")
	}
	if DocumentType("bogus").Valid() {
		t.Fatal("bogus should not be valid")
	}
}
