package cascade

import (
	"testing"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/identifier"
)

func TestApplyExtracted_ValidISBNMarkedValid(t *testing.T) {
	record := scanbib.NewPaperRecord("x.pdf", "en")
	ex := identifier.Extracted{ISBNs: []identifier.Match{{Value: "0306406152"}}}
	applyExtracted(record, ex)
	id, ok := record.Identifier(scanbib.IdentifierISBN)
	if !ok {
		t.Fatal("expected an ISBN identifier")
	}
	if !id.Valid {
		t.Errorf("expected fixture ISBN to validate, got invalid: %+v", id)
	}
}

func TestMergeBibliographic_DoesNotOverwriteExistingFields(t *testing.T) {
	record := scanbib.NewPaperRecord("x.pdf", "en")
	record.Bibliographic.Title = "Original Title"
	record.SetField("bibliographic.title", scanbib.StageUser)

	incoming := scanbib.Bibliographic{Title: "Oracle-Suggested Title", Keywords: map[string]struct{}{}}
	mergeBibliographic(record, incoming, scanbib.StageOracle)

	if record.Bibliographic.Title != "Original Title" {
		t.Errorf("expected user-set title preserved, got %q", record.Bibliographic.Title)
	}
}

func TestMergeBibliographic_RecordsYearConflicts(t *testing.T) {
	record := scanbib.NewPaperRecord("x.pdf", "en")
	yearA, yearB := 2019, 2020
	mergeBibliographic(record, scanbib.Bibliographic{Year: &yearA, Keywords: map[string]struct{}{}}, scanbib.StageRegex)
	mergeBibliographic(record, scanbib.Bibliographic{Year: &yearB, Keywords: map[string]struct{}{}}, scanbib.StageCatalog)

	if record.Bibliographic.Year == nil || *record.Bibliographic.Year != 2019 {
		t.Errorf("expected first-stage year to win as the displayed default, got %v", record.Bibliographic.Year)
	}
	if record.YearConflicts[scanbib.StageRegex] != 2019 || record.YearConflicts[scanbib.StageCatalog] != 2020 {
		t.Errorf("expected both years recorded, got %+v", record.YearConflicts)
	}
}
