package filename

import (
	"testing"

	"github.com/jmoore/scanbib"
)

func mustAuthor(t *testing.T, given, family, literal string) scanbib.Author {
	t.Helper()
	a, err := scanbib.NewAuthor(given, family, literal)
	if err != nil {
		t.Fatalf("NewAuthor: %v", err)
	}
	return a
}

func TestGenerate_SingleAuthor(t *testing.T) {
	year := 2021
	bib := scanbib.Bibliographic{
		Title:   "A Study of Graph Neural Networks for Citation Prediction",
		Authors: []scanbib.Author{mustAuthor(t, "Ada", "Lovelace", "")},
		Year:    &year,
	}
	got, err := Generate(bib, Options{Scanned: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Lovelace_2021_Study_Graph_Neural_Networks_Citation_Prediction_scan.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerate_TwoAuthors(t *testing.T) {
	year := 2019
	bib := scanbib.Bibliographic{
		Title: "Quantum Computing",
		Authors: []scanbib.Author{
			mustAuthor(t, "Ada", "Lovelace", ""),
			mustAuthor(t, "Alan", "Turing", ""),
		},
		Year: &year,
	}
	got, err := Generate(bib, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Lovelace_Turing_2019_Quantum_Computing.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerate_ThreeOrMoreAuthorsCollapseToEtAl(t *testing.T) {
	bib := scanbib.Bibliographic{
		Title: "Three Author Paper",
		Authors: []scanbib.Author{
			mustAuthor(t, "Ada", "Lovelace", ""),
			mustAuthor(t, "Alan", "Turing", ""),
			mustAuthor(t, "Grace", "Hopper", ""),
		},
	}
	got, err := Generate(bib, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Lovelace_etal_Unknown_Three_Author_Paper.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerate_UnknownAuthorForbiddenByDefault(t *testing.T) {
	bib := scanbib.Bibliographic{Title: "Anonymous Work"}
	if _, err := Generate(bib, Options{}); err != ErrUnknownAuthorForbidden {
		t.Fatalf("expected ErrUnknownAuthorForbidden, got %v", err)
	}
	got, err := Generate(bib, Options{AllowUnknownAuthor: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Unknown_Author_Unknown_Anonymous_Work.pdf" {
		t.Errorf("got %q", got)
	}
}

func TestGenerate_DiacriticsAreFolded(t *testing.T) {
	bib := scanbib.Bibliographic{
		Title:   "Étude sur la Théorie",
		Authors: []scanbib.Author{mustAuthor(t, "José", "Núñez", "")},
	}
	got, err := Generate(bib, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Nunez_Unknown_Etude_Sur_La_Theorie.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTitleSlug_TruncatesAtByteBudget(t *testing.T) {
	longTitle := "Supercalifragilisticexpialidocious Thermohydrodynamical Considerations Regarding Megastructural Engineering Approaches"
	slug := titleSlug(longTitle)
	if len(slug) > titleSlugByteBudget {
		t.Errorf("slug exceeds byte budget: %d bytes", len(slug))
	}
}

func TestTitleSlug_DropsStopWords(t *testing.T) {
	got := titleSlug("The Theory of Everything and the Universe")
	want := "Theory_Everything_Universe"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
