package isbn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoore/scanbib/catalog"
)

func TestGetByIdentifier_MapsBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ISBN:0306406152": {
				"title": "The C Programming Language",
				"authors": [{"name": "Brian Kernighan"}, {"name": "Dennis Ritchie"}],
				"publishers": [{"name": "Prentice Hall"}],
				"publish_date": "1988",
				"subjects": [{"name": "Computer programming"}]
			}
		}`))
	}))
	defer srv.Close()

	c := New(catalog.DefaultConfig())
	c.BaseURL = srv.URL
	bib, err := c.GetByIdentifier(context.Background(), "0-306-40615-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bib == nil {
		t.Fatal("expected a record")
	}
	if bib.Title != "The C Programming Language" {
		t.Errorf("title = %q", bib.Title)
	}
	if bib.Publisher != "Prentice Hall" {
		t.Errorf("publisher = %q", bib.Publisher)
	}
	if len(bib.Authors) != 2 {
		t.Errorf("authors = %+v", bib.Authors)
	}
	if bib.Year == nil || *bib.Year != 1988 {
		t.Errorf("year = %v", bib.Year)
	}
}

func TestGetByIdentifier_MissingKeyIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(catalog.DefaultConfig())
	c.BaseURL = srv.URL
	bib, err := c.GetByIdentifier(context.Background(), "0306406152")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bib != nil {
		t.Fatalf("expected nil for missing bibkey, got %+v", bib)
	}
}

func TestGetByIdentifier_RejectsBadChecksum(t *testing.T) {
	c := New(catalog.DefaultConfig())
	if _, err := c.GetByIdentifier(context.Background(), "0306406151"); err == nil {
		t.Fatal("expected error for bad ISBN checksum")
	}
}
