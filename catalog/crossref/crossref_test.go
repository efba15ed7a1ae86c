package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoore/scanbib/catalog"
)

func TestGetByIdentifier_MapsWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"message": {
				"title": ["A Study of Things"],
				"author": [{"given": "Ada", "family": "Lovelace"}],
				"type": "journal-article",
				"container-title": ["Journal of Things"],
				"volume": "12",
				"issue": "3",
				"page": "1-20",
				"published": {"date-parts": [[2019, 5]]}
			}
		}`))
	}))
	defer srv.Close()

	c := New(catalog.DefaultConfig())
	c.BaseURL = srv.URL + "/"
	bib, err := c.GetByIdentifier(context.Background(), "10.1234/example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bib == nil {
		t.Fatal("expected a record")
	}
	if bib.Title != "A Study of Things" {
		t.Errorf("title = %q", bib.Title)
	}
	if len(bib.Authors) != 1 || bib.Authors[0].Family != "Lovelace" {
		t.Errorf("authors = %+v", bib.Authors)
	}
	if bib.Year == nil || *bib.Year != 2019 {
		t.Errorf("year = %v", bib.Year)
	}
	if bib.DocumentType != "journal_article" {
		t.Errorf("document type = %q", bib.DocumentType)
	}
}

func TestGetByIdentifier_NotFoundIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := catalog.DefaultConfig()
	cfg.MaxRetries = 0
	c := New(cfg)
	c.BaseURL = srv.URL + "/"
	bib, err := c.GetByIdentifier(context.Background(), "10.1234/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bib != nil {
		t.Fatalf("expected nil record for 404, got %+v", bib)
	}
}

func TestGetByIdentifier_RejectsMalformedDOI(t *testing.T) {
	c := New(catalog.DefaultConfig())
	if _, err := c.GetByIdentifier(context.Background(), "not-a-doi"); err == nil {
		t.Fatal("expected error for malformed DOI")
	}
}

func TestKind(t *testing.T) {
	c := New(catalog.DefaultConfig())
	if c.Kind() != "DOI" {
		t.Errorf("Kind() = %q", c.Kind())
	}
}
