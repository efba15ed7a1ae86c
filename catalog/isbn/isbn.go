// Package isbn implements the ISBN catalog client (C3) against the Open
// Library Books API.
package isbn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/catalog"
	"github.com/jmoore/scanbib/identifier"
	"github.com/sethgrid/pester"
)

const defaultBaseURL = "https://openlibrary.org/api/books"

// Client fetches metadata for a single ISBN from the Open Library Books API.
type Client struct {
	BaseURL string
	Config  catalog.Config
	http    *pester.Client
}

func New(cfg catalog.Config) *Client {
	p := pester.New()
	p.Concurrency = 1
	p.MaxRetries = cfg.MaxRetries
	p.Backoff = pester.ExponentialBackoff
	p.Timeout = cfg.Timeout
	return &Client{BaseURL: defaultBaseURL, Config: cfg, http: p}
}

func (c *Client) Kind() scanbib.IdentifierKind { return scanbib.IdentifierISBN }

type olBook struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Authors       []olAuthor `json:"authors"`
	Publishers    []olNamed `json:"publishers"`
	PublishDate   string `json:"publish_date"`
	NumberOfPages int    `json:"number_of_pages"`
	Subjects      []olNamed `json:"subjects"`
}

type olAuthor struct {
	Name string `json:"name"`
}

type olNamed struct {
	Name string `json:"name"`
}

// GetByIdentifier fetches the Open Library record for a normalized ISBN.
func (c *Client) GetByIdentifier(ctx context.Context, idValue string) (*scanbib.Bibliographic, error) {
	isbn := identifier.NormalizeISBN(idValue)
	if !identifier.ValidateISBN10(isbn) && !identifier.ValidateISBN13(isbn) {
		return nil, fmt.Errorf("isbn: invalid checksum %q", idValue)
	}
	key := "ISBN:" + isbn
	q := url.Values{}
	q.Set("bibkeys", key)
	q.Set("format", "json")
	q.Set("jscmd", "data")
	reqURL := c.BaseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "scanbib/1.0")
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("openlibrary request failed", "isbn", isbn, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("openlibrary non-200 after retries", "isbn", isbn, "status", resp.StatusCode)
		return nil, nil
	}
	var envelope map[string]olBook
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		slog.Warn("openlibrary decode failed", "isbn", isbn, "err", err)
		return nil, nil
	}
	book, ok := envelope[key]
	if !ok {
		return nil, nil
	}
	return mapBook(book), nil
}

func mapBook(b olBook) *scanbib.Bibliographic {
	title := b.Title
	if b.Subtitle != "" {
		title = title + ": " + b.Subtitle
	}
	bib := &scanbib.Bibliographic{
		DocumentType: scanbib.DocumentTypeBook,
		Title:        title,
		Keywords:     make(map[string]struct{}),
	}
	if len(b.Publishers) > 0 {
		bib.Publisher = b.Publishers[0].Name
	}
	for _, a := range b.Authors {
		author, err := scanbib.NewAuthor("", "", a.Name)
		if err != nil {
			continue
		}
		bib.Authors = append(bib.Authors, author)
	}
	for _, s := range b.Subjects {
		bib.Keywords[s.Name] = struct{}{}
	}
	if y, ok := identifier.ParseYear(b.PublishDate); ok {
		bib.Year = &y
	}
	return bib
}
