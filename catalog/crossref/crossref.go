// Package crossref implements the DOI-registry catalog client (C3) against
// the Crossref REST API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/catalog"
	"github.com/jmoore/scanbib/identifier"
	"github.com/sethgrid/pester"
)

const defaultBaseURL = "https://api.crossref.org/works/"

// Client fetches bibliographic metadata from the Crossref DOI registry.
type Client struct {
	BaseURL string
	Config  catalog.Config
	http    *pester.Client
}

// New constructs a Crossref client. cfg.MaxRetries governs the bounded
// exponential backoff applied to 429/5xx responses, per spec.md §5 (backoff
// starting at 500ms, at most 2 retries by default).
func New(cfg catalog.Config) *Client {
	p := pester.New()
	p.Concurrency = 1
	p.MaxRetries = cfg.MaxRetries
	p.Backoff = pester.ExponentialBackoff
	p.Timeout = cfg.Timeout
	return &Client{BaseURL: defaultBaseURL, Config: cfg, http: p}
}

func (c *Client) Kind() scanbib.IdentifierKind { return scanbib.IdentifierDOI }

type crossrefEnvelope struct {
	Status  string `json:"status"`
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title        []string `json:"title"`
	Author       []crossrefAuthor `json:"author"`
	Publisher    string   `json:"publisher"`
	Type         string   `json:"type"`
	ContainerTitle []string `json:"container-title"`
	Volume       string   `json:"volume"`
	Issue        string   `json:"issue"`
	Page         string   `json:"page"`
	Abstract     string   `json:"abstract"`
	Subject      []string `json:"subject"`
	Published    struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
	Language string `json:"language"`
}

type crossrefAuthor struct {
	Given   string `json:"given"`
	Family  string `json:"family"`
	Literal string `json:"name"`
}

// GetByIdentifier fetches the Crossref work for a normalized DOI.
func (c *Client) GetByIdentifier(ctx context.Context, idValue string) (*scanbib.Bibliographic, error) {
	doi := identifier.NormalizeDOI(idValue)
	if !identifier.ValidateDOI(doi) {
		return nil, fmt.Errorf("crossref: invalid doi %q", idValue)
	}
	reqURL := c.BaseURL + url.PathEscape(doi)
	if c.Config.PolitenessEmail != "" {
		reqURL += "?mailto=" + url.QueryEscape(c.Config.PolitenessEmail)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "scanbib/1.0 (mailto:"+c.Config.PolitenessEmail+")")
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("crossref request failed", "doi", doi, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode below
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		// pester has already retried; treat remaining failure as a miss.
		slog.Warn("crossref gave up after retries", "doi", doi, "status", resp.StatusCode)
		return nil, nil
	default:
		slog.Debug("crossref permanent miss", "doi", doi, "status", resp.StatusCode)
		return nil, nil
	}
	var env crossrefEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		slog.Warn("crossref decode failed", "doi", doi, "err", err)
		return nil, nil
	}
	return mapWork(env.Message), nil
}

func mapWork(w crossrefWork) *scanbib.Bibliographic {
	bib := &scanbib.Bibliographic{
		DocumentType: mapType(w.Type),
		Publisher:    w.Publisher,
		Volume:       w.Volume,
		Issue:        w.Issue,
		Pages:        w.Page,
		Abstract:     stripJATS(w.Abstract),
		Language:     w.Language,
		Keywords:     make(map[string]struct{}),
	}
	if len(w.Title) > 0 {
		bib.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		bib.Container = w.ContainerTitle[0]
	}
	for _, a := range w.Author {
		author, err := scanbib.NewAuthor(a.Given, a.Family, a.Literal)
		if err != nil {
			continue
		}
		bib.Authors = append(bib.Authors, author)
	}
	for _, s := range w.Subject {
		bib.Keywords[s] = struct{}{}
	}
	if len(w.Published.DateParts) > 0 && len(w.Published.DateParts[0]) > 0 {
		y := w.Published.DateParts[0][0]
		bib.Year = &y
	}
	return bib
}

// stripJATS removes the minimal JATS <jats:p> wrapper Crossref puts around
// abstracts, without pulling in a full XML/HTML parser for one tag.
func stripJATS(s string) string {
	s = strings.ReplaceAll(s, "<jats:p>", "")
	s = strings.ReplaceAll(s, "</jats:p>", "")
	return strings.TrimSpace(s)
}

func mapType(crossrefType string) scanbib.DocumentType {
	switch crossrefType {
	case "journal-article":
		return scanbib.DocumentTypeJournalArticle
	case "book-chapter":
		return scanbib.DocumentTypeBookChapter
	case "proceedings-article":
		return scanbib.DocumentTypeConference
	case "book", "monograph":
		return scanbib.DocumentTypeBook
	case "report", "report-series":
		return scanbib.DocumentTypeReport
	case "posted-content":
		return scanbib.DocumentTypePreprint
	default:
		return scanbib.DocumentTypeUnknown
	}
}
