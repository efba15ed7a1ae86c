// Package arxiv implements the arXiv catalog client (C3) against arXiv's
// public Atom export API.
package arxiv

import (
	"context"
	"encoding/xml"
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

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Client fetches metadata for a single arXiv identifier via the Atom feed
// export API (id_list query with max_results=1).
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

func (c *Client) Kind() scanbib.IdentifierKind { return scanbib.IdentifierArxiv }

// atomFeed mirrors the subset of the arXiv Atom response this client needs.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string         `xml:"title"`
	Summary   string         `xml:"summary"`
	Published string         `xml:"published"`
	Authors   []atomAuthor   `xml:"author"`
	Category  []atomCategory `xml:"category"`
	Comment   string         `xml:"http://arxiv.org/schemas/atom comment"`
	Journal   string         `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// GetByIdentifier fetches the arXiv entry for a normalized arXiv id.
func (c *Client) GetByIdentifier(ctx context.Context, idValue string) (*scanbib.Bibliographic, error) {
	id := strings.TrimSpace(idValue)
	if !identifier.ValidateArxiv(id) {
		return nil, fmt.Errorf("arxiv: invalid identifier shape %q", idValue)
	}
	q := url.Values{}
	q.Set("id_list", id)
	q.Set("max_results", "1")
	reqURL := c.BaseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "scanbib/1.0")
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("arxiv request failed", "id", id, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("arxiv non-200 after retries", "id", id, "status", resp.StatusCode)
		return nil, nil
	}
	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		slog.Warn("arxiv feed decode failed", "id", id, "err", err)
		return nil, nil
	}
	if len(feed.Entries) == 0 {
		return nil, nil
	}
	return mapEntry(feed.Entries[0]), nil
}

func mapEntry(e atomEntry) *scanbib.Bibliographic {
	bib := &scanbib.Bibliographic{
		DocumentType: scanbib.DocumentTypePreprint,
		Title:        collapseWhitespace(e.Title),
		Abstract:     collapseWhitespace(e.Summary),
		Container:    e.Journal,
		Keywords:     make(map[string]struct{}),
	}
	for _, a := range e.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		given, family := splitName(name)
		author, err := scanbib.NewAuthor(given, family, "")
		if err != nil {
			author, err = scanbib.NewAuthor("", "", name)
			if err != nil {
				continue
			}
		}
		bib.Authors = append(bib.Authors, author)
	}
	for _, cat := range e.Category {
		bib.Keywords[cat.Term] = struct{}{}
	}
	if y, ok := identifier.ParseYear(e.Published); ok {
		bib.Year = &y
	}
	return bib
}

// splitName splits an arXiv author's "Given Family" display name on the
// last space, the same heuristic arXiv's own listing pages use.
func splitName(full string) (given, family string) {
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return "", full
	}
	return full[:idx], full[idx+1:]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
