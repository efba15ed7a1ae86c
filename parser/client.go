// Package parser implements the structured-parser client (C4): it submits a
// page-bounded PDF to a GROBID-compatible TEI-producing HTTP service and
// maps the response onto the neutral bibliographic schema.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoore/scanbib"
	"github.com/miku/grobidclient"
)

// Config holds the parser-service connection and page-cut policy.
type Config struct {
	// Host is the GROBID-compatible service base URL, e.g. "http://localhost:8070".
	Host string
	// MaxPages bounds how many leading pages are submitted for parsing.
	MaxPages int
	Timeout  time.Duration
}

// DefaultConfig matches spec.md §6's GROBID defaults.
func DefaultConfig() Config {
	return Config{Host: "http://localhost:8070", MaxPages: 6, Timeout: 60 * time.Second}
}

// Client wraps a grobidclient.Grobid connection with the page-cut and
// empty-authors retry policy spec.md §4.4 requires.
type Client struct {
	cfg    Config
	grobid *grobidclient.Grobid
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg, grobid: grobidclient.New(cfg.Host)}
}

// Extract submits pdfPath (cut to the configured max pages) to the parser
// service and returns a bibliographic record. A nil record with a nil error
// means the service produced no usable header; per spec.md §4.4, any HTTP
// error is a non-fatal stage failure and the caller proceeds down the
// cascade.
func (c *Client) Extract(ctx context.Context, pdfPath string) (*scanbib.Bibliographic, string, error) {
	bib, doi, err := c.tryExtract(ctx, pdfPath, c.cfg.MaxPages)
	if err != nil {
		slog.Warn("parser stage failed", "path", pdfPath, "err", err)
		return nil, "", nil
	}
	if bib != nil && len(bib.Authors) == 0 {
		slog.Debug("parser returned no authors, retrying with doubled page budget", "path", pdfPath)
		dumpDiagnostic(pdfPath, bib)
		retried, retryDOI, err := c.tryExtract(ctx, pdfPath, c.cfg.MaxPages*2)
		if err == nil && retried != nil {
			return retried, retryDOI, nil
		}
	}
	return bib, doi, nil
}

func (c *Client) tryExtract(ctx context.Context, pdfPath string, maxPages int) (*scanbib.Bibliographic, string, error) {
	cutPath, err := cutFirstPages(ctx, pdfPath, maxPages)
	if err != nil {
		return nil, "", err
	}
	defer os.Remove(cutPath)

	result, err := c.grobid.ProcessPDFContext(ctx, cutPath, "processFulltextDocument", &grobidclient.Options{
		GenerateIDs:            true,
		ConsolidateHeader:      true,
		ConsolidateCitations:   false,
		IncludeRawCitations:    false,
		IncluseRawAffiliations: true,
		TEICoordinates:         []string{"persName", "biblStruct"},
		SegmentSentences:       false,
	})
	if err != nil {
		return nil, "", err
	}
	if result.Err != nil {
		return nil, "", result.Err
	}
	if result.StatusCode != 200 {
		return nil, "", fmt.Errorf("parser: grobid status %d", result.StatusCode)
	}
	doc, err := parseTEI(result.Body)
	if err != nil {
		return nil, "", err
	}
	bib, doi := doc.toBibliographic()
	if bib.Title == "" && len(bib.Authors) == 0 {
		return nil, "", nil
	}
	return bib, doi, nil
}

// dumpDiagnostic writes a minimal diagnostic note to the temp area when the
// first parse attempt comes back authorless, per spec.md §4.4's retry
// policy. The TEI body itself isn't retained here (it was already consumed
// by parseTEI); this records enough to explain the retry in logs.
func dumpDiagnostic(pdfPath string, bib *scanbib.Bibliographic) {
	f, err := os.CreateTemp("", "scanbib-parser-diagnostic-*.txt")
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "source=%s title=%q authors=0\n", pdfPath, bib.Title)
}
