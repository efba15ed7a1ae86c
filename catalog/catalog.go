// Package catalog defines the uniform external-catalog client interface
// (C3): a single Client fetches a paper_record given an identifier kind and
// value, mapping registry-specific fields into the neutral bibliographic
// schema.
package catalog

import (
	"context"
	"time"

	"github.com/jmoore/scanbib"
)

// Client fetches bibliographic metadata for one identifier from a single
// registry (Crossref for DOI, arXiv's API, an ISBN catalog, ...).
type Client interface {
	// Kind reports which identifier kind this client serves.
	Kind() scanbib.IdentifierKind
	// GetByIdentifier fetches a record for the given identifier value. A
	// nil record with a nil error means no usable record: not found, or a
	// request that still failed after retries (network error, non-200
	// status, undecodable body). An error is returned only for an invalid
	// identifier value or a request that cannot be built.
	GetByIdentifier(ctx context.Context, idValue string) (*scanbib.Bibliographic, error)
}

// Config carries the handful of cross-cutting options every catalog client
// needs: a politeness contact, and bounded retry parameters for 429/5xx.
type Config struct {
	PolitenessEmail string
	Timeout         time.Duration
	MaxRetries      int
}

// DefaultConfig matches spec.md §5's stated defaults (15s catalog timeout,
// bounded retries starting at 500ms).
func DefaultConfig() Config {
	return Config{MaxRetries: 2, Timeout: 15 * time.Second}
}
