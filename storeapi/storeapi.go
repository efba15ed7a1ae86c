// Package storeapi implements the bibliographic API client (C8): the
// write-side counterpart to store's read-only search, against the
// bibliographic store's local REST API.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoore/scanbib"
)

// Config configures the REST connection to the local bibliographic store.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{BaseURL: "http://127.0.0.1:23119/api", Timeout: 10 * time.Second}
}

// Result is the uniform {success, error} shape every write operation
// returns, per spec.md §4.8's failure semantics.
type Result struct {
	Success bool
	Error   error
}

// Client writes paper records into the bibliographic store.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type createItemPayload struct {
	ItemType   string            `json:"itemType"`
	Title      string            `json:"title"`
	Creators   []creatorPayload  `json:"creators"`
	Date       string            `json:"date,omitempty"`
	Publication string          `json:"publicationTitle,omitempty"`
	Volume     string            `json:"volume,omitempty"`
	Issue      string            `json:"issue,omitempty"`
	Pages      string            `json:"pages,omitempty"`
	Publisher  string            `json:"publisher,omitempty"`
	AbstractNote string          `json:"abstractNote,omitempty"`
	Language   string            `json:"language,omitempty"`
}

type creatorPayload struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type itemCreatedResponse struct {
	ItemKey string `json:"itemKey"`
}

// CreateItem translates the neutral record into the store's native item
// schema and creates it, returning the new item's key.
func (c *Client) CreateItem(ctx context.Context, bib scanbib.Bibliographic) (itemKey string, res Result) {
	payload := createItemPayload{
		ItemType:     mapItemType(bib.DocumentType),
		Title:        bib.Title,
		Publication:  bib.Container,
		Volume:       bib.Volume,
		Issue:        bib.Issue,
		Pages:        bib.Pages,
		Publisher:    bib.Publisher,
		AbstractNote: bib.Abstract,
		Language:     bib.Language,
	}
	if bib.Year != nil {
		payload.Date = fmt.Sprintf("%d", *bib.Year)
	}
	for _, a := range bib.Authors {
		if a.Literal != "" && a.Family == "" {
			payload.Creators = append(payload.Creators, creatorPayload{CreatorType: "author", Name: a.Literal})
			continue
		}
		payload.Creators = append(payload.Creators, creatorPayload{CreatorType: "author", FirstName: a.Given, LastName: a.Family})
	}

	var out itemCreatedResponse
	if err := c.postJSON(ctx, "/items", payload, &out); err != nil {
		return "", Result{Success: false, Error: err}
	}
	return out.ItemKey, Result{Success: true}
}

// AttachLinkedFile attaches a cross-filesystem-boundary path as a linked
// file. The display title is the filename, not the paper title, per
// spec.md §4.8 (aids path resolution in the store's own UI).
func (c *Client) AttachLinkedFile(ctx context.Context, itemKey, crossBoundaryPath, displayTitle string) (attachmentKey string, res Result) {
	payload := map[string]string{
		"parentItem":  itemKey,
		"path":        crossBoundaryPath,
		"title":       displayTitle,
		"linkMode":    "linked_file",
	}
	var out struct {
		AttachmentKey string `json:"attachmentKey"`
	}
	if err := c.postJSON(ctx, "/attachments/linked", payload, &out); err != nil {
		return "", Result{Success: false, Error: err}
	}
	return out.AttachmentKey, Result{Success: true}
}

// SetFieldIfEmpty sets field to value only if the store's current value is
// empty; used for abstract enrichment, which per spec.md §9 must never
// overwrite an existing value. Returns whether a write occurred.
func (c *Client) SetFieldIfEmpty(ctx context.Context, itemKey, field, value string) (wrote bool, res Result) {
	payload := map[string]string{"itemKey": itemKey, "field": field, "value": value}
	var out struct {
		Wrote bool `json:"wrote"`
	}
	if err := c.postJSON(ctx, "/items/set-field-if-empty", payload, &out); err != nil {
		return false, Result{Success: false, Error: err}
	}
	return out.Wrote, Result{Success: true}
}

// UpdateTags applies set-union (add) and set-difference (remove) semantics
// to an item's tag set.
func (c *Client) UpdateTags(ctx context.Context, itemKey string, add, remove []string) Result {
	payload := map[string]any{"itemKey": itemKey, "add": add, "remove": remove}
	if err := c.postJSON(ctx, "/items/update-tags", payload, nil); err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storeapi: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storeapi: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapItemType(dt scanbib.DocumentType) string {
	switch dt {
	case scanbib.DocumentTypeJournalArticle:
		return "journalArticle"
	case scanbib.DocumentTypeBookChapter:
		return "bookSection"
	case scanbib.DocumentTypeConference:
		return "conferencePaper"
	case scanbib.DocumentTypeBook:
		return "book"
	case scanbib.DocumentTypeThesis:
		return "thesis"
	case scanbib.DocumentTypeReport:
		return "report"
	case scanbib.DocumentTypePreprint:
		return "preprint"
	case scanbib.DocumentTypeNewsArticle:
		return "magazineArticle"
	default:
		return "document"
	}
}
