// Package oracle implements the AI-oracle client (C5): a raw HTTP client
// against an Ollama-compatible /api/generate endpoint, with strict JSON
// extraction and hallucination defense per spec.md §4.5.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/identifier"
)

// Config configures the oracle client connection and hallucination defense.
type Config struct {
	// BaseURL is the Ollama-compatible host, e.g. "http://localhost:11434".
	BaseURL string
	Model   string
	Timeout time.Duration
	// DenyListedLiterals are author literal values treated as OCR garbage
	// and dropped from any oracle response (configurable, e.g. "Previously",
	// "Published", "UC Berkeley").
	DenyListedLiterals []string
}

// DefaultConfig matches spec.md §6's oracle defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:11434",
		Model:   "llama3",
		Timeout: 45 * time.Second,
		DenyListedLiterals: []string{
			"Previously", "Published", "UC Berkeley", "University", "Press",
		},
	}
}

// Client calls the configured oracle model and maps its response onto the
// neutral bibliographic schema.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// oracleBibliographic is the strict JSON shape the prompt asks the model to
// emit. Unknown fields are ignored by encoding/json; arrays are always
// present in a well-formed response but nil-safe regardless.
type oracleBibliographic struct {
	DocumentType string             `json:"document_type"`
	Title        string             `json:"title"`
	Authors      []oracleAuthor     `json:"authors"`
	Year         *int               `json:"year"`
	Container    string             `json:"container"`
	Volume       string             `json:"volume"`
	Issue        string             `json:"issue"`
	Pages        string             `json:"pages"`
	Publisher    string             `json:"publisher"`
	Abstract     string             `json:"abstract"`
	Keywords     []string           `json:"keywords"`
	Language     string             `json:"language"`
	Identifiers  []oracleIdentifier `json:"identifiers"`
}

type oracleAuthor struct {
	Given   string `json:"given"`
	Family  string `json:"family"`
	Literal string `json:"literal"`
}

type oracleIdentifier struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// ExtractFromText asks the oracle model to produce a bibliographic record
// from raw first-N-page text. Returned identifiers have already passed C2
// validation; any that failed are dropped with the caller expected to log
// via the returned warnings. On timeout or a response with no extractable
// JSON object, returns (nil, nil, nil, nil) — a non-fatal stage failure, never
// an error, matching every other cascade stage's null-on-failure contract.
func (c *Client) ExtractFromText(ctx context.Context, text, languageHint string, documentTypeHint *scanbib.DocumentType) (*scanbib.Bibliographic, []scanbib.Identifier, []string, error) {
	prompt := buildPrompt(text, languageHint, documentTypeHint)
	reqBody, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, nil, nil
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, nil, nil, nil
	}

	raw := extractFirstJSONObject(gen.Response)
	if raw == "" {
		return nil, nil, nil, nil
	}
	var parsed oracleBibliographic
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, nil, nil, nil
	}

	bib, ids, warnings := c.defendAgainstHallucination(parsed)
	return bib, ids, warnings, nil
}

// extractFirstJSONObject tolerates leading/trailing prose around the JSON
// object the model was asked to emit, returning the first balanced
// '{'...'}' span.
func extractFirstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't affect depth
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func buildPrompt(text, languageHint string, documentTypeHint *scanbib.DocumentType) string {
	var b strings.Builder
	b.WriteString("You are a bibliographic metadata extractor. Read the text below and return a single strict JSON object ")
	b.WriteString("matching this schema: {document_type, title, authors:[{given,family,literal}], year, container, volume, ")
	b.WriteString("issue, pages, publisher, abstract, keywords:[string], language, identifiers:[{kind,value}]}. ")
	b.WriteString("Unknown scalar fields must be null; arrays must always be present, even if empty. ")
	b.WriteString("Return ONLY the JSON object, no surrounding prose.\n")
	if languageHint != "" {
		fmt.Fprintf(&b, "Language hint: %s\n", languageHint)
	}
	if documentTypeHint != nil {
		fmt.Fprintf(&b, "Document type hint: %s\n", *documentTypeHint)
	}
	b.WriteString("---\n")
	b.WriteString(text)
	return b.String()
}

// defendAgainstHallucination applies spec.md §4.5's two defenses: every
// identifier must independently pass C2 validation, and author literals
// matching the configured deny-list (common OCR garbage tokens) are
// dropped.
func (c *Client) defendAgainstHallucination(parsed oracleBibliographic) (*scanbib.Bibliographic, []scanbib.Identifier, []string) {
	var warnings []string
	bib := &scanbib.Bibliographic{
		DocumentType: scanbib.DocumentType(parsed.DocumentType),
		Title:        parsed.Title,
		Year:         parsed.Year,
		Container:    parsed.Container,
		Volume:       parsed.Volume,
		Issue:        parsed.Issue,
		Pages:        parsed.Pages,
		Publisher:    parsed.Publisher,
		Abstract:     parsed.Abstract,
		Language:     parsed.Language,
		Keywords:     make(map[string]struct{}),
	}
	if !bib.DocumentType.Valid() {
		bib.DocumentType = scanbib.DocumentTypeUnknown
	}
	for _, k := range parsed.Keywords {
		if k != "" {
			bib.Keywords[k] = struct{}{}
		}
	}

	for _, a := range parsed.Authors {
		if c.isDenyListed(a.Literal) || c.isDenyListed(a.Family) {
			warnings = append(warnings, fmt.Sprintf("dropped oracle author %q (deny-listed OCR garbage token)", a.DisplayName()))
			continue
		}
		author, err := scanbib.NewAuthor(a.Given, a.Family, a.Literal)
		if err != nil {
			continue
		}
		bib.Authors = append(bib.Authors, author)
	}

	var ids []scanbib.Identifier
	for _, raw := range parsed.Identifiers {
		id, ok := validateOracleIdentifier(raw)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dropped oracle identifier %s=%q (failed validation)", raw.Kind, raw.Value))
			continue
		}
		ids = append(ids, id)
	}

	return bib, ids, warnings
}

func (o oracleAuthor) DisplayName() string {
	if o.Literal != "" {
		return o.Literal
	}
	return strings.TrimSpace(o.Given + " " + o.Family)
}

func (c *Client) isDenyListed(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	for _, deny := range c.cfg.DenyListedLiterals {
		if strings.EqualFold(token, deny) {
			return true
		}
	}
	return false
}

func validateOracleIdentifier(raw oracleIdentifier) (scanbib.Identifier, bool) {
	kind := scanbib.IdentifierKind(strings.ToUpper(raw.Kind))
	switch kind {
	case scanbib.IdentifierDOI:
		norm := identifier.NormalizeDOI(raw.Value)
		if !identifier.ValidateDOI(norm) {
			return scanbib.Identifier{}, false
		}
		return scanbib.Identifier{Kind: kind, Value: norm, Provenance: scanbib.StageOracle, Valid: true}, true
	case scanbib.IdentifierISBN:
		norm := identifier.NormalizeISBN(raw.Value)
		if !identifier.ValidateISBN10(norm) && !identifier.ValidateISBN13(norm) {
			return scanbib.Identifier{}, false
		}
		return scanbib.Identifier{Kind: kind, Value: norm, Provenance: scanbib.StageOracle, Valid: true}, true
	case scanbib.IdentifierISSN:
		if !identifier.ValidateISSN(raw.Value) {
			return scanbib.Identifier{}, false
		}
		return scanbib.Identifier{Kind: kind, Value: raw.Value, Provenance: scanbib.StageOracle, Valid: true}, true
	case scanbib.IdentifierArxiv:
		if !identifier.ValidateArxiv(raw.Value) {
			return scanbib.Identifier{}, false
		}
		return scanbib.Identifier{Kind: kind, Value: raw.Value, Provenance: scanbib.StageOracle, Valid: true}, true
	default:
		return scanbib.Identifier{}, false
	}
}
