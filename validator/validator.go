// Package validator implements the author and journal validators (C13): a
// JSON on-disk frequency cache built from the local bibliographic store,
// normalized-name matching, and OCR-fuzzy suggestion.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hbollon/go-edlib"
	"github.com/jmoiron/sqlx"
)

// cacheSchemaVersion is bumped whenever the on-disk cache layout changes
// incompatibly; a version mismatch on load triggers a full rebuild instead
// of a parse attempt.
const cacheSchemaVersion = 1

// MatchType is the closed set of ways a validated name was matched.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchNormalized MatchType = "normalized"
	MatchFuzzy      MatchType = "fuzzy"
	MatchNone       MatchType = "none"
)

// Result is the outcome of validating a single name against the cache.
type Result struct {
	Matched     bool
	Canonical   string
	PaperCount  int
	MatchType   MatchType
	Confidence  int // 0-100
	Alternatives []string
}

// entry is one cached distinct name with its observed frequency.
type entry struct {
	Canonical string `json:"canonical"`
	Count     int    `json:"count"`
}

// cacheFile is the on-disk JSON shape.
type cacheFile struct {
	SchemaVersion int       `json:"schema_version"`
	BuiltAt       time.Time `json:"built_at"`
	Entries       []entry   `json:"entries"`
}

// Kind selects which store column the validator extracts names from.
type Kind string

const (
	KindAuthor  Kind = "author"
	KindJournal Kind = "journal"
)

// Config configures one Validator instance.
type Config struct {
	Kind      Kind
	CachePath string
	MaxAge    time.Duration // refresh_if_needed's staleness bound; default 24h
}

// DefaultMaxAge is spec.md §4.13's 24h staleness bound.
const DefaultMaxAge = 24 * time.Hour

// Validator is a normalized-name matcher backed by a JSON cache rebuilt
// from the local bibliographic store on a staleness timer.
type Validator struct {
	cfg Config

	mu        sync.RWMutex
	byNorm    map[string]*entry // normalized name -> entry
	builtAt   time.Time
}

// New constructs a Validator, loading any existing on-disk cache. A missing
// or corrupt cache degrades to an empty index rather than failing, per
// spec.md §4.13's failure-mode contract.
func New(cfg Config) *Validator {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	v := &Validator{cfg: cfg, byNorm: make(map[string]*entry)}
	v.loadCache()
	return v
}

func (v *Validator) loadCache() {
	data, err := os.ReadFile(v.cfg.CachePath)
	if err != nil {
		return
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		slog.Warn("validator: cache corrupt, falling back to empty index", "path", v.cfg.CachePath, "err", err)
		return
	}
	if cf.SchemaVersion != cacheSchemaVersion {
		slog.Debug("validator: cache schema mismatch, will rebuild", "path", v.cfg.CachePath)
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.byNorm = make(map[string]*entry, len(cf.Entries))
	for i := range cf.Entries {
		e := cf.Entries[i]
		v.byNorm[normalize(e.Canonical)] = &e
	}
	v.builtAt = cf.BuiltAt
}

// RefreshIfNeeded is a no-op within MaxAge of the last build, a full
// rebuild from the store otherwise; silent on the happy path, per
// spec.md §4.13.
func (v *Validator) RefreshIfNeeded(ctx context.Context, db *sqlx.DB) error {
	v.mu.RLock()
	stale := time.Since(v.builtAt) > v.cfg.MaxAge
	v.mu.RUnlock()
	if !stale {
		return nil
	}
	return v.rebuild(ctx, db)
}

func (v *Validator) rebuild(ctx context.Context, db *sqlx.DB) error {
	counts, err := v.extractFromStore(ctx, db)
	if err != nil {
		slog.Warn("validator: store unreachable, keeping existing index", "kind", v.cfg.Kind, "err", err)
		return nil
	}

	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{Canonical: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Canonical < entries[j].Canonical })

	byNorm := make(map[string]*entry, len(entries))
	for i := range entries {
		e := entries[i]
		byNorm[normalize(e.Canonical)] = &e
	}

	builtAt := time.Now()
	v.mu.Lock()
	v.byNorm = byNorm
	v.builtAt = builtAt
	v.mu.Unlock()

	return v.writeCache(cacheFile{SchemaVersion: cacheSchemaVersion, BuiltAt: builtAt, Entries: entries})
}

// writeCache persists the cache atomically: write to a temp file in the
// cache directory, then rename, matching fileutils.CopyFile's
// temp-then-rename pattern.
func (v *Validator) writeCache(cf cacheFile) error {
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("validator: marshal cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(v.cfg.CachePath), ".tmp-validator-cache-")
	if err != nil {
		return fmt.Errorf("validator: create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("validator: write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, v.cfg.CachePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("validator: rename cache file: %w", err)
	}
	return nil
}

// extractFromStore queries the local store for distinct names with
// frequency counts, per spec.md §4.13's `_extract_from_store`.
func (v *Validator) extractFromStore(ctx context.Context, db *sqlx.DB) (map[string]int, error) {
	var query string
	switch v.cfg.Kind {
	case KindAuthor:
		query = `select c.family as name, count(*) as n
		          from creators c join items i on i.key = c.item_key
		          where c.family != '' group by c.family`
	case KindJournal:
		query = `select publication_title as name, count(*) as n
		          from items where publication_title != '' group by publication_title`
	default:
		return nil, fmt.Errorf("validator: unknown kind %q", v.cfg.Kind)
	}

	var rows []struct {
		Name string `db:"name"`
		N    int    `db:"n"`
	}
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("validator: query store: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Name] += r.N
	}
	return counts, nil
}

// normalize lowercases, trims, and strips common abbreviation markers for
// matching purposes only; stored canonical displays keep the original form.
func normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, ".", "")
	for _, marker := range []string{" jr", " sr", " rev", " prof", " dr"} {
		s = strings.TrimSuffix(s, marker)
	}
	return strings.Join(strings.Fields(s), " ")
}

// Validate classifies name against the cache: exact canonical match,
// normalized match, fuzzy (Jaro-Winkler) match, or none.
func (v *Validator) Validate(name string) Result {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if e, ok := v.exactLookup(name); ok {
		return Result{Matched: true, Canonical: e.Canonical, PaperCount: e.Count, MatchType: MatchExact, Confidence: 100}
	}

	norm := normalize(name)
	if e, ok := v.byNorm[norm]; ok {
		return Result{Matched: true, Canonical: e.Canonical, PaperCount: e.Count, MatchType: MatchNormalized, Confidence: 90}
	}

	best, score, alternatives := v.fuzzyBest(norm)
	if best != nil && score >= 0.85 {
		return Result{
			Matched:      true,
			Canonical:    best.Canonical,
			PaperCount:   best.Count,
			MatchType:    MatchFuzzy,
			Confidence:   int(score * 100),
			Alternatives: alternatives,
		}
	}
	return Result{MatchType: MatchNone}
}

func (v *Validator) exactLookup(name string) (*entry, bool) {
	for _, e := range v.byNorm {
		if e.Canonical == name {
			return e, true
		}
	}
	return nil, false
}

// fuzzyBest scans the index for the highest Jaro-Winkler similarity match,
// returning up to 3 runner-up canonical names as alternatives.
func (v *Validator) fuzzyBest(norm string) (*entry, float64, []string) {
	type scored struct {
		e     *entry
		score float64
	}
	var candidates []scored
	for key, e := range v.byNorm {
		sim, err := edlib.StringsSimilarity(norm, key, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{e: e, score: float64(sim)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) == 0 {
		return nil, 0, nil
	}
	var alts []string
	for i := 1; i < len(candidates) && i <= 3; i++ {
		alts = append(alts, candidates[i].e.Canonical)
	}
	return candidates[0].e, candidates[0].score, alts
}

// SuggestOCRCorrection returns cache entries plausibly matching an
// OCR-garbled name: similarity above 0.8 and an estimated edit distance at
// or below maxEditDistance, best similarity first. The edit distance is
// estimated from Levenshtein similarity (itself derived from edit distance
// over the longer string's length), since go-edlib's only distance-scoring
// entry point used elsewhere in this codebase is StringsSimilarity.
func (v *Validator) SuggestOCRCorrection(name string, maxEditDistance int) []string {
	norm := normalize(name)
	v.mu.RLock()
	defer v.mu.RUnlock()

	type scored struct {
		canonical string
		score     float64
	}
	var candidates []scored
	for key, e := range v.byNorm {
		sim, err := edlib.StringsSimilarity(norm, key, edlib.Levenshtein)
		if err != nil {
			continue
		}
		score := float64(sim)
		if score <= 0.8 {
			continue
		}
		maxLen := len(norm)
		if len(key) > maxLen {
			maxLen = len(key)
		}
		estDistance := int((1 - score) * float64(maxLen))
		if estDistance > maxEditDistance {
			continue
		}
		candidates = append(candidates, scored{canonical: e.Canonical, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.canonical
	}
	return out
}
