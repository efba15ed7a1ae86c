// Package store implements the local bibliographic search layer (C7): a
// read-only view over the bibliographic store's SQLite database, with
// cached title/author indexes refreshed on a staleness timer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hbollon/go-edlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jmoore/scanbib"
)

// Item is a single matched row from the local store, carrying just the
// fields the approval flow and placement service need.
type Item struct {
	Key               string
	ItemType          string
	Title             string
	Year              *int
	Creators          []scanbib.Author
	PublicationTitle  string
	BookTitle         string
	ProceedingsTitle  string
	DOI               string
	Abstract          string
}

// Config configures the store connection and index refresh policy.
type Config struct {
	// Path is the on-disk path to the store's sqlite database.
	Path string
	// StaleAfter bounds how old the cached indexes may get before a
	// silent refresh is triggered; default 24h per spec.md §4.7.
	StaleAfter time.Duration
}

func DefaultConfig(path string) Config {
	return Config{Path: path, StaleAfter: 24 * time.Hour}
}

// Store is a read-only handle onto the bibliographic store database. All
// write paths belong to the separate storeapi package (C8); this package
// never issues a write statement.
type Store struct {
	cfg Config
	db  *sqlx.DB

	mu           sync.RWMutex
	lastRefresh  time.Time
	lastModTime  time.Time
	titleIndex   []titleEntry
	authorIndex  map[string][]Item // keyed by lowercased family name
}

type titleEntry struct {
	item Item
	key  string // lowercased, whitespace-collapsed title used for matching
}

// Open connects read-only to the store database (mode=ro&immutable=1, so no
// writer lock contention with the bibliographic API client's own
// connection) and performs an initial index build.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := cfg.Path
	if !strings.Contains(dsn, "?") {
		dsn += "?mode=ro&immutable=1"
	}
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	s := &Store{cfg: cfg, db: db, authorIndex: make(map[string][]Item)}
	if err := s.RefreshIfStale(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RefreshIfStale rebuilds the title/author indexes when the store's
// modification time is newer than the last rebuild, or the cache has aged
// past StaleAfter. This is the "silent refresh" spec.md §4.7 calls for: no
// UI interruption, just a rebuild on the next search if warranted.
func (s *Store) RefreshIfStale(ctx context.Context) error {
	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("store: stat: %w", err)
	}

	s.mu.RLock()
	stale := info.ModTime().After(s.lastModTime) || time.Since(s.lastRefresh) > s.cfg.StaleAfter
	s.mu.RUnlock()
	if !stale && !s.lastRefresh.IsZero() {
		return nil
	}
	return s.rebuildIndexes(ctx, info.ModTime())
}

func (s *Store) rebuildIndexes(ctx context.Context, modTime time.Time) error {
	items, err := s.loadAllItems(ctx)
	if err != nil {
		return err
	}

	titleIdx := make([]titleEntry, 0, len(items))
	authorIdx := make(map[string][]Item)
	for _, it := range items {
		titleIdx = append(titleIdx, titleEntry{item: it, key: normalizeTitle(it.Title)})
		for _, c := range it.Creators {
			fam := strings.ToLower(c.FamilyOrLiteral())
			if fam == "" {
				continue
			}
			authorIdx[fam] = append(authorIdx[fam], it)
		}
	}

	s.mu.Lock()
	s.titleIndex = titleIdx
	s.authorIndex = authorIdx
	s.lastRefresh = time.Now()
	s.lastModTime = modTime
	s.mu.Unlock()
	return nil
}

func (s *Store) loadAllItems(ctx context.Context) ([]Item, error) {
	var rows []struct {
		Key              string         `db:"key"`
		ItemType         string         `db:"item_type"`
		Title            string         `db:"title"`
		Date             sql.NullString `db:"date"`
		PublicationTitle sql.NullString `db:"publication_title"`
		BookTitle        sql.NullString `db:"book_title"`
		ProceedingsTitle sql.NullString `db:"proceedings_title"`
		AbstractNote     sql.NullString `db:"abstract_note"`
	}
	if err := s.db.SelectContext(ctx, &rows, `select key, item_type, title, date, publication_title, book_title, proceedings_title, abstract_note from items`); err != nil {
		return nil, fmt.Errorf("store: load items: %w", err)
	}

	dois, err := s.loadDOIs(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		it := Item{
			Key:              r.Key,
			ItemType:         r.ItemType,
			Title:            r.Title,
			PublicationTitle: r.PublicationTitle.String,
			BookTitle:        r.BookTitle.String,
			ProceedingsTitle: r.ProceedingsTitle.String,
			Abstract:         r.AbstractNote.String,
			DOI:              dois[r.Key],
		}
		if y, ok := parseYearPrefix(r.Date.String); ok {
			it.Year = &y
		}
		creators, err := s.loadCreators(ctx, r.Key)
		if err != nil {
			return nil, err
		}
		it.Creators = creators
		items = append(items, it)
	}
	return items, nil
}

// loadDOIs bulk-loads every item's DOI identifier into a key->value map, one
// query for the whole index rebuild rather than one per item.
func (s *Store) loadDOIs(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ItemKey string `db:"item_key"`
		Value   string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `select item_key, value from item_identifiers where kind = 'DOI'`); err != nil {
		return nil, fmt.Errorf("store: load dois: %w", err)
	}
	dois := make(map[string]string, len(rows))
	for _, r := range rows {
		dois[r.ItemKey] = r.Value
	}
	return dois, nil
}

func (s *Store) loadCreators(ctx context.Context, itemKey string) ([]scanbib.Author, error) {
	var rows []struct {
		Given   sql.NullString `db:"given"`
		Family  sql.NullString `db:"family"`
		Literal sql.NullString `db:"literal"`
	}
	if err := s.db.SelectContext(ctx, &rows, `select given, family, literal from creators where item_key = ? order by ordinal asc`, itemKey); err != nil {
		return nil, fmt.Errorf("store: load creators: %w", err)
	}
	authors := make([]scanbib.Author, 0, len(rows))
	for _, r := range rows {
		a, err := scanbib.NewAuthor(r.Given.String, r.Family.String, r.Literal.String)
		if err != nil {
			continue
		}
		authors = append(authors, a)
	}
	return authors, nil
}

// SearchByDOI finds items whose DOI field exactly matches a normalized DOI.
func (s *Store) SearchByDOI(ctx context.Context, doi string) ([]Item, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `select item_key from item_identifiers where kind = 'DOI' and value = ?`, doi); err != nil {
		return nil, fmt.Errorf("store: search by doi: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Item
	for _, te := range s.titleIndex {
		for _, k := range keys {
			if te.item.Key == k {
				matched = append(matched, te.item)
			}
		}
	}
	return matched, nil
}

// SearchByTitleFuzzy ranks items by Jaro-Winkler similarity to title,
// returning only those at or above threshold, highest similarity first.
func (s *Store) SearchByTitleFuzzy(title string, threshold float64) ([]Item, error) {
	needle := normalizeTitle(title)
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		item  Item
		score float64
	}
	var candidates []scored
	for _, te := range s.titleIndex {
		sim, err := edlib.StringsSimilarity(needle, te.key, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(sim) >= threshold {
			candidates = append(candidates, scored{item: te.item, score: float64(sim)})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	results := make([]Item, len(candidates))
	for i, c := range candidates {
		results[i] = c.item
	}
	return results, nil
}

// SearchByAuthorsOrdered ranks items by the count of matching family names
// in the exact order given, ties broken by proximity to year (when given).
func (s *Store) SearchByAuthorsOrdered(authors []scanbib.Author, year *int, limit int) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		item       Item
		matchCount int
		yearDelta  int
	}
	seen := make(map[string]*scored)
	var order []string
	for rank, a := range authors {
		fam := strings.ToLower(a.FamilyOrLiteral())
		if fam == "" {
			continue
		}
		for _, it := range s.authorIndex[fam] {
			e, ok := seen[it.Key]
			if !ok {
				e = &scored{item: it, yearDelta: yearDelta(it.Year, year)}
				seen[it.Key] = e
				order = append(order, it.Key)
			}
			// matching in the given order contributes more weight for
			// earlier-ranked authors, approximating "order matters".
			e.matchCount += len(authors) - rank
		}
	}

	results := make([]scored, 0, len(seen))
	for _, k := range order {
		results = append(results, *seen[k])
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].matchCount != results[j].matchCount {
			return results[i].matchCount > results[j].matchCount
		}
		return results[i].yearDelta < results[j].yearDelta
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	items := make([]Item, len(results))
	for i, r := range results {
		items[i] = r.item
	}
	return items
}

// GetTags returns the tag set attached to an item, sorted by tag.
func (s *Store) GetTags(ctx context.Context, itemKey string) ([]string, error) {
	var tags []string
	if err := s.db.SelectContext(ctx, &tags, `select tag from item_tags where item_key = ? order by tag`, itemKey); err != nil {
		return nil, fmt.Errorf("store: get tags: %w", err)
	}
	return tags, nil
}

// GetAttachmentKind returns the stored attachment's kind (e.g.
// "linked_file", "imported_file", "none").
func (s *Store) GetAttachmentKind(ctx context.Context, itemKey string) (string, error) {
	var kind string
	err := s.db.GetContext(ctx, &kind, `select attachment_kind from item_attachments where item_key = ? limit 1`, itemKey)
	if err == sql.ErrNoRows {
		return "none", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get attachment kind: %w", err)
	}
	return kind, nil
}

// GetContainerInfo derives a (label, value) pair from the item's type, per
// spec.md §4.7: journalArticle -> ("Journal", publicationTitle),
// bookSection -> ("Book", bookTitle), conferencePaper -> ("Conference",
// proceedingsTitle).
func (s *Store) GetContainerInfo(itemKey string) (label, value string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, te := range s.titleIndex {
		if te.item.Key != itemKey {
			continue
		}
		switch te.item.ItemType {
		case "journalArticle":
			return "Journal", te.item.PublicationTitle, nil
		case "bookSection":
			return "Book", te.item.BookTitle, nil
		case "conferencePaper":
			return "Conference", te.item.ProceedingsTitle, nil
		default:
			return "", "", nil
		}
	}
	return "", "", fmt.Errorf("store: item %q not found", itemKey)
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func yearDelta(a, b *int) int {
	if a == nil || b == nil {
		return 1 << 30
	}
	d := *a - *b
	if d < 0 {
		d = -d
	}
	return d
}

func parseYearPrefix(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	var y int
	if _, err := fmt.Sscanf(date[:4], "%d", &y); err != nil {
		return 0, false
	}
	if y < 1000 || y > 9999 {
		return 0, false
	}
	return y, true
}
