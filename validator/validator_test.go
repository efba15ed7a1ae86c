package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const testSchema = `
create table items (
	key text primary key,
	item_type text,
	title text,
	date text,
	publication_title text,
	book_title text,
	proceedings_title text
);
create table creators (
	item_key text,
	given text,
	family text,
	literal text,
	ordinal integer
);
`

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.sqlite")
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	seed := []string{
		`insert into items (key, item_type, title, publication_title) values ('A1', 'journalArticle', 'Paper One', 'Journal of Graphs')`,
		`insert into items (key, item_type, title, publication_title) values ('A2', 'journalArticle', 'Paper Two', 'Journal of Graphs')`,
		`insert into items (key, item_type, title, publication_title) values ('A3', 'journalArticle', 'Paper Three', 'Journal of Combinatorics')`,
		`insert into creators (item_key, family) values ('A1', 'Lovelace')`,
		`insert into creators (item_key, family) values ('A2', 'Lovelace')`,
		`insert into creators (item_key, family) values ('A3', 'Turing')`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func TestValidate_ExactMatch(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	res := v.Validate("Lovelace")
	if !res.Matched || res.MatchType != MatchExact || res.PaperCount != 2 {
		t.Fatalf("got %+v", res)
	}
}

func TestValidate_NormalizedMatchIgnoresCaseAndAbbreviationMarkers(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	res := v.Validate("lovelace")
	if !res.Matched || res.MatchType != MatchNormalized {
		t.Fatalf("got %+v", res)
	}
}

func TestValidate_FuzzyMatchForCloseMisspelling(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	res := v.Validate("Lovelase")
	if !res.Matched || res.MatchType != MatchFuzzy {
		t.Fatalf("got %+v", res)
	}
}

func TestValidate_UnknownNameIsNoMatch(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	res := v.Validate("Zzyzxqplot")
	if res.Matched || res.MatchType != MatchNone {
		t.Fatalf("got %+v", res)
	}
}

func TestExtractFromStore_JournalCountsAcrossItems(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindJournal, CachePath: filepath.Join(t.TempDir(), "journals.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	res := v.Validate("Journal of Graphs")
	if !res.Matched || res.PaperCount != 2 {
		t.Fatalf("got %+v", res)
	}
}

func TestNew_MissingCacheFileDegradesToEmptyIndex(t *testing.T) {
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "nonexistent.json")})
	res := v.Validate("Lovelace")
	if res.Matched {
		t.Errorf("expected no match against an empty index, got %+v", res)
	}
}

func TestNew_CorruptCacheFileDegradesToEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authors.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}
	v := New(Config{Kind: KindAuthor, CachePath: path})
	res := v.Validate("Lovelace")
	if res.Matched {
		t.Errorf("expected corrupt cache to degrade to empty index, got %+v", res)
	}
}

func TestRefreshIfNeeded_NoOpWithinMaxAge(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json"), MaxAge: time.Hour})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	firstBuilt := v.builtAt
	if err := v.RefreshIfNeeded(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if !v.builtAt.Equal(firstBuilt) {
		t.Error("expected no rebuild within MaxAge")
	}
}

func TestRebuild_PersistsCacheAtomicallyAndReloadsOnNewInstance(t *testing.T) {
	db := newTestDB(t)
	cachePath := filepath.Join(t.TempDir(), "authors.json")
	v1 := New(Config{Kind: KindAuthor, CachePath: cachePath})
	if err := v1.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	v2 := New(Config{Kind: KindAuthor, CachePath: cachePath})
	res := v2.Validate("Lovelace")
	if !res.Matched || res.PaperCount != 2 {
		t.Fatalf("expected reloaded cache to match, got %+v", res)
	}
}

func TestSuggestOCRCorrection_FindsCloseNameWithinEditDistance(t *testing.T) {
	db := newTestDB(t)
	v := New(Config{Kind: KindAuthor, CachePath: filepath.Join(t.TempDir(), "authors.json")})
	if err := v.rebuild(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	got := v.SuggestOCRCorrection("Lovelase", 2)
	found := false
	for _, c := range got {
		if c == "Lovelace" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Lovelace among suggestions, got %v", got)
	}
}
