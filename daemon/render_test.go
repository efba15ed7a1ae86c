package daemon

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jmoore/scanbib/store"
)

// openTestStoreFor seeds a throwaway sqlite db with the same schema the
// store package itself tests against, then opens it read-only the way the
// daemon does in production.
func openTestStoreFor(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.sqlite")

	setup, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		t.Fatalf("setup connect: %v", err)
	}
	schema := `
	create table items (
		key text primary key,
		item_type text,
		title text,
		date text,
		publication_title text,
		book_title text,
		proceedings_title text,
		abstract_note text
	);
	create table creators (
		item_key text, given text, family text, literal text, ordinal integer
	);
	create table item_identifiers (item_key text, kind text, value text);
	create table item_tags (item_key text, tag text);
	create table item_attachments (item_key text, attachment_kind text);
	`
	if _, err := setup.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	seed := []string{
		`insert into items (key, item_type, title, date, publication_title, abstract_note) values ('A1', 'journalArticle', 'Deep Learning for Citation Graphs', '2020-01-01', 'Journal of Graphs', '` +
			strings.Repeat("Citation graph analysis at scale. ", 10) + `')`,
		`insert into creators (item_key, given, family, ordinal) values ('A1', 'Ada', 'Lovelace', 0)`,
		`insert into item_identifiers (item_key, kind, value) values ('A1', 'DOI', '10.1234/example')`,
		`insert into item_tags (item_key, tag) values ('A1', 'graphs')`,
		`insert into item_tags (item_key, tag) values ('A1', 'citation-analysis')`,
		`insert into item_attachments (item_key, attachment_kind) values ('A1', 'linked_file')`,
	}
	for _, stmt := range seed {
		if _, err := setup.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	setup.Close()

	s, err := store.Open(context.Background(), store.Config{Path: dbPath, StaleAfter: 0})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRenderItemReview_ShowsFullRecordTagsFirst(t *testing.T) {
	st := openTestStoreFor(t)
	items, err := st.SearchByDOI(context.Background(), "10.1234/example")
	if err != nil || len(items) != 1 {
		t.Fatalf("SearchByDOI: %v %+v", err, items)
	}

	var buf bytes.Buffer
	sess := &Session{
		svc:          &Services{Store: st},
		out:          &buf,
		selectedItem: &items[0],
	}
	sess.renderItemReview(context.Background())

	out := buf.String()
	tagsIdx := strings.Index(out, "Tags: citation-analysis, graphs")
	containerIdx := strings.Index(out, "Journal: Journal of Graphs")
	authorIdx := strings.Index(out, "Author: Lovelace, Ada")
	yearIdx := strings.Index(out, "Year: 2020")
	doiIdx := strings.Index(out, "DOI: 10.1234/example")
	abstractIdx := strings.Index(out, "Abstract:")
	attachIdx := strings.Index(out, "Existing attachment: linked_file")

	for name, idx := range map[string]int{
		"tags": tagsIdx, "container": containerIdx, "author": authorIdx,
		"year": yearIdx, "doi": doiIdx, "abstract": abstractIdx, "attachment": attachIdx,
	} {
		if idx < 0 {
			t.Fatalf("expected %s to be rendered, got:\n%s", name, out)
		}
	}
	if !(tagsIdx < containerIdx && containerIdx < authorIdx && authorIdx < yearIdx) {
		t.Errorf("expected tags, then container, then authors, then year in that order, got:\n%s", out)
	}
	if !strings.Contains(out, "…") {
		t.Errorf("expected a truncated abstract with an ellipsis, got:\n%s", out)
	}
}

func TestRenderZoteroSearch_ShowsPerCandidateDetail(t *testing.T) {
	st := openTestStoreFor(t)

	var buf bytes.Buffer
	sess := &Session{
		svc: &Services{Store: st},
		out: &buf,
	}
	items, err := st.SearchByDOI(context.Background(), "10.1234/example")
	if err != nil || len(items) != 1 {
		t.Fatalf("SearchByDOI: %v %+v", err, items)
	}
	sess.candidates = items
	sess.renderZoteroSearch(context.Background())

	out := buf.String()
	for _, want := range []string{
		"[a] Deep Learning for Citation Graphs (journalArticle)",
		"Journal: Journal of Graphs",
		"Authors: Lovelace, Ada",
		"Year: 2020",
		"Has PDF: yes (linked_file)",
		"DOI: 10.1234/example",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderZoteroSearch_NoCandidatesSaysSo(t *testing.T) {
	var buf bytes.Buffer
	sess := &Session{svc: &Services{}, out: &buf}
	sess.renderZoteroSearch(context.Background())
	if !strings.Contains(buf.String(), "No matching items found") {
		t.Errorf("expected no-candidates message, got:\n%s", buf.String())
	}
}
