// Package daemon wires the cascade, local store, store API, placement, and
// validator packages behind the approval state machine (C12), so a single
// document can be driven from "just arrived in the scan directory" through
// to a committed bibliographic-store write or a terminal abort directory.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/approval"
	"github.com/jmoore/scanbib/cascade"
	"github.com/jmoore/scanbib/catalog"
	"github.com/jmoore/scanbib/filename"
	"github.com/jmoore/scanbib/placement"
	"github.com/jmoore/scanbib/store"
	"github.com/jmoore/scanbib/storeapi"
	"github.com/jmoore/scanbib/validator"
)

// Services bundles every backing client a Session needs. One Services value
// is shared across every document processed by a daemon run.
type Services struct {
	Cascade          *cascade.Pipeline
	Store            *store.Store
	StoreAPI         *storeapi.Client
	Placement        *placement.Service
	Catalogs         map[scanbib.IdentifierKind]catalog.Client
	AuthorValidator  *validator.Validator
	JournalValidator *validator.Validator

	PublicationsDir string
	ScanDir         string
}

// Session is the mutable per-document state the Handler mutates as the
// approval flow progresses: the cascade result, the current Zotero-style
// candidate list, and which existing item (if any) the final commit targets.
type Session struct {
	svc *Services
	out io.Writer

	sourcePath string
	result     *scanbib.CascadeResult

	candidates   []store.Item
	selectedItem *store.Item // non-nil once a candidate has been picked
	mode         commitMode
}

type commitMode int

const (
	modeUndecided commitMode = iota
	modeAttachExisting
	modeCreateNew
)

// NewSession runs the cascade against sourcePath and returns a Session ready
// to be driven by an approval.Driver through a Handler wrapping it.
func NewSession(ctx context.Context, svc *Services, sourcePath, languageHint string, out io.Writer) *Session {
	result := svc.Cascade.Process(ctx, sourcePath, languageHint)
	return &Session{svc: svc, out: out, sourcePath: sourcePath, result: result}
}

// Handler adapts a Session to approval.ActionHandler.
type Handler struct {
	Session *Session
}

var _ approval.ActionHandler = (*Handler)(nil)

func (h *Handler) Handle(ctx context.Context, action approval.Action) (approval.Input, bool, error) {
	return h.Session.handle(ctx, action)
}

func (s *Session) record() *scanbib.PaperRecord { return s.result.Record }

func (s *Session) fprintf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// doSearch populates candidates from the local store, combining a DOI exact
// match (if present) with fuzzy title and ordered-author ranking, per
// spec.md §4.7/§4.12's Zotero-search step.
func (s *Session) doSearch(ctx context.Context) {
	rec := s.record()
	if s.svc.Store == nil {
		s.candidates = nil
		return
	}

	seen := make(map[string]struct{})
	var merged []store.Item
	add := func(items []store.Item) {
		for _, it := range items {
			if _, ok := seen[it.Key]; ok {
				continue
			}
			seen[it.Key] = struct{}{}
			merged = append(merged, it)
		}
	}

	if doi, ok := rec.Identifier(scanbib.IdentifierDOI); ok && doi.Valid {
		if byDOI, err := s.svc.Store.SearchByDOI(ctx, doi.Value); err == nil {
			add(byDOI)
		} else {
			slog.Warn("daemon: search by doi failed", "err", err)
		}
	}
	if rec.Bibliographic.Title != "" {
		if byTitle, err := s.svc.Store.SearchByTitleFuzzy(rec.Bibliographic.Title, 0.8); err == nil {
			add(byTitle)
		} else {
			slog.Warn("daemon: search by title failed", "err", err)
		}
	}
	add(s.svc.Store.SearchByAuthorsOrdered(rec.Bibliographic.Authors, rec.Bibliographic.Year, 10))

	if len(merged) > 26 {
		merged = merged[:26] // one letter selector per candidate, 'a'..'z'
	}
	s.candidates = merged
}

// moveTo relocates the source file into one of the scan directory's
// terminal-state subdirectories (done/failed/skipped/manual), creating it
// on demand.
func (s *Session) moveTo(subdir string) error {
	dir := filepath.Join(s.svc.ScanDir, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("daemon: create %s dir: %w", subdir, err)
	}
	dest := filepath.Join(dir, filepath.Base(s.sourcePath))
	if err := os.Rename(s.sourcePath, dest); err != nil {
		return fmt.Errorf("daemon: move to %s: %w", subdir, err)
	}
	return nil
}

// commit places the final bytes and writes the bibliographic store record,
// per spec.md §4.9/§4.8, then files the source under done/.
func (s *Session) commit(ctx context.Context) error {
	rec := s.record()
	proposedName, err := filename.Generate(rec.Bibliographic, filename.Options{Scanned: true})
	if err != nil {
		return fmt.Errorf("daemon: generate filename: %w", err)
	}

	decision := s.svc.Placement.Place(s.sourcePath, proposedName, s.svc.PublicationsDir)
	if decision.Err != nil {
		return fmt.Errorf("daemon: placement: %w", decision.Err)
	}

	var itemKey string
	switch s.mode {
	case modeAttachExisting:
		if s.selectedItem == nil {
			return fmt.Errorf("daemon: commit in attach mode with no selected item")
		}
		itemKey = s.selectedItem.Key
		// Abstract enrichment: only ever fills a blank field on the existing
		// item, never overwrites, per spec.md §9.
		if s.selectedItem.Abstract == "" && rec.Bibliographic.Abstract != "" {
			if _, res := s.svc.StoreAPI.SetFieldIfEmpty(ctx, itemKey, "abstractNote", rec.Bibliographic.Abstract); !res.Success {
				slog.Warn("daemon: abstract enrichment failed", "item", itemKey, "err", res.Error)
			}
		}
	default:
		key, res := s.svc.StoreAPI.CreateItem(ctx, rec.Bibliographic)
		if !res.Success {
			return fmt.Errorf("daemon: create item: %w", res.Error)
		}
		itemKey = key
	}

	if _, res := s.svc.StoreAPI.AttachLinkedFile(ctx, itemKey, decision.CrossBoundaryPath, filepath.Base(decision.TargetAbsolutePath)); !res.Success {
		return fmt.Errorf("daemon: attach linked file: %w", res.Error)
	}

	return s.moveTo("done")
}
