package daemon

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/store"
)

func (s *Session) renderYearConfirm() {
	rec := s.record()
	if rec.Bibliographic.Year == nil {
		s.fprintf("Year: unknown. Confirm? [Enter]\n")
		return
	}
	s.fprintf("Year: %d", *rec.Bibliographic.Year)
	for stage, year := range rec.YearConflicts {
		s.fprintf(" (%s: %d)", stage, year)
	}
	s.fprintf(" — confirm [Enter]\n")
}

func (s *Session) renderDocType() {
	s.fprintf("Document type: %s — confirm [Enter]\n", s.record().Bibliographic.DocumentType)
}

func (s *Session) renderMetadata() {
	rec := s.record()
	bib := rec.Bibliographic
	s.fprintf("Title: %s\n", bib.Title)
	for _, a := range bib.Authors {
		s.fprintf("  Author: %s\n", a.DisplayName())
	}
	s.fprintf("Container: %s\n", bib.Container)
	if len(rec.Warnings) > 0 {
		s.fprintf("Warnings: %d\n", len(rec.Warnings))
	}
	s.fprintf("Confirm [Enter]\n")
}

// renderAuthorSelection lists the extracted authors together with each
// author's library-hit count from the author validator, so an OCR-mangled
// name with zero hits stands out before it is ever committed.
func (s *Session) renderAuthorSelection() {
	for i, a := range s.record().Bibliographic.Authors {
		if s.svc.AuthorValidator == nil {
			s.fprintf("  [%d] %s\n", i+1, a.DisplayName())
			continue
		}
		result := s.svc.AuthorValidator.Validate(a.FamilyOrLiteral())
		switch {
		case result.Matched:
			s.fprintf("  [%d] %s (%d paper%s, %s match)\n", i+1, a.DisplayName(), result.PaperCount, plural(result.PaperCount), result.MatchType)
		default:
			if suggestions := s.svc.AuthorValidator.SuggestOCRCorrection(a.FamilyOrLiteral(), 2); len(suggestions) > 0 {
				s.fprintf("  [%d] %s (0 hits in library — did you mean %q?)\n", i+1, a.DisplayName(), suggestions[0])
			} else {
				s.fprintf("  [%d] %s (0 hits in library)\n", i+1, a.DisplayName())
			}
		}
	}
	s.fprintf("Confirm author list [Enter]\n")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// renderZoteroSearch lists every candidate with the detail spec.md §4.12's
// Zotero-search UX calls for: a container-label-aware second line, authors,
// year, whether a PDF is already attached, DOI, and a short abstract
// preview.
func (s *Session) renderZoteroSearch(ctx context.Context) {
	if len(s.candidates) == 0 {
		s.fprintf("No matching items found in the local store.\n")
	}
	for i, it := range s.candidates {
		letter := 'a' + rune(i)
		s.fprintf("  [%c] %s (%s)\n", letter, it.Title, it.ItemType)
		s.renderCandidateDetail(ctx, it)
	}
	s.fprintf("Select a letter, or [1] search again [2] edit metadata [3] create new [4] skip\n")
}

func (s *Session) renderCandidateDetail(ctx context.Context, it store.Item) {
	if s.svc.Store != nil {
		if label, value, err := s.svc.Store.GetContainerInfo(it.Key); err != nil {
			slog.Warn("daemon: get container info failed", "item", it.Key, "err", err)
		} else if label != "" && value != "" {
			s.fprintf("      %s: %s\n", label, value)
		}
	}
	if len(it.Creators) > 0 {
		names := make([]string, len(it.Creators))
		for i, a := range it.Creators {
			names[i] = a.DisplayName()
		}
		s.fprintf("      Authors: %s\n", strings.Join(names, "; "))
	}
	if it.Year != nil {
		s.fprintf("      Year: %d\n", *it.Year)
	}
	hasPDF := "no"
	if s.svc.Store != nil {
		if kind, err := s.svc.Store.GetAttachmentKind(ctx, it.Key); err != nil {
			slog.Warn("daemon: get attachment kind failed", "item", it.Key, "err", err)
		} else if kind != "" && kind != "none" {
			hasPDF = "yes (" + kind + ")"
		}
	}
	s.fprintf("      Has PDF: %s\n", hasPDF)
	if it.DOI != "" {
		s.fprintf("      DOI: %s\n", it.DOI)
	}
	if it.Abstract != "" {
		s.fprintf("      %s\n", abstractPreview(it.Abstract, 150))
	}
}

func (s *Session) renderItemReview(ctx context.Context) {
	item := s.selectedItem
	if item == nil {
		s.fprintf("[1] use extracted [2] use existing (Enter) [3] merge fields [4] enrich online [5] manual later [6] create new instead\n")
		return
	}
	s.fprintf("Reviewing: %s\n", item.Title)

	if s.svc.Store != nil {
		if tags, err := s.svc.Store.GetTags(ctx, item.Key); err != nil {
			slog.Warn("daemon: get tags failed", "item", item.Key, "err", err)
		} else if len(tags) > 0 {
			s.fprintf("Tags: %s\n", strings.Join(tags, ", "))
		}

		if label, value, err := s.svc.Store.GetContainerInfo(item.Key); err != nil {
			slog.Warn("daemon: get container info failed", "item", item.Key, "err", err)
		} else if label != "" && value != "" {
			s.fprintf("%s: %s\n", label, value)
		}
	}

	for _, a := range item.Creators {
		s.fprintf("  Author: %s\n", a.DisplayName())
	}
	if item.Year != nil {
		s.fprintf("Year: %d\n", *item.Year)
	}
	if item.DOI != "" {
		s.fprintf("DOI: %s\n", item.DOI)
	}
	if item.Abstract != "" {
		s.fprintf("Abstract: %s\n", abstractPreview(item.Abstract, 150))
	}

	if s.svc.Store != nil {
		if kind, err := s.svc.Store.GetAttachmentKind(ctx, item.Key); err != nil {
			slog.Warn("daemon: get attachment kind failed", "item", item.Key, "err", err)
		} else if kind != "" && kind != "none" {
			s.fprintf("Existing attachment: %s\n", kind)
		}
	}

	s.fprintf("[1] use extracted [2] use existing (Enter) [3] merge fields [4] enrich online [5] manual later [6] create new instead\n")
}

// abstractPreview collapses whitespace and caps an abstract to max runes,
// appending an ellipsis when truncated.
func abstractPreview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func (s *Session) renderEditMetadata() {
	s.fprintf("Edit metadata: type a field=value line, Enter when done, [z] back\n")
}

func (s *Session) renderCreateNew() {
	s.fprintf("Creating a new bibliographic item. Confirm [Enter]\n")
}

func (s *Session) renderOnlineCheck(ctx context.Context) {
	s.queryOnlineCandidate(ctx)
	s.fprintf("[1] use online match [2] use extracted for new item [3] cancel\n")
}

func (s *Session) renderOnlineEnrich() {
	s.fprintf("Enrich existing item with extracted fields? Confirm [Enter], [z] back\n")
}

func (s *Session) renderFinalConfirm() {
	s.fprintf("Commit this record? [y] yes [n] back [z] reopen item selection\n")
}

// queryOnlineCandidate re-checks the configured catalog clients for a known
// identifier before a create-new commit, per spec.md §4.3 — a last-chance
// catalog hit is folded into the record without overwriting any already-set
// field, mirroring mergeFields' never-overwrite rule.
func (s *Session) queryOnlineCandidate(ctx context.Context) {
	rec := s.record()
	for kind, client := range s.svc.Catalogs {
		id, ok := rec.Identifier(kind)
		if !ok || !id.Valid {
			continue
		}
		bib, err := client.GetByIdentifier(ctx, id.Value)
		if err != nil || bib == nil {
			continue
		}
		fillIfEmpty(&rec.Bibliographic, *bib)
		return
	}
}

func fillIfEmpty(dst *scanbib.Bibliographic, src scanbib.Bibliographic) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Container == "" {
		dst.Container = src.Container
	}
}
