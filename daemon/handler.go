package daemon

import (
	"context"
	"log/slog"

	"github.com/jmoore/scanbib/approval"
)

// handle interprets one approval.Action: render actions write a prompt to
// Session.out, the rest perform the real side effect the pure state machine
// only described. Render actions never supply a synthetic next Input (the
// driver falls through to reading a real line), except where noted.
func (s *Session) handle(ctx context.Context, action approval.Action) (approval.Input, bool, error) {
	switch action.Kind {
	case approval.ActionRenderYearConfirm:
		s.renderYearConfirm()
	case approval.ActionRenderDocType:
		s.renderDocType()
	case approval.ActionRenderMetadata:
		s.renderMetadata()
	case approval.ActionRenderAuthorSelection:
		s.renderAuthorSelection()
	case approval.ActionRenderZoteroSearch:
		s.doSearch(ctx)
		s.renderZoteroSearch(ctx)
	case approval.ActionRenderItemReview:
		s.renderItemReview(ctx)
	case approval.ActionRenderEditMetadata:
		s.renderEditMetadata()
	case approval.ActionRenderCreateNew:
		s.renderCreateNew()
	case approval.ActionRenderOnlineCheck:
		s.renderOnlineCheck(ctx)
	case approval.ActionRenderOnlineEnrich:
		s.renderOnlineEnrich()
	case approval.ActionRenderFinalConfirm:
		s.renderFinalConfirm()

	case approval.ActionReQuery:
		s.doSearch(ctx)
	case approval.ActionSelectCandidate:
		s.selectCandidate(action.Data)
	case approval.ActionUseExtracted:
		s.mode = modeCreateNew
	case approval.ActionUseExisting:
		if s.selectedItem != nil {
			s.mode = modeAttachExisting
		} else {
			s.mode = modeCreateNew
		}
	case approval.ActionMergeFields:
		s.mergeFields()

	case approval.ActionCommit:
		if err := s.commit(ctx); err != nil {
			slog.Error("daemon: commit failed", "path", s.sourcePath, "err", err)
			if moveErr := s.moveTo("failed"); moveErr != nil {
				return approval.Input{}, false, moveErr
			}
		}
	case approval.ActionAbortToSkipped:
		if err := s.moveTo("skipped"); err != nil {
			return approval.Input{}, false, err
		}
	case approval.ActionAbortToManual:
		if err := s.moveTo("manual"); err != nil {
			return approval.Input{}, false, err
		}
	case approval.ActionAbortToFailed:
		if err := s.moveTo("failed"); err != nil {
			return approval.Input{}, false, err
		}
	case approval.ActionSetFieldIfEmpty, approval.ActionCancelled:
		// Not currently emitted by StateMachine.Next; handled defensively.
	}
	return approval.Input{}, false, nil
}

func (s *Session) selectCandidate(data any) {
	letter, ok := data.(rune)
	if !ok {
		return
	}
	idx := int(letter - 'a')
	if idx < 0 || idx >= len(s.candidates) {
		return
	}
	item := s.candidates[idx]
	s.selectedItem = &item
}

// mergeFields fills any empty field on the extracted record from the
// selected existing item, never overwriting a value the cascade (or a user
// edit) already populated, per spec.md §9's merge-never-overwrite rule.
func (s *Session) mergeFields() {
	if s.selectedItem == nil {
		return
	}
	rec := s.record()
	item := s.selectedItem
	if rec.Bibliographic.Title == "" {
		rec.Bibliographic.Title = item.Title
	}
	if rec.Bibliographic.Year == nil {
		rec.Bibliographic.Year = item.Year
	}
	if len(rec.Bibliographic.Authors) == 0 {
		rec.Bibliographic.Authors = item.Creators
	}
	if rec.Bibliographic.Container == "" {
		rec.Bibliographic.Container = item.PublicationTitle
	}
	s.mode = modeAttachExisting
}
