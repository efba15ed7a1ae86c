// Package approval implements the interactive approval state machine
// (C12): the line-oriented terminal flow that gates every destructive
// operation (publications-dir write, bibliographic-store mutation, source
// move) behind explicit human confirmation.
//
// The machine itself is pure: Next(state, input) -> (state, actions, error)
// never touches a terminal, a file, or the network, so the entire flow is
// replay-testable by feeding it a scripted input sequence. A thin driver
// (driver.go) is the only piece that talks to a real TTY.
package approval

import "fmt"

// State is the closed set of approval-flow states from spec.md §4.12.
type State string

const (
	StateYearConfirm      State = "year_confirm"
	StateDocType          State = "doc_type"
	StateMetadataDisplay  State = "metadata_display"
	StateAuthorSelection  State = "author_selection"
	StateZoteroSearch     State = "zotero_search"
	StateItemReview       State = "item_review"
	StateEditMetadata     State = "edit_metadata"
	StateCreateNew        State = "create_new"
	StateOnlineCheck      State = "online_check"
	StateOnlineEnrich     State = "online_enrich"
	StateFinalConfirm     State = "final_confirm"

	// Terminal states.
	StateDone    State = "done"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
	StateManual  State = "manual"
)

// Terminal reports whether s is one of the flow's terminal states.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateSkipped, StateFailed, StateManual:
		return true
	default:
		return false
	}
}

// InputKind is the closed set of single-character selector classes from
// spec.md §4.12's input model.
type InputKind string

const (
	InputConfirm InputKind = "confirm" // Enter or 'y'
	InputReject  InputKind = "reject"  // 'n'
	InputBack    InputKind = "back"    // 'z'
	InputRestart InputKind = "restart" // 'r'
	InputQuit    InputKind = "quit"    // 'q'
	InputLetter  InputKind = "letter"  // A-Z, selects a Zotero candidate
	InputDigit   InputKind = "digit"   // menu action
	InputText    InputKind = "text"    // free-text, only inside EDIT fields
)

// Input is a single user action fed to the machine.
type Input struct {
	Kind   InputKind
	Letter rune   // valid when Kind == InputLetter
	Digit  int    // valid when Kind == InputDigit
	Text   string // valid when Kind == InputText

	// ReturnTo is set by the driver when 'n' ("back to previous decision")
	// is read in FinalConfirm, to the state the flow was in just before it
	// entered FinalConfirm; 'n' returns there. The machine is pure, so it
	// cannot remember this itself.
	ReturnTo State
}

// MenuAction enumerates the digit-menu choices offered from ZoteroSearch,
// in the fixed order the UI lists them (digit N selects index N-1).
type MenuAction int

const (
	MenuSearchAgain MenuAction = iota + 1
	MenuEditMetadata
	MenuCreateNew
	MenuSkip
)

// itemReviewMenu enumerates ItemReview's digit-menu choices, again in
// fixed listed order.
type itemReviewMenu int

const (
	menuUseExtracted itemReviewMenu = iota + 1
	menuUseExisting
	menuMergeFields
	menuOnlineEnrich
	menuManualLater
	menuCreateNewInstead
)

// createNewMenu enumerates OnlineCheck's digit-menu choices.
type createNewMenu int

const (
	menuUseOnline createNewMenu = iota + 1
	menuUseExtractedForNew
	menuCancel
)

// ActionKind is the closed set of side-effect descriptors the machine
// emits. The driver interprets each into a concrete terminal render or
// downstream call (cascade/store/placement); the machine itself performs
// none of them.
type ActionKind string

const (
	ActionRenderYearConfirm     ActionKind = "render_year_confirm"
	ActionRenderDocType         ActionKind = "render_doc_type"
	ActionRenderMetadata        ActionKind = "render_metadata_display"
	ActionRenderAuthorSelection ActionKind = "render_author_selection"
	ActionRenderZoteroSearch    ActionKind = "render_zotero_search"
	ActionRenderItemReview      ActionKind = "render_item_review"
	ActionRenderEditMetadata    ActionKind = "render_edit_metadata"
	ActionRenderCreateNew       ActionKind = "render_create_new"
	ActionRenderOnlineCheck     ActionKind = "render_online_check"
	ActionRenderOnlineEnrich    ActionKind = "render_online_enrich"
	ActionRenderFinalConfirm    ActionKind = "render_final_confirm"

	ActionReQuery          ActionKind = "requery_catalogs"
	ActionSelectCandidate  ActionKind = "select_candidate"
	ActionUseExtracted     ActionKind = "use_extracted"
	ActionUseExisting      ActionKind = "use_existing"
	ActionMergeFields      ActionKind = "merge_fields"
	ActionSetFieldIfEmpty  ActionKind = "set_field_if_empty" // abstract enrichment rule
	ActionCommit           ActionKind = "commit"             // place file + store write + move to done/
	ActionAbortToManual    ActionKind = "abort_to_manual"
	ActionAbortToSkipped   ActionKind = "abort_to_skipped"
	ActionAbortToFailed    ActionKind = "abort_to_failed"
	ActionCancelled        ActionKind = "cancelled" // SIGINT during a blocking call
)

// Action is one emitted side-effect descriptor, carrying whatever the
// driver needs to execute or render it.
type Action struct {
	Kind ActionKind
	Data any
}

// ErrNoSuchTransition is returned when an input has no legal transition
// from the given state, per the explicit graph in spec.md §4.12.
var ErrNoSuchTransition = fmt.Errorf("approval: no transition for this input in the current state")
