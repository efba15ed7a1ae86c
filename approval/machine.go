package approval

// StateMachine is the pure approval-flow transition function. It holds no
// mutable state of its own — callers pass the current State in and get the
// next State back — so a scripted Input sequence replays deterministically
// without a TTY.
type StateMachine struct{}

// Next computes the next state and the actions the driver should perform,
// given the current state and a single user input.
func (StateMachine) Next(state State, in Input) (State, []Action, error) {
	if state.Terminal() {
		return state, nil, ErrNoSuchTransition
	}

	// 'q' quits from anywhere outside a terminal state: orderly abort,
	// document left in place (spec.md §4.11's cancellation rule). No action
	// is emitted, so the file is not moved out of the scan directory.
	if in.Kind == InputQuit {
		return StateSkipped, nil, nil
	}
	// 'r' restarts the flow from the top, from anywhere.
	if in.Kind == InputRestart && state != StateYearConfirm {
		return StateYearConfirm, []Action{{Kind: ActionRenderYearConfirm}}, nil
	}

	switch state {
	case StateYearConfirm:
		return stateYearConfirm(in)
	case StateDocType:
		return stateDocType(in)
	case StateMetadataDisplay:
		return stateMetadataDisplay(in)
	case StateAuthorSelection:
		return stateAuthorSelection(in)
	case StateZoteroSearch:
		return stateZoteroSearch(in)
	case StateItemReview:
		return stateItemReview(in)
	case StateEditMetadata:
		return stateEditMetadata(in)
	case StateCreateNew:
		return stateCreateNew(in)
	case StateOnlineCheck:
		return stateOnlineCheck(in)
	case StateOnlineEnrich:
		return stateOnlineEnrich(in)
	case StateFinalConfirm:
		return stateFinalConfirm(in)
	default:
		return state, nil, ErrNoSuchTransition
	}
}

func stateYearConfirm(in Input) (State, []Action, error) {
	// Enter accepts the displayed default (regex wins by default).
	if in.Kind == InputConfirm {
		return StateDocType, []Action{{Kind: ActionRenderDocType}}, nil
	}
	return StateYearConfirm, nil, ErrNoSuchTransition
}

func stateDocType(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputConfirm, InputDigit:
		return StateMetadataDisplay, []Action{{Kind: ActionRenderMetadata}}, nil
	default:
		return StateDocType, nil, ErrNoSuchTransition
	}
}

func stateMetadataDisplay(in Input) (State, []Action, error) {
	if in.Kind == InputConfirm {
		return StateAuthorSelection, []Action{{Kind: ActionRenderAuthorSelection}}, nil
	}
	return StateMetadataDisplay, nil, ErrNoSuchTransition
}

func stateAuthorSelection(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputConfirm, InputDigit, InputLetter:
		return StateZoteroSearch, []Action{{Kind: ActionRenderZoteroSearch}}, nil
	case InputBack:
		return StateMetadataDisplay, []Action{{Kind: ActionRenderMetadata}}, nil
	default:
		return StateAuthorSelection, nil, ErrNoSuchTransition
	}
}

func stateZoteroSearch(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputLetter:
		return StateItemReview, []Action{
			{Kind: ActionSelectCandidate, Data: in.Letter},
			{Kind: ActionRenderItemReview},
		}, nil
	case InputBack:
		return StateAuthorSelection, []Action{{Kind: ActionRenderAuthorSelection}}, nil
	case InputDigit:
		switch MenuAction(in.Digit) {
		case MenuSearchAgain:
			return StateZoteroSearch, []Action{{Kind: ActionReQuery}, {Kind: ActionRenderZoteroSearch}}, nil
		case MenuEditMetadata:
			return StateEditMetadata, []Action{{Kind: ActionRenderEditMetadata}}, nil
		case MenuCreateNew:
			return StateCreateNew, []Action{{Kind: ActionRenderCreateNew}}, nil
		case MenuSkip:
			return StateSkipped, []Action{{Kind: ActionAbortToSkipped}}, nil
		default:
			return StateZoteroSearch, nil, ErrNoSuchTransition
		}
	default:
		return StateZoteroSearch, nil, ErrNoSuchTransition
	}
}

func stateItemReview(in Input) (State, []Action, error) {
	if in.Kind == InputBack {
		return StateZoteroSearch, []Action{{Kind: ActionRenderZoteroSearch}}, nil
	}
	if in.Kind != InputDigit && !(in.Kind == InputConfirm) {
		return StateItemReview, nil, ErrNoSuchTransition
	}
	// Enter/'y' is the shorthand for "use existing, proceed" (spec.md
	// §4.12's item-review UX: "proceed (y/Enter)").
	menu := itemReviewMenu(in.Digit)
	if in.Kind == InputConfirm {
		menu = menuUseExisting
	}
	switch menu {
	case menuUseExtracted:
		return StateFinalConfirm, []Action{{Kind: ActionUseExtracted}, {Kind: ActionRenderFinalConfirm}}, nil
	case menuUseExisting:
		return StateFinalConfirm, []Action{{Kind: ActionUseExisting}, {Kind: ActionRenderFinalConfirm}}, nil
	case menuMergeFields:
		return StateFinalConfirm, []Action{{Kind: ActionMergeFields}, {Kind: ActionRenderFinalConfirm}}, nil
	case menuOnlineEnrich:
		return StateOnlineEnrich, []Action{{Kind: ActionRenderOnlineEnrich}}, nil
	case menuManualLater:
		return StateManual, []Action{{Kind: ActionAbortToManual}}, nil
	case menuCreateNewInstead:
		return StateCreateNew, []Action{{Kind: ActionRenderCreateNew}}, nil
	default:
		return StateItemReview, nil, ErrNoSuchTransition
	}
}

func stateEditMetadata(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputText:
		// The typed line is accepted and the flow stays in the editor for the
		// next field. No action is emitted, so the text is not applied to
		// the record.
		return StateEditMetadata, nil, nil
	case InputConfirm:
		return StateFinalConfirm, []Action{{Kind: ActionRenderFinalConfirm}}, nil
	case InputBack:
		return StateZoteroSearch, []Action{{Kind: ActionRenderZoteroSearch}}, nil
	default:
		return StateEditMetadata, nil, ErrNoSuchTransition
	}
}

func stateCreateNew(in Input) (State, []Action, error) {
	if in.Kind == InputConfirm {
		return StateOnlineCheck, []Action{{Kind: ActionRenderOnlineCheck}}, nil
	}
	return StateCreateNew, nil, ErrNoSuchTransition
}

func stateOnlineCheck(in Input) (State, []Action, error) {
	if in.Kind != InputDigit {
		return StateOnlineCheck, nil, ErrNoSuchTransition
	}
	switch createNewMenu(in.Digit) {
	case menuUseOnline:
		return StateFinalConfirm, []Action{{Kind: ActionUseExisting}, {Kind: ActionRenderFinalConfirm}}, nil
	case menuUseExtractedForNew:
		return StateFinalConfirm, []Action{{Kind: ActionUseExtracted}, {Kind: ActionRenderFinalConfirm}}, nil
	case menuCancel:
		return StateZoteroSearch, []Action{{Kind: ActionRenderZoteroSearch}}, nil
	default:
		return StateOnlineCheck, nil, ErrNoSuchTransition
	}
}

func stateOnlineEnrich(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputConfirm:
		return StateFinalConfirm, []Action{{Kind: ActionMergeFields}, {Kind: ActionRenderFinalConfirm}}, nil
	case InputBack:
		return StateItemReview, []Action{{Kind: ActionRenderItemReview}}, nil
	default:
		return StateOnlineEnrich, nil, ErrNoSuchTransition
	}
}

// stateFinalConfirm implements "[y] commits; [n] returns to previous
// decision; [z] re-opens item selection" exactly.
func stateFinalConfirm(in Input) (State, []Action, error) {
	switch in.Kind {
	case InputConfirm:
		return StateDone, []Action{{Kind: ActionCommit}}, nil
	case InputReject:
		target := in.ReturnTo
		if target == "" {
			target = StateItemReview
		}
		var action ActionKind
		switch target {
		case StateItemReview:
			action = ActionRenderItemReview
		case StateEditMetadata:
			action = ActionRenderEditMetadata
		case StateOnlineCheck:
			action = ActionRenderOnlineCheck
		case StateOnlineEnrich:
			action = ActionRenderOnlineEnrich
		default:
			action = ActionRenderZoteroSearch
		}
		return target, []Action{{Kind: action}}, nil
	case InputBack:
		return StateZoteroSearch, []Action{{Kind: ActionRenderZoteroSearch}}, nil
	default:
		return StateFinalConfirm, nil, ErrNoSuchTransition
	}
}
