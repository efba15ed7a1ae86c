package approval

import "testing"

// replay feeds a sequence of inputs through the machine starting at
// StateYearConfirm and returns the final state, failing the test immediately
// on any unexpected transition error.
func replay(t *testing.T, inputs ...Input) State {
	t.Helper()
	m := StateMachine{}
	state := StateYearConfirm
	for i, in := range inputs {
		next, _, err := m.Next(state, in)
		if err != nil {
			t.Fatalf("step %d: unexpected error from state %q with input %+v: %v", i, state, in, err)
		}
		state = next
	}
	return state
}

func TestScenario_CleanDOIMatchExistingItemCommits(t *testing.T) {
	final := replay(t,
		Input{Kind: InputConfirm},                 // year confirm
		Input{Kind: InputConfirm},                 // doc type
		Input{Kind: InputConfirm},                 // metadata display
		Input{Kind: InputConfirm},                 // author selection
		Input{Kind: InputLetter, Letter: 'a'},     // select zotero candidate A
		Input{Kind: InputConfirm},                 // item review: proceed (use existing)
		Input{Kind: InputConfirm},                 // final confirm: commit
	)
	if final != StateDone {
		t.Fatalf("final state = %q, want done", final)
	}
}

func TestScenario_SkipFromZoteroSearch(t *testing.T) {
	final := replay(t,
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputDigit, Digit: int(MenuSkip)},
	)
	if final != StateSkipped {
		t.Fatalf("final state = %q, want skipped", final)
	}
}

func TestScenario_ManualLaterFromItemReview(t *testing.T) {
	final := replay(t,
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputConfirm},
		Input{Kind: InputLetter, Letter: 'a'},
		Input{Kind: InputDigit, Digit: int(menuManualLater)},
	)
	if final != StateManual {
		t.Fatalf("final state = %q, want manual", final)
	}
}

func TestBack_FromItemReviewReturnsToZoteroSearch(t *testing.T) {
	m := StateMachine{}
	state := StateItemReview
	next, actions, err := m.Next(state, Input{Kind: InputBack})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StateZoteroSearch {
		t.Fatalf("got %q, want zotero_search", next)
	}
	if len(actions) != 1 || actions[0].Kind != ActionRenderZoteroSearch {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestRestart_FromAnyNonTerminalStateReturnsToYearConfirm(t *testing.T) {
	m := StateMachine{}
	for _, s := range []State{StateDocType, StateZoteroSearch, StateItemReview, StateOnlineCheck} {
		next, _, err := m.Next(s, Input{Kind: InputRestart})
		if err != nil {
			t.Fatalf("state %q: unexpected error: %v", s, err)
		}
		if next != StateYearConfirm {
			t.Fatalf("state %q: restart went to %q, want year_confirm", s, next)
		}
	}
}

func TestQuit_FromAnyNonTerminalStateSkipsWithoutCommit(t *testing.T) {
	m := StateMachine{}
	next, actions, err := m.Next(StateEditMetadata, Input{Kind: InputQuit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StateSkipped {
		t.Fatalf("got %q, want skipped", next)
	}
	for _, a := range actions {
		if a.Kind == ActionCommit {
			t.Fatal("quit must never emit a commit action")
		}
	}
}

func TestFinalConfirm_RejectReturnsToRecordedReturnState(t *testing.T) {
	m := StateMachine{}
	next, actions, err := m.Next(StateFinalConfirm, Input{Kind: InputReject, ReturnTo: StateEditMetadata})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StateEditMetadata {
		t.Fatalf("got %q, want edit_metadata", next)
	}
	if len(actions) != 1 || actions[0].Kind != ActionRenderEditMetadata {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestFinalConfirm_RejectDefaultsToItemReviewWhenReturnToUnset(t *testing.T) {
	m := StateMachine{}
	next, _, err := m.Next(StateFinalConfirm, Input{Kind: InputReject})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StateItemReview {
		t.Fatalf("got %q, want item_review", next)
	}
}

func TestFinalConfirm_ZReopensItemSelection(t *testing.T) {
	m := StateMachine{}
	next, _, err := m.Next(StateFinalConfirm, Input{Kind: InputBack})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StateZoteroSearch {
		t.Fatalf("got %q, want zotero_search", next)
	}
}

func TestTerminalStates_RejectAnyFurtherInput(t *testing.T) {
	m := StateMachine{}
	for _, s := range []State{StateDone, StateSkipped, StateFailed, StateManual} {
		if _, _, err := m.Next(s, Input{Kind: InputConfirm}); err != ErrNoSuchTransition {
			t.Errorf("state %q: expected ErrNoSuchTransition, got %v", s, err)
		}
	}
}

func TestOnlyYAtFinalConfirmCommits(t *testing.T) {
	m := StateMachine{}
	for _, in := range []Input{
		{Kind: InputReject},
		{Kind: InputBack},
		{Kind: InputDigit, Digit: 1},
	} {
		next, actions, err := m.Next(StateFinalConfirm, in)
		if err != nil {
			continue
		}
		if next == StateDone {
			t.Errorf("input %+v must not commit", in)
		}
		for _, a := range actions {
			if a.Kind == ActionCommit {
				t.Errorf("input %+v must not emit ActionCommit", in)
			}
		}
	}
}

func TestCreateNewFlow_OnlineCheckUseOnlineCommitsPath(t *testing.T) {
	m := StateMachine{}
	state := StateCreateNew
	state, _, err := m.Next(state, Input{Kind: InputConfirm})
	if err != nil || state != StateOnlineCheck {
		t.Fatalf("create_new -> online_check failed: state=%q err=%v", state, err)
	}
	state, actions, err := m.Next(state, Input{Kind: InputDigit, Digit: int(menuUseOnline)})
	if err != nil || state != StateFinalConfirm {
		t.Fatalf("online_check -> final_confirm failed: state=%q err=%v", state, err)
	}
	foundUseExisting := false
	for _, a := range actions {
		if a.Kind == ActionUseExisting {
			foundUseExisting = true
		}
	}
	if !foundUseExisting {
		t.Error("expected ActionUseExisting among online_check(use_online) actions")
	}
}
