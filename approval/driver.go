package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ActionHandler executes the side effects the pure machine only describes:
// rendering a prompt, calling into the cascade/store/placement packages, or
// performing the final commit. Handle may return an input (hasNext true) to
// feed back into the machine immediately instead of a line read from the
// user; when it returns none, the driver reads the next line of real user
// input. Render actions, like pure side effects (ActionCommit,
// ActionReQuery, ...), return none.
type ActionHandler interface {
	Handle(ctx context.Context, action Action) (next Input, hasNext bool, err error)
}

// Driver runs the approval flow against a real (or scripted) line-oriented
// input stream. It contains no flow logic itself — every transition comes
// from StateMachine.Next — so it is deliberately small.
type Driver struct {
	Machine StateMachine
	Handler ActionHandler
	In      *bufio.Scanner
	Out     io.Writer
}

// NewDriver constructs a Driver reading from r and writing prompts to w.
func NewDriver(r io.Reader, w io.Writer, h ActionHandler) *Driver {
	return &Driver{Machine: StateMachine{}, Handler: h, In: bufio.NewScanner(r), Out: w}
}

// Run drives the machine from start to a terminal state, returning the
// terminal state reached (Done/Skipped/Failed/Manual).
func (d *Driver) Run(ctx context.Context, start State) (State, error) {
	state := start
	// Prime the loop by rendering the initial state.
	pending := []Action{renderActionFor(state)}

	// returnTo records the state the flow was in immediately before it last
	// transitioned into StateFinalConfirm, so a later 'n' ("back to previous
	// decision") can be routed there instead of always assuming ItemReview —
	// CreateNew's OnlineCheck path, for instance, never visits ItemReview.
	var returnTo State

	for !state.Terminal() {
		var in Input
		var err error

		for len(pending) > 0 {
			a := pending[0]
			pending = pending[1:]
			next, hasNext, herr := d.Handler.Handle(ctx, a)
			if herr != nil {
				return StateFailed, herr
			}
			if hasNext {
				in = next
			}
		}

		if in.Kind == "" {
			in, err = d.readInput()
			if err != nil {
				if err == io.EOF {
					return StateSkipped, nil
				}
				return StateFailed, err
			}
		}
		if state == StateFinalConfirm && in.Kind == InputReject {
			in.ReturnTo = returnTo
		}

		next, actions, err := d.Machine.Next(state, in)
		if err != nil {
			fmt.Fprintf(d.Out, "invalid input for this step, try again\n")
			continue
		}
		if next == StateFinalConfirm && state != StateFinalConfirm {
			returnTo = state
		}
		state = next
		pending = actions
	}

	// The transition into a terminal state still carries actions (e.g. the
	// ActionCommit that accompanies Done) that the loop above never got to
	// execute, since it stops as soon as state.Terminal() is true.
	for _, a := range pending {
		if _, _, err := d.Handler.Handle(ctx, a); err != nil {
			return StateFailed, err
		}
	}
	return state, nil
}

// readInput blocks for one line of stdin and classifies it per spec.md
// §4.12's input model: single-character selectors drive transitions;
// letters A-Z select Zotero candidates; digits select menu actions; 'z' =
// back, 'r' = restart, 'q' = quit; anything else is free text (valid only
// inside EDIT fields, where the machine accepts InputText).
func (d *Driver) readInput() (Input, error) {
	if !d.In.Scan() {
		if err := d.In.Err(); err != nil {
			return Input{}, err
		}
		return Input{}, io.EOF
	}
	line := strings.TrimSpace(d.In.Text())
	return parseLine(line), nil
}

func parseLine(line string) Input {
	if line == "" {
		return Input{Kind: InputConfirm}
	}
	if len(line) == 1 {
		r := unicode.ToLower(rune(line[0]))
		switch r {
		case 'y':
			return Input{Kind: InputConfirm}
		case 'n':
			return Input{Kind: InputReject}
		case 'z':
			return Input{Kind: InputBack}
		case 'r':
			return Input{Kind: InputRestart}
		case 'q':
			return Input{Kind: InputQuit}
		}
		if r >= '0' && r <= '9' {
			return Input{Kind: InputDigit, Digit: int(r - '0')}
		}
		if r >= 'a' && r <= 'z' {
			return Input{Kind: InputLetter, Letter: r}
		}
	}
	return Input{Kind: InputText, Text: line}
}

// renderActionFor maps a state to the render action that first draws it, so
// Run can prime the action queue without a prior transition.
func renderActionFor(s State) Action {
	switch s {
	case StateYearConfirm:
		return Action{Kind: ActionRenderYearConfirm}
	case StateDocType:
		return Action{Kind: ActionRenderDocType}
	case StateMetadataDisplay:
		return Action{Kind: ActionRenderMetadata}
	case StateAuthorSelection:
		return Action{Kind: ActionRenderAuthorSelection}
	case StateZoteroSearch:
		return Action{Kind: ActionRenderZoteroSearch}
	case StateItemReview:
		return Action{Kind: ActionRenderItemReview}
	case StateEditMetadata:
		return Action{Kind: ActionRenderEditMetadata}
	case StateCreateNew:
		return Action{Kind: ActionRenderCreateNew}
	case StateOnlineCheck:
		return Action{Kind: ActionRenderOnlineCheck}
	case StateOnlineEnrich:
		return Action{Kind: ActionRenderOnlineEnrich}
	case StateFinalConfirm:
		return Action{Kind: ActionRenderFinalConfirm}
	default:
		return Action{Kind: ActionRenderYearConfirm}
	}
}
