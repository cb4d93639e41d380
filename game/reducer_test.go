package game

import (
	"testing"
)

func testGame() Game {
	return Game{
		Name:  "counter",
		Setup: func(numPlayers int) any { return 0 },
		Moves: map[string]MoveFn{
			"add": func(g any, _ Ctx, _ string, args []any) (any, error) {
				delta := 1
				if len(args) > 0 {
					if v, ok := args[0].(int); ok {
						delta = v
					}
				}
				return g.(int) + delta, nil
			},
			"forbidden": func(g any, _ Ctx, _ string, _ []any) (any, error) {
				return nil, ErrInvalidMove
			},
		},
		Flow: DefaultFlow(),
		EndIf: func(g any, _ Ctx) any {
			if count, ok := g.(int); ok && count >= 5 {
				return "done"
			}
			return nil
		},
	}
}

func TestNewInitialState(t *testing.T) {
	state := NewInitialState(testGame(), 3)
	if state.StateID != 0 {
		t.Fatalf("expected stateID 0, got %d", state.StateID)
	}
	if state.Ctx.NumPlayers != 3 {
		t.Fatalf("expected 3 players, got %d", state.Ctx.NumPlayers)
	}
	if state.Ctx.CurrentPlayer != "0" {
		t.Fatalf("expected player 0 to open, got %q", state.Ctx.CurrentPlayer)
	}
	if state.G.(int) != 0 {
		t.Fatalf("expected setup G, got %v", state.G)
	}
}

func TestReducerMakeMove(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)

	next := reduce(state, NewMakeMove("add", []any{2}, "0", ""))
	if next == state {
		t.Fatalf("expected a new state after a legal move")
	}
	if next.G.(int) != 2 {
		t.Fatalf("expected G 2, got %v", next.G)
	}
	if next.StateID != 1 {
		t.Fatalf("expected stateID 1, got %d", next.StateID)
	}
	if len(next.Deltalog) != 1 {
		t.Fatalf("expected one deltalog entry, got %d", len(next.Deltalog))
	}
	if next.Deltalog[0].StateID != 0 {
		t.Fatalf("expected entry stateID 0, got %d", next.Deltalog[0].StateID)
	}
	if next.Deltalog[0].Action.Move.Name != "add" {
		t.Fatalf("expected entry to record the move, got %+v", next.Deltalog[0].Action)
	}
}

func TestReducerRejectsIllegalTransitions(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)

	cases := []struct {
		name string
		act  Action
	}{
		{"invalid move", NewMakeMove("forbidden", nil, "0", "")},
		{"unknown move", NewMakeMove("nope", nil, "0", "")},
		{"unknown event", NewGameEvent("nope", nil, "0", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if next := reduce(state, tc.act); next != state {
				t.Fatalf("expected state to be left untouched")
			}
		})
	}
}

func TestReducerBlocksMovesAfterGameOver(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)

	state = reduce(state, NewMakeMove("add", []any{5}, "0", ""))
	if state.Ctx.GameOver != "done" {
		t.Fatalf("expected EndIf to mark the game over, got %v", state.Ctx.GameOver)
	}
	if next := reduce(state, NewMakeMove("add", nil, "0", "")); next != state {
		t.Fatalf("expected moves after game over to be rejected")
	}
	if next := reduce(state, NewGameEvent("endTurn", nil, "0", "")); next != state {
		t.Fatalf("expected events after game over to be rejected")
	}
}

func TestReducerGameEvent(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)

	next := reduce(state, NewGameEvent("endTurn", nil, "0", ""))
	if next.Ctx.CurrentPlayer != "1" {
		t.Fatalf("expected turn to pass to player 1, got %q", next.Ctx.CurrentPlayer)
	}
	if next.Ctx.Turn != 1 {
		t.Fatalf("expected turn 1, got %d", next.Ctx.Turn)
	}
	if len(next.Deltalog) != 1 || next.Deltalog[0].StateID != 0 {
		t.Fatalf("expected the event to emit a deltalog entry, got %+v", next.Deltalog)
	}

	next = reduce(next, NewGameEvent("endTurn", nil, "1", ""))
	if next.Ctx.CurrentPlayer != "0" {
		t.Fatalf("expected turn order to wrap to player 0, got %q", next.Ctx.CurrentPlayer)
	}
}

func TestReducerUndoRedo(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)

	state = reduce(state, NewMakeMove("add", []any{1}, "0", ""))
	state = reduce(state, NewMakeMove("add", []any{1}, "0", ""))
	if state.G.(int) != 2 {
		t.Fatalf("expected G 2 before undo, got %v", state.G)
	}

	state = reduce(state, NewUndo())
	if state.G.(int) != 1 {
		t.Fatalf("expected undo to restore G 1, got %v", state.G)
	}

	state = reduce(state, NewRedo())
	if state.G.(int) != 2 {
		t.Fatalf("expected redo to restore G 2, got %v", state.G)
	}

	// A fresh move invalidates the redo stack.
	state = reduce(state, NewUndo())
	state = reduce(state, NewMakeMove("add", []any{3}, "0", ""))
	if next := reduce(state, NewRedo()); next != state {
		t.Fatalf("expected redo after a new move to be a no-op")
	}

	// Undo past the beginning is a no-op.
	empty := NewInitialState(g, 2)
	if next := reduce(empty, NewUndo()); next != empty {
		t.Fatalf("expected undo on a fresh state to be a no-op")
	}
}

func TestReducerReset(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := NewInitialState(g, 2)
	state = reduce(state, NewMakeMove("add", []any{2}, "0", ""))

	state = reduce(state, NewReset(nil))
	if state.G.(int) != 0 || state.StateID != 0 {
		t.Fatalf("expected reset to rebuild the initial state, got %+v", state)
	}

	explicit := &State{G: 9, Ctx: Ctx{NumPlayers: 2, CurrentPlayer: "1"}, StateID: 4}
	state = reduce(state, NewReset(explicit))
	if state.G.(int) != 9 || state.StateID != 4 {
		t.Fatalf("expected reset to adopt the explicit state, got %+v", state)
	}
	if state == explicit {
		t.Fatalf("expected reset to clone the explicit state")
	}
}

func TestReducerSync(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)

	pushed := &State{G: 3, Ctx: Ctx{NumPlayers: 2, CurrentPlayer: "1"}, StateID: 3}
	state := reduce(nil, NewSync(pushed, nil))
	if state == nil || state.G.(int) != 3 || state.StateID != 3 {
		t.Fatalf("expected sync to adopt the authority state, got %+v", state)
	}

	if state := reduce(state, NewSync(nil, nil)); state != nil {
		t.Fatalf("expected sync without a state to reset to the uninitialized sentinel")
	}
}

func TestReducerUpdate(t *testing.T) {
	g := testGame()
	reduce := NewReducer(g, 2)
	state := &State{G: 1, Ctx: Ctx{NumPlayers: 2}, StateID: 2}

	newer := &State{G: 2, Ctx: Ctx{NumPlayers: 2}, StateID: 3}
	next := reduce(state, NewUpdate(newer, nil))
	if next.StateID != 3 || next.G.(int) != 2 {
		t.Fatalf("expected update to adopt the newer state, got %+v", next)
	}

	if again := reduce(next, NewUpdate(newer, nil)); again != next {
		t.Fatalf("expected a re-delivered update to be ignored")
	}

	stale := &State{G: 0, Ctx: Ctx{NumPlayers: 2}, StateID: 1}
	if again := reduce(next, NewUpdate(stale, nil)); again != next {
		t.Fatalf("expected a stale update to be ignored")
	}

	if adopted := reduce(nil, NewUpdate(newer, nil)); adopted == nil || adopted.StateID != 3 {
		t.Fatalf("expected an update on an uninitialized state to be adopted")
	}
}

func TestNextPlayer(t *testing.T) {
	cases := []struct {
		playerID   string
		numPlayers int
		want       string
	}{
		{"0", 2, "1"},
		{"1", 2, "0"},
		{"2", 4, "3"},
		{"3", 4, "0"},
		{"", 2, "0"},
		{"bogus", 2, "0"},
		{"5", 2, "0"},
	}
	for _, tc := range cases {
		if got := NextPlayer(tc.playerID, tc.numPlayers); got != tc.want {
			t.Fatalf("NextPlayer(%q, %d) = %q, want %q", tc.playerID, tc.numPlayers, got, tc.want)
		}
	}
}
