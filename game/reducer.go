package game

// Reducer is the pure transition function: (state, action) -> state'. A
// reducer never mutates its input; rejected transitions return the input
// state unchanged.
type Reducer func(state *State, act Action) *State

// NewInitialState builds the state a fresh client or authority starts from.
func NewInitialState(g Game, numPlayers int) *State {
	if numPlayers <= 0 {
		numPlayers = 2
	}
	var initial any
	if g.Setup != nil {
		initial = g.Setup(numPlayers)
	}
	return &State{
		G: initial,
		Ctx: Ctx{
			NumPlayers:    numPlayers,
			Turn:          0,
			CurrentPlayer: "0",
		},
		StateID: 0,
	}
}

// NewReducer builds the reducer for a game definition. It covers the whole
// action vocabulary: optimistic local transitions (MAKE_MOVE, GAME_EVENT),
// local controls (RESET, UNDO, REDO) and authority pushes (SYNC, UPDATE).
func NewReducer(g Game, numPlayers int) Reducer {
	return func(state *State, act Action) *State {
		switch act.Type {
		case ActionMakeMove:
			return applyMove(g, state, act)

		case ActionGameEvent:
			return applyEvent(g, state, act)

		case ActionReset:
			if act.State != nil {
				return act.State.Clone()
			}
			return NewInitialState(g, numPlayers)

		case ActionUndo:
			if state == nil || len(state.undo) == 0 {
				return state
			}
			next := state.Clone()
			top := next.undo[len(next.undo)-1]
			next.undo = next.undo[:len(next.undo)-1]
			next.redo = append(next.redo, Moment{G: next.G, Ctx: next.Ctx})
			next.G = top.G
			next.Ctx = top.Ctx
			return next

		case ActionRedo:
			if state == nil || len(state.redo) == 0 {
				return state
			}
			next := state.Clone()
			top := next.redo[len(next.redo)-1]
			next.redo = next.redo[:len(next.redo)-1]
			next.undo = append(next.undo, Moment{G: next.G, Ctx: next.Ctx})
			next.G = top.G
			next.Ctx = top.Ctx
			return next

		case ActionSync:
			if act.State == nil {
				return nil
			}
			return act.State.Clone()

		case ActionUpdate:
			if act.State == nil {
				return state
			}
			// Authority re-deliveries are idempotent: only adopt a
			// push that moves the state forward.
			if state != nil && act.State.StateID <= state.StateID {
				return state
			}
			return act.State.Clone()

		default:
			return state
		}
	}
}

func applyMove(g Game, state *State, act Action) *State {
	if state == nil || act.Move == nil {
		return state
	}
	if state.Ctx.GameOver != nil {
		return state
	}
	fn, ok := g.Moves[act.Move.Name]
	if !ok {
		return state
	}
	nextG, err := fn(state.G, state.Ctx, act.Move.PlayerID, act.Move.Args)
	if err != nil {
		return state
	}
	return commit(g, state, act, nextG, state.Ctx)
}

func applyEvent(g Game, state *State, act Action) *State {
	if state == nil || act.Move == nil {
		return state
	}
	if state.Ctx.GameOver != nil {
		return state
	}
	fn, ok := g.Flow.Events[act.Move.Name]
	if !ok {
		return state
	}
	nextCtx, err := fn(state.Ctx, state.G, act.Move.PlayerID, act.Move.Args)
	if err != nil {
		return state
	}
	return commit(g, state, act, state.G, nextCtx)
}

// commit finalizes an accepted move or event: stamp the log entry against
// the pre-transition StateID, push the prior moment onto the undo stack and
// run the game's end condition.
func commit(g Game, state *State, act Action, nextG any, nextCtx Ctx) *State {
	if nextCtx.GameOver == nil && g.EndIf != nil {
		nextCtx.GameOver = g.EndIf(nextG, nextCtx)
	}
	entry := LogEntry{
		StateID: state.StateID,
		Action:  act,
		Turn:    state.Ctx.Turn,
		Phase:   state.Ctx.Phase,
	}
	return &State{
		G:        nextG,
		Ctx:      nextCtx,
		StateID:  state.StateID + 1,
		Deltalog: []LogEntry{entry},
		undo:     append(append([]Moment(nil), state.undo...), Moment{G: state.G, Ctx: state.Ctx}),
		redo:     nil,
	}
}
