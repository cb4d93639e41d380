package game

// ActionType enumerates the dispatchable action kinds.
type ActionType string

const (
	ActionMakeMove  ActionType = "MAKE_MOVE"
	ActionGameEvent ActionType = "GAME_EVENT"
	ActionReset     ActionType = "RESET"
	ActionUndo      ActionType = "UNDO"
	ActionRedo      ActionType = "REDO"
	ActionSync      ActionType = "SYNC"
	ActionUpdate    ActionType = "UPDATE"
)

// Move carries the payload shared by MAKE_MOVE and GAME_EVENT actions.
type Move struct {
	Name        string `json:"name"`
	Args        []any  `json:"args,omitempty"`
	PlayerID    string `json:"playerID"`
	Credentials string `json:"credentials,omitempty"`
}

// Action is the tagged variant dispatched through the store and, for moves
// and events, relayed across the transport boundary.
//
// ClientOnly actions are applied locally and never forwarded to the
// authority. SYNC and UPDATE originate from the authority, so relaying them
// back would loop; RESET, UNDO and REDO are local controls.
type Action struct {
	Type ActionType `json:"type"`

	// Move is set for MAKE_MOVE and GAME_EVENT.
	Move *Move `json:"move,omitempty"`

	// State is set for SYNC and UPDATE (the authority's view) and
	// optionally for RESET (an explicit state to reset to).
	State *State `json:"state,omitempty"`

	// Log is the authority's full log, set for SYNC.
	Log []LogEntry `json:"log,omitempty"`

	// Deltalog is the authority's incremental entries, set for UPDATE.
	Deltalog []LogEntry `json:"deltalog,omitempty"`

	ClientOnly bool `json:"-"`
}

// NewMakeMove builds the action dispatched when a named move is invoked.
func NewMakeMove(name string, args []any, playerID, credentials string) Action {
	return Action{
		Type: ActionMakeMove,
		Move: &Move{Name: name, Args: args, PlayerID: playerID, Credentials: credentials},
	}
}

// NewGameEvent builds the action dispatched when a flow event is invoked.
func NewGameEvent(name string, args []any, playerID, credentials string) Action {
	return Action{
		Type: ActionGameEvent,
		Move: &Move{Name: name, Args: args, PlayerID: playerID, Credentials: credentials},
	}
}

// NewReset builds the client-only action that restores the initial state.
// A nil state asks the reducer to rebuild it from the game's setup.
func NewReset(state *State) Action {
	return Action{Type: ActionReset, State: state, ClientOnly: true}
}

// NewUndo builds the client-only action restoring the previous transition.
func NewUndo() Action {
	return Action{Type: ActionUndo, ClientOnly: true}
}

// NewRedo builds the client-only action reapplying an undone transition.
func NewRedo() Action {
	return Action{Type: ActionRedo, ClientOnly: true}
}

// NewSync builds the authority push that replaces state and log wholesale.
func NewSync(state *State, log []LogEntry) Action {
	return Action{Type: ActionSync, State: state, Log: log, ClientOnly: true}
}

// NewUpdate builds the authority push carrying incremental log entries.
func NewUpdate(state *State, deltalog []LogEntry) Action {
	return Action{Type: ActionUpdate, State: state, Deltalog: deltalog, ClientOnly: true}
}
