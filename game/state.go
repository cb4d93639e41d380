package game

// Ctx carries the turn and phase metadata the framework maintains alongside
// the game-specific state. The synchronization layer itself only inspects
// CurrentPlayer and GameOver; everything else is owned by the flow.
type Ctx struct {
	NumPlayers    int    `json:"numPlayers"`
	Turn          int    `json:"turn"`
	CurrentPlayer string `json:"currentPlayer"`
	Phase         string `json:"phase,omitempty"`
	GameOver      any    `json:"gameover,omitempty"`
}

// LogEntry records one applied action. StateID is assigned by whichever
// authority produced the entry and is strictly monotonic within a log.
type LogEntry struct {
	StateID int64  `json:"stateID"`
	Action  Action `json:"action"`
	Turn    int    `json:"turn"`
	Phase   string `json:"phase,omitempty"`
}

// Moment captures the G/ctx pair needed to restore a prior transition, used
// by the undo and redo stacks.
type Moment struct {
	G   any
	Ctx Ctx
}

// State is the framework-owned state container. Instances are only ever
// produced by the reducer; nothing outside the reducer mutates G or Ctx.
//
// StateID counts applied transitions and doubles as the id the next accepted
// log entry will carry. Deltalog holds the entries emitted by exactly one
// reducer application; it is consumed by the log interceptor and discarded.
type State struct {
	G       any   `json:"G"`
	Ctx     Ctx   `json:"ctx"`
	StateID int64 `json:"stateID"`

	Deltalog []LogEntry `json:"-"`

	undo []Moment
	redo []Moment
}

// Clone returns a shallow copy of the state. G is shared; the purity
// contract on moves guarantees nobody mutates a G in place.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	clone.undo = append([]Moment(nil), s.undo...)
	clone.redo = append([]Moment(nil), s.redo...)
	return &clone
}
