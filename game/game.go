package game

import (
	"errors"
	"sort"
	"strconv"
)

// ErrInvalidMove is returned by moves and events to signal that the
// requested transition is illegal for the current state. The reducer reacts
// by leaving the state untouched.
var ErrInvalidMove = errors.New("game: invalid move")

// MoveFn applies one named move and returns the next G. Moves must be pure:
// return a fresh G rather than mutating the argument in place.
type MoveFn func(g any, ctx Ctx, playerID string, args []any) (any, error)

// EventFn applies one named flow event and returns the next ctx.
type EventFn func(ctx Ctx, g any, playerID string, args []any) (Ctx, error)

// Flow describes the turn and phase machinery a game plugs into the
// framework. The synchronization layer treats it as opaque apart from
// IsPlayerActive.
type Flow struct {
	// Events maps enabled event names to their handlers.
	Events map[string]EventFn

	// IsPlayerActive reports whether the given participant may act right
	// now. A nil predicate means every participant is always active.
	IsPlayerActive func(g any, ctx Ctx, playerID string) bool
}

// EventNames returns the enabled event names in a stable order.
func (f Flow) EventNames() []string {
	names := make([]string, 0, len(f.Events))
	for name := range f.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Game is the rule-engine contract consumed by the synchronization layer.
type Game struct {
	Name string

	// Setup builds the initial G for the given participant count.
	Setup func(numPlayers int) any

	// Moves maps move names to their handlers.
	Moves map[string]MoveFn

	Flow Flow

	// PlayerView projects G onto what the given participant is allowed to
	// see. A nil projection reveals everything.
	PlayerView func(g any, ctx Ctx, playerID string) any

	// EndIf inspects the state after every move or event and returns a
	// non-nil game-over value once the game has ended.
	EndIf func(g any, ctx Ctx) any

	// DecodeG rehydrates the game's concrete G from wire JSON. When nil,
	// state received over the network keeps its generic JSON form.
	DecodeG func(raw []byte) (any, error)
}

// MoveNames returns the registered move names in a stable order.
func (g Game) MoveNames() []string {
	names := make([]string, 0, len(g.Moves))
	for name := range g.Moves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlayerMetadata describes one participant as known by the authority.
type PlayerMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	IsConnected bool   `json:"isConnected"`
}

// MatchData is the authority-pushed out-of-band description of a match. It
// is owned by the transport and surfaced to subscribers via callback; it is
// never part of the reducer state.
type MatchData struct {
	GameID  string           `json:"gameID"`
	Players []PlayerMetadata `json:"players"`
}

// DefaultFlow returns a minimal turn-based flow: an endTurn event that
// passes the turn to the next participant in seat order and an endGame
// event that records a game-over value. The active-player predicate admits
// only ctx.CurrentPlayer.
func DefaultFlow() Flow {
	return Flow{
		Events: map[string]EventFn{
			"endTurn": endTurn,
			"endGame": endGame,
		},
		IsPlayerActive: func(_ any, ctx Ctx, playerID string) bool {
			return playerID != "" && playerID == ctx.CurrentPlayer
		},
	}
}

func endTurn(ctx Ctx, _ any, _ string, _ []any) (Ctx, error) {
	ctx.Turn++
	ctx.CurrentPlayer = NextPlayer(ctx.CurrentPlayer, ctx.NumPlayers)
	return ctx, nil
}

func endGame(ctx Ctx, _ any, _ string, args []any) (Ctx, error) {
	if len(args) > 0 && args[0] != nil {
		ctx.GameOver = args[0]
	} else {
		ctx.GameOver = true
	}
	return ctx, nil
}

// NextPlayer returns the participant id following the given one in seat
// order. Participants are addressed "0".."n-1"; unknown ids wrap to "0".
func NextPlayer(playerID string, numPlayers int) string {
	if numPlayers <= 0 {
		return "0"
	}
	seat, err := strconv.Atoi(playerID)
	if err != nil || seat < 0 || seat >= numPlayers {
		return "0"
	}
	return strconv.Itoa((seat + 1) % numPlayers)
}
