// Package wire defines the JSON messages exchanged between a websocket
// client and the server-hosted authority.
package wire

import (
	"encoding/json"
	"fmt"

	"ninepins/game"
)

// Version tags every message. The server rejects frames from clients built
// against a different protocol revision.
const Version = 1

// Client-to-server message types.
const (
	ClientTypeSync   = "sync"
	ClientTypeAction = "action"
)

// Server-to-client message types.
const (
	ServerTypeSync      = "sync"
	ServerTypeUpdate    = "update"
	ServerTypeMatchData = "matchData"
)

// ClientMessage is one frame sent by a client. The first frame of a
// connection must carry the session binding (game name, game id, player id);
// later frames may omit it.
type ClientMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`

	GameName    string `json:"game,omitempty"`
	GameID      string `json:"gameID,omitempty"`
	PlayerID    string `json:"playerID,omitempty"`
	Credentials string `json:"credentials,omitempty"`
	NumPlayers  int    `json:"numPlayers,omitempty"`

	// StateID is the basis the action was applied against. It is a pointer
	// so that basis zero survives the round trip.
	StateID *int64       `json:"stateID,omitempty"`
	Action  *game.Action `json:"action,omitempty"`
}

// ServerMessage is one frame pushed by the server.
type ServerMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`

	State     *StatePayload   `json:"state,omitempty"`
	Log       []game.LogEntry `json:"log,omitempty"`
	Deltalog  []game.LogEntry `json:"deltalog,omitempty"`
	MatchData *game.MatchData `json:"matchData,omitempty"`
}

// StatePayload carries a game state across the wire. G stays raw until the
// receiver decodes it, so games with concrete state types can install a
// DecodeG hook instead of receiving generic maps.
type StatePayload struct {
	G       json.RawMessage `json:"G"`
	Ctx     game.Ctx        `json:"ctx"`
	StateID int64           `json:"stateID"`
}

// EncodeState converts a state into its wire form.
func EncodeState(state *game.State) (*StatePayload, error) {
	if state == nil {
		return nil, nil
	}
	raw, err := json.Marshal(state.G)
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	return &StatePayload{G: raw, Ctx: state.Ctx, StateID: state.StateID}, nil
}

// Decode converts the wire form back into a state, using the game's DecodeG
// hook when one is installed.
func (p *StatePayload) Decode(g game.Game) (*game.State, error) {
	if p == nil {
		return nil, nil
	}
	var value any
	if g.DecodeG != nil {
		decoded, err := g.DecodeG(p.G)
		if err != nil {
			return nil, fmt.Errorf("decode game state: %w", err)
		}
		value = decoded
	} else if len(p.G) > 0 {
		if err := json.Unmarshal(p.G, &value); err != nil {
			return nil, fmt.Errorf("decode game state: %w", err)
		}
	}
	return &game.State{G: value, Ctx: p.Ctx, StateID: p.StateID}, nil
}

// NewSyncMessage builds the server frame replacing a client's state and log.
func NewSyncMessage(state *game.State, log []game.LogEntry) (*ServerMessage, error) {
	payload, err := EncodeState(state)
	if err != nil {
		return nil, err
	}
	return &ServerMessage{Ver: Version, Type: ServerTypeSync, State: payload, Log: log}, nil
}

// NewUpdateMessage builds the server frame carrying an incremental change.
func NewUpdateMessage(state *game.State, deltalog []game.LogEntry) (*ServerMessage, error) {
	payload, err := EncodeState(state)
	if err != nil {
		return nil, err
	}
	return &ServerMessage{Ver: Version, Type: ServerTypeUpdate, State: payload, Deltalog: deltalog}, nil
}

// NewMatchDataMessage builds the server frame carrying match metadata.
func NewMatchDataMessage(md game.MatchData) *ServerMessage {
	return &ServerMessage{Ver: Version, Type: ServerTypeMatchData, MatchData: &md}
}

// FromMasterAction converts an authority push into its wire frame. Only SYNC
// and UPDATE cross the wire; anything else is a programming error upstream.
func FromMasterAction(act game.Action) (*ServerMessage, error) {
	switch act.Type {
	case game.ActionSync:
		return NewSyncMessage(act.State, act.Log)
	case game.ActionUpdate:
		return NewUpdateMessage(act.State, act.Deltalog)
	default:
		return nil, fmt.Errorf("action type %q does not cross the wire", act.Type)
	}
}

// ToClientAction converts a server frame into the action a client store
// dispatches. The game parameter supplies the DecodeG hook.
func ToClientAction(g game.Game, msg *ServerMessage) (game.Action, error) {
	switch msg.Type {
	case ServerTypeSync:
		state, err := msg.State.Decode(g)
		if err != nil {
			return game.Action{}, err
		}
		return game.NewSync(state, msg.Log), nil
	case ServerTypeUpdate:
		state, err := msg.State.Decode(g)
		if err != nil {
			return game.Action{}, err
		}
		return game.NewUpdate(state, msg.Deltalog), nil
	default:
		return game.Action{}, fmt.Errorf("frame type %q is not an action", msg.Type)
	}
}
