// Package ws connects a client to a remote authority over a websocket. The
// transport speaks the wire protocol served by the server package.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ninepins/game"
	"ninepins/internal/wire"
	"ninepins/transport"
)

const writeWait = 10 * time.Second

// Config locates the remote authority.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8000/ws.
	URL string

	// Dialer overrides websocket.DefaultDialer when set.
	Dialer *websocket.Dialer
}

// Transport is one client's connection to a server-hosted master.
type Transport struct {
	url    string
	dialer *websocket.Dialer

	mu          sync.Mutex
	game        game.Game
	gameID      string
	playerID    string
	credentials string
	numPlayers  int

	dispatch    func(game.Action)
	notify      func()
	onMatchData func(game.MatchData)
	logger      *zap.Logger

	conn *websocket.Conn
	done chan struct{}

	policy      *resyncPolicy
	lastStateID int64
}

// NewConstructor returns a transport.Constructor dialing cfg.URL.
func NewConstructor(cfg Config) transport.Constructor {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return func(ctx transport.Context) transport.Transport {
		logger := ctx.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		return &Transport{
			url:         cfg.URL,
			dialer:      dialer,
			game:        ctx.Game,
			gameID:      ctx.GameID,
			playerID:    ctx.PlayerID,
			credentials: ctx.Credentials,
			numPlayers:  ctx.NumPlayers,
			dispatch:    ctx.Dispatch,
			notify:      ctx.Notify,
			onMatchData: ctx.OnMatchData,
			logger:      logger,
			policy:      newResyncPolicy(),
		}
	}
}

// Connect dials the server, sends the session binding and starts the read
// loop. The server answers the binding with a SYNC, so the client converges
// shortly after Connect returns.
func (t *Transport) Connect() {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return
	}
	url := t.url
	bind := wire.ClientMessage{
		Ver:         wire.Version,
		Type:        wire.ClientTypeSync,
		GameName:    t.game.Name,
		GameID:      t.gameID,
		PlayerID:    t.playerID,
		Credentials: t.credentials,
		NumPlayers:  t.numPlayers,
	}
	t.mu.Unlock()

	conn, _, err := t.dialer.Dial(url, nil)
	if err != nil {
		t.logger.Warn("dial failed", zap.String("url", url), zap.Error(err))
		return
	}

	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.done = make(chan struct{})
	t.policy.reset()
	t.lastStateID = 0
	done := t.done
	notify := t.notify
	t.mu.Unlock()

	if err := t.writeMessage(bind); err != nil {
		t.logger.Warn("session binding failed", zap.Error(err))
		t.mu.Lock()
		t.conn = nil
		t.done = nil
		t.mu.Unlock()
		conn.Close()
		return
	}

	go t.readLoop(conn, done)

	if notify != nil {
		notify()
	}
}

// Disconnect closes the connection and waits for the read loop to exit.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	conn := t.conn
	done := t.done
	t.conn = nil
	t.done = nil
	t.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	if done != nil {
		<-done
	}
}

// IsConnected reports whether a live connection is held.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// OnAction sends a locally applied action to the server, stamped with the
// StateID it was applied against.
func (t *Transport) OnAction(prior *game.State, act game.Action) {
	if prior == nil {
		return
	}
	basis := prior.StateID
	msg := wire.ClientMessage{
		Ver:     wire.Version,
		Type:    wire.ClientTypeAction,
		StateID: &basis,
		Action:  &act,
	}
	if err := t.writeMessage(msg); err != nil {
		t.logger.Debug("relay failed", zap.Error(err))
	}
}

// Subscribe stores the client's state-change notification sink.
func (t *Transport) Subscribe(fn func()) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// SubscribeMatchData stores the client's match-metadata sink.
func (t *Transport) SubscribeMatchData(fn func(game.MatchData)) {
	t.mu.Lock()
	t.onMatchData = fn
	t.mu.Unlock()
}

// UpdateGameID rebinds the transport to another session. A connected
// transport reconnects under the new binding.
func (t *Transport) UpdateGameID(id string) {
	t.rebind(func() { t.gameID = id })
}

// UpdatePlayerID rebinds the transport to another participant identity.
func (t *Transport) UpdatePlayerID(id string) {
	t.rebind(func() { t.playerID = id })
}

func (t *Transport) rebind(apply func()) {
	t.mu.Lock()
	connected := t.conn != nil
	t.mu.Unlock()

	if connected {
		t.Disconnect()
	}
	t.mu.Lock()
	apply()
	t.mu.Unlock()
	if connected {
		t.Connect()
	}
}

func (t *Transport) writeMessage(msg wire.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return websocket.ErrCloseSent
	}
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.handleDrop(conn)
			return
		}
		var msg wire.ServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.logger.Debug("discarding malformed frame", zap.Error(err))
			continue
		}
		t.handleFrame(&msg)
	}
}

func (t *Transport) handleDrop(conn *websocket.Conn) {
	t.mu.Lock()
	dropped := t.conn == conn
	if dropped {
		t.conn = nil
		t.done = nil
	}
	notify := t.notify
	t.mu.Unlock()
	if dropped && notify != nil {
		notify()
	}
}

func (t *Transport) handleFrame(msg *wire.ServerMessage) {
	switch msg.Type {
	case wire.ServerTypeMatchData:
		t.mu.Lock()
		sink := t.onMatchData
		t.mu.Unlock()
		if sink != nil && msg.MatchData != nil {
			sink(*msg.MatchData)
		}
		return
	case wire.ServerTypeSync, wire.ServerTypeUpdate:
	default:
		t.logger.Debug("discarding unknown frame type", zap.String("type", msg.Type))
		return
	}

	t.mu.Lock()
	g := t.game
	dispatch := t.dispatch
	t.mu.Unlock()

	act, err := wire.ToClientAction(g, msg)
	if err != nil {
		t.logger.Warn("undecodable frame", zap.Error(err))
		return
	}

	switch act.Type {
	case game.ActionSync:
		t.mu.Lock()
		t.policy.reset()
		if act.State != nil {
			t.lastStateID = act.State.StateID
		}
		t.mu.Unlock()
	case game.ActionUpdate:
		if t.trackUpdate(act) {
			t.requestSync()
			return
		}
	}

	if dispatch != nil {
		dispatch(act)
	}
}

// trackUpdate records the frame with the resync policy and reports whether
// the held log can no longer be extended contiguously.
func (t *Transport) trackUpdate(act game.Action) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.policy.noteUpdate()
	if len(act.Deltalog) > 0 && act.Deltalog[0].StateID > t.lastStateID {
		t.policy.noteGap(t.lastStateID, act.Deltalog[0].StateID)
	}
	if act.State != nil && act.State.StateID > t.lastStateID {
		t.lastStateID = act.State.StateID
	}

	signal, ok := t.policy.consume()
	if ok {
		t.logger.Info("requesting resync", zap.String("signal", signal.summary()))
	}
	return ok
}

// requestSync asks the server for a wholesale state and log replacement.
func (t *Transport) requestSync() {
	msg := wire.ClientMessage{Ver: wire.Version, Type: wire.ClientTypeSync}
	if err := t.writeMessage(msg); err != nil {
		t.logger.Debug("sync request failed", zap.Error(err))
	}
}
