// Package local connects a client to an in-process authority. Clients that
// share a registry and a game id talk to the same master, which makes it the
// transport for hotseat play, bots and tests.
package local

import (
	"sync"

	"go.uber.org/zap"

	"ninepins/game"
	"ninepins/master"
	"ninepins/transport"
)

// Transport binds one client to a master held in a shared registry. The
// master is acquired on Connect and released on Disconnect, so sessions are
// disposed once the last participant leaves.
type Transport struct {
	mu          sync.Mutex
	registry    *master.Registry
	game        game.Game
	gameID      string
	playerID    string
	credentials string
	numPlayers  int

	dispatch    func(game.Action)
	notify      func()
	onMatchData func(game.MatchData)
	logger      *zap.Logger

	master *master.Master
	unsub  func()
}

// Config selects the registry the transport acquires masters from. A nil
// Registry falls back to master.DefaultRegistry.
type Config struct {
	Registry *master.Registry
}

// NewConstructor returns a transport.Constructor bound to cfg's registry.
func NewConstructor(cfg Config) transport.Constructor {
	registry := cfg.Registry
	if registry == nil {
		registry = master.DefaultRegistry
	}
	return func(ctx transport.Context) transport.Transport {
		logger := ctx.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		return &Transport{
			registry:    registry,
			game:        ctx.Game,
			gameID:      ctx.GameID,
			playerID:    ctx.PlayerID,
			credentials: ctx.Credentials,
			numPlayers:  ctx.NumPlayers,
			dispatch:    ctx.Dispatch,
			notify:      ctx.Notify,
			onMatchData: ctx.OnMatchData,
			logger:      logger,
		}
	}
}

// Connect acquires the master for the bound session and subscribes to its
// pushes. The master replies with a SYNC immediately, so the client's state
// converges before Connect returns.
func (t *Transport) Connect() {
	t.mu.Lock()
	if t.master != nil {
		t.mu.Unlock()
		return
	}
	m := t.registry.Acquire(t.game, t.gameID, master.Config{
		NumPlayers: t.numPlayers,
		Logger:     t.logger,
	})
	t.master = m
	playerID := t.playerID
	t.mu.Unlock()

	unsub := m.Subscribe(playerID, t.push, t.pushMatchData)

	t.mu.Lock()
	t.unsub = unsub
	notify := t.notify
	t.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Disconnect drops the subscription and releases the master reference.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	unsub := t.unsub
	connected := t.master != nil
	t.master = nil
	t.unsub = nil
	notify := t.notify
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if connected {
		t.registry.Release(t.game, t.gameID)
	}
	if notify != nil {
		notify()
	}
}

// IsConnected reports whether a master is currently held.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.master != nil
}

// OnAction forwards a locally applied action to the master, stamped with the
// StateID the client applied it against. Without a prior state there is no
// basis to validate against, so the action is dropped.
func (t *Transport) OnAction(prior *game.State, act game.Action) {
	t.mu.Lock()
	m := t.master
	playerID := t.playerID
	credentials := t.credentials
	t.mu.Unlock()

	if m == nil || prior == nil {
		return
	}
	m.OnAction(playerID, credentials, prior.StateID, act, t.push)
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
// transport reconnects so the client picks up the new session's state.
func (t *Transport) UpdateGameID(id string) {
	t.rebind(func() { t.gameID = id })
}

// UpdatePlayerID rebinds the transport to another participant identity.
func (t *Transport) UpdatePlayerID(id string) {
	t.rebind(func() { t.playerID = id })
}

func (t *Transport) rebind(apply func()) {
	t.mu.Lock()
	connected := t.master != nil
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

func (t *Transport) push(act game.Action) {
	t.mu.Lock()
	dispatch := t.dispatch
	t.mu.Unlock()
	if dispatch != nil {
		dispatch(act)
	}
}

func (t *Transport) pushMatchData(md game.MatchData) {
	t.mu.Lock()
	sink := t.onMatchData
	t.mu.Unlock()
	if sink != nil {
		sink(md)
	}
}
