// Package client is the engine's public surface. A Client owns one game's
// local state, applies moves optimistically and reconciles against an
// authority over a pluggable transport.
package client

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"ninepins/game"
	"ninepins/internal/store"
	"ninepins/master"
	"ninepins/transport"
	"ninepins/transport/local"
	"ninepins/transport/ws"
)

// Multiplayer selects how the client reaches its authority. Exactly one of
// the fields should be set; Local and Registry both select the in-process
// authority.
type Multiplayer struct {
	// Local connects to an in-process master via master.DefaultRegistry.
	Local bool

	// Registry connects to an in-process master via the given registry.
	Registry *master.Registry

	// Server is the websocket URL of a remote authority.
	Server string

	// Dial installs a custom transport.
	Dial transport.Constructor
}

// Observer receives every committed transition. It is the hook for devtools
// style tooling layered on top of a client.
type Observer func(act game.Action, prior, next *game.State)

// Config assembles a client.
type Config struct {
	Game       game.Game
	NumPlayers int

	// Multiplayer enables reconciliation against an authority. When nil the
	// client is authoritative for itself.
	Multiplayer *Multiplayer

	GameID      string
	PlayerID    string
	Credentials string

	Logger   *zap.Logger
	Debug    bool
	Observer Observer

	// AI supplies moves for RunBot.
	AI Bot
}

// Client drives one game. All methods are safe for concurrent use.
type Client struct {
	game        game.Game
	logger      *zap.Logger
	multiplayer bool

	mu          sync.Mutex
	gameID      string
	playerID    string
	credentials string
	notify      func()
	matchData   *game.MatchData
	bot         Bot

	store     *store.Store
	transport transport.Transport
}

// ErrMissingGame reports a config without a playable game definition.
var ErrMissingGame = errors.New("client: game definition required")

// New assembles a client from cfg. With no multiplayer configuration the
// initial state is computed locally; otherwise the client starts empty and
// converges on the authority's SYNC after Connect.
func New(cfg Config) (*Client, error) {
	if cfg.Game.Setup == nil && cfg.Multiplayer == nil {
		return nil, ErrMissingGame
	}

	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger, _ = zap.NewDevelopment()
		}
		if logger == nil {
			logger = zap.NewNop()
		}
	}

	c := &Client{
		game:        cfg.Game,
		logger:      logger,
		multiplayer: cfg.Multiplayer != nil,
		gameID:      cfg.GameID,
		playerID:    cfg.PlayerID,
		credentials: cfg.Credentials,
		bot:         cfg.AI,
	}

	c.transport = c.buildTransport(cfg)

	var initial *game.State
	if cfg.Multiplayer == nil {
		initial = game.NewInitialState(cfg.Game, cfg.NumPlayers)
	}

	interceptors := []store.Interceptor{
		store.Subscription{Notify: c.notifySubscribers},
	}
	if cfg.Observer != nil {
		interceptors = append(interceptors, store.Observer{Fn: cfg.Observer})
	}
	interceptors = append(interceptors,
		store.Relay{Transport: c.transport},
		store.LogReconciler{},
	)

	c.store = store.New(game.NewReducer(cfg.Game, cfg.NumPlayers), initial, interceptors...)

	c.transport.Subscribe(c.notifySubscribers)
	c.transport.SubscribeMatchData(c.setMatchData)

	return c, nil
}

// buildTransport selects the transport from the multiplayer configuration.
// A configuration that names no mode is rejected with an inert transport, so
// the client keeps working locally instead of panicking.
func (c *Client) buildTransport(cfg Config) transport.Transport {
	mp := cfg.Multiplayer
	if mp == nil {
		return transport.NewPassthrough()
	}

	var ctor transport.Constructor
	switch {
	case mp.Dial != nil:
		ctor = mp.Dial
	case mp.Server != "":
		ctor = ws.NewConstructor(ws.Config{URL: mp.Server})
	case mp.Local || mp.Registry != nil:
		ctor = local.NewConstructor(local.Config{Registry: mp.Registry})
	default:
		c.logger.Error("multiplayer config names no transport, disabling")
		return transport.NewDisabled()
	}

	return ctor(transport.Context{
		Game:        cfg.Game,
		GameID:      cfg.GameID,
		PlayerID:    cfg.PlayerID,
		Credentials: cfg.Credentials,
		NumPlayers:  cfg.NumPlayers,
		Dispatch:    func(act game.Action) { c.store.Dispatch(act) },
		Notify:      c.notifySubscribers,
		OnMatchData: c.setMatchData,
		Logger:      c.logger,
	})
}

// Connect establishes the transport channel. For local clients it is a
// cheap no-op beyond a subscriber notification.
func (c *Client) Connect() {
	c.transport.Connect()
}

// Stop tears the transport channel down.
func (c *Client) Stop() {
	c.transport.Disconnect()
}

// Reset restores the initial state and clears the held log.
func (c *Client) Reset() {
	c.store.Dispatch(game.NewReset(nil))
}

// Undo restores the state before the most recent transition.
func (c *Client) Undo() {
	c.store.Dispatch(game.NewUndo())
}

// Redo reapplies the most recently undone transition.
func (c *Client) Redo() {
	c.store.Dispatch(game.NewRedo())
}

// Subscribe registers fn to run after every committed transition and on
// connection changes. The returned handle removes the registration and
// restores whatever chain preceded it.
func (c *Client) Subscribe(fn func()) func() {
	c.mu.Lock()
	prev := c.notify
	chained := fn
	if prev != nil {
		chained = func() {
			prev()
			fn()
		}
	}
	c.notify = chained
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if c.notify != nil {
			c.notify = prev
		}
		c.mu.Unlock()
	}
}

// MatchData returns the latest participant roster pushed by the authority,
// or nil when none has arrived.
func (c *Client) MatchData() *game.MatchData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchData
}

// PlayerID returns the currently bound participant identity.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// GameID returns the currently bound session id.
func (c *Client) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

// UpdatePlayerID rebinds the client to another participant identity. Moves
// dispatched afterwards are attributed to the new identity.
func (c *Client) UpdatePlayerID(id string) {
	c.mu.Lock()
	c.playerID = id
	c.mu.Unlock()
	c.transport.UpdatePlayerID(id)
}

// UpdateGameID rebinds the client to another session.
func (c *Client) UpdateGameID(id string) {
	c.mu.Lock()
	c.gameID = id
	c.mu.Unlock()
	c.transport.UpdateGameID(id)
}

func (c *Client) notifySubscribers() {
	c.mu.Lock()
	notify := c.notify
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (c *Client) setMatchData(md game.MatchData) {
	c.mu.Lock()
	c.matchData = &md
	c.mu.Unlock()
	c.notifySubscribers()
}
