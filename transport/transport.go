// Package transport defines the contract between a client and the channel
// that reaches its authority: in-process, over a websocket, or custom.
package transport

import (
	"sync"

	"go.uber.org/zap"

	"ninepins/game"
)

// Transport routes locally applied actions out to the authority and feeds
// the authority's SYNC/UPDATE pushes back into the client's dispatch path.
// Implementations must tolerate calls from multiple goroutines.
type Transport interface {
	// Connect establishes or re-establishes the channel to the authority.
	Connect()

	// Disconnect tears the channel down. A disconnected transport simply
	// stops delivering; there is no automatic retry.
	Disconnect()

	// IsConnected reports the current channel status.
	IsConnected() bool

	// OnAction notifies the authority of a locally applied action together
	// with the state the action was applied against.
	OnAction(prior *game.State, act game.Action)

	// Subscribe registers the client's state-change notification sink.
	Subscribe(fn func())

	// SubscribeMatchData registers a sink for out-of-band match metadata.
	SubscribeMatchData(fn func(game.MatchData))

	// UpdateGameID rebinds the transport's target session without
	// reconstructing the client.
	UpdateGameID(id string)

	// UpdatePlayerID rebinds the transport's participant identity without
	// reconstructing the client.
	UpdatePlayerID(id string)
}

// Context carries everything a transport constructor needs to bind a client
// to an authority. Dispatch feeds authority pushes into the client's store;
// Notify wakes its subscribers after connection-status changes.
type Context struct {
	Game        game.Game
	GameID      string
	PlayerID    string
	Credentials string
	NumPlayers  int

	Dispatch    func(act game.Action)
	Notify      func()
	OnMatchData func(md game.MatchData)

	Logger *zap.Logger
}

// Constructor builds a caller-supplied transport from a binding context.
type Constructor func(ctx Context) Transport

// Passthrough is the no-op transport used when no multiplayer configuration
// is supplied: the client is authoritative for itself, so there is nobody to
// relay actions to. A disabled passthrough additionally reports itself as
// never connected; it is the fallback for malformed multiplayer configs.
type Passthrough struct {
	mu        sync.Mutex
	alive     bool
	connected bool
	notify    func()
}

// NewPassthrough returns the self-authoritative single-player transport.
func NewPassthrough() *Passthrough {
	return &Passthrough{alive: true, connected: true}
}

// NewDisabled returns an inert transport that never connects. It stands in
// when the multiplayer configuration was rejected.
func NewDisabled() *Passthrough {
	return &Passthrough{}
}

// Connect marks a live passthrough as connected.
func (p *Passthrough) Connect() {
	p.mu.Lock()
	p.connected = p.alive
	notify := p.notify
	p.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Disconnect marks the transport as disconnected.
func (p *Passthrough) Disconnect() {
	p.mu.Lock()
	p.connected = false
	notify := p.notify
	p.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// IsConnected reports whether the transport considers itself connected.
func (p *Passthrough) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// OnAction discards the action; there is no remote authority.
func (p *Passthrough) OnAction(*game.State, game.Action) {}

// Subscribe stores the notification sink.
func (p *Passthrough) Subscribe(fn func()) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

// SubscribeMatchData discards the sink; there is no match metadata.
func (p *Passthrough) SubscribeMatchData(func(game.MatchData)) {}

// UpdateGameID is a no-op; there is no session to rebind.
func (p *Passthrough) UpdateGameID(string) {}

// UpdatePlayerID is a no-op; there is no identity to rebind.
func (p *Passthrough) UpdatePlayerID(string) {}
