package client

import "ninepins/game"

// Snapshot is one client's read-only view of the game. G has the game's
// PlayerView redaction applied when one is defined.
type Snapshot struct {
	G       any
	Ctx     game.Ctx
	StateID int64

	// IsActive reports whether the viewing player may act right now.
	IsActive bool

	// IsConnected mirrors the transport's channel status.
	IsConnected bool

	Log []game.LogEntry
}

// View captures the current snapshot for the bound player.
func (c *Client) View() *Snapshot {
	c.mu.Lock()
	playerID := c.playerID
	c.mu.Unlock()

	state := c.store.State()
	if state == nil {
		return nil
	}

	g := state.G
	if c.game.PlayerView != nil {
		g = c.game.PlayerView(state.G, state.Ctx, playerID)
	}

	return &Snapshot{
		G:           g,
		Ctx:         state.Ctx,
		StateID:     state.StateID,
		IsActive:    c.isActive(state, playerID),
		IsConnected: c.transport.IsConnected(),
		Log:         c.store.Log(),
	}
}

// isActive gates move making. A finished game deactivates everyone; an
// unbound single-player client is the hotseat case where whoever holds the
// device acts. Multiplayer clients always answer to the predicate.
func (c *Client) isActive(state *game.State, playerID string) bool {
	if state.Ctx.GameOver != nil {
		return false
	}
	if playerID == "" && !c.multiplayer {
		return true
	}
	if active := c.game.Flow.IsPlayerActive; active != nil {
		return active(state.G, state.Ctx, playerID)
	}
	return true
}
