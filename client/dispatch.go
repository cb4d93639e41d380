package client

import "ninepins/game"

// Dispatcher invokes one named move or flow event.
type Dispatcher func(args ...any)

// Moves returns a dispatcher per move the game defines. Dispatchers resolve
// the acting player when invoked, so a dispatcher obtained before
// UpdatePlayerID attributes later calls to the new identity.
func (c *Client) Moves() map[string]Dispatcher {
	out := make(map[string]Dispatcher, len(c.game.Moves))
	for _, name := range c.game.MoveNames() {
		name := name
		out[name] = func(args ...any) {
			c.dispatchNamed(game.ActionMakeMove, name, args)
		}
	}
	return out
}

// Events returns a dispatcher per flow event the game defines.
func (c *Client) Events() map[string]Dispatcher {
	out := make(map[string]Dispatcher, len(c.game.Flow.Events))
	for _, name := range c.game.Flow.EventNames() {
		name := name
		out[name] = func(args ...any) {
			c.dispatchNamed(game.ActionGameEvent, name, args)
		}
	}
	return out
}

func (c *Client) dispatchNamed(kind game.ActionType, name string, args []any) {
	c.mu.Lock()
	playerID := c.playerID
	credentials := c.credentials
	c.mu.Unlock()

	if playerID == "" && !c.multiplayer {
		playerID = c.currentPlayer()
	}

	var act game.Action
	switch kind {
	case game.ActionMakeMove:
		act = game.NewMakeMove(name, args, playerID, credentials)
	default:
		act = game.NewGameEvent(name, args, playerID, credentials)
	}
	c.store.Dispatch(act)
}

// currentPlayer is the fallback identity for unbound hotseat clients: the
// player whose turn it is acts.
func (c *Client) currentPlayer() string {
	if state := c.store.State(); state != nil {
		return state.Ctx.CurrentPlayer
	}
	return ""
}
