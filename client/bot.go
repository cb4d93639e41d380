package client

import (
	"context"
	"errors"
)

// Bot produces moves for the client's bound player. ChooseMove is called
// with the current snapshot whenever the player is active and may decline by
// returning ok=false.
type Bot interface {
	ChooseMove(view *Snapshot) (name string, args []any, ok bool)
}

// ErrNoBot reports RunBot on a client configured without an AI producer.
var ErrNoBot = errors.New("client: no bot configured")

// RunBot drives the configured bot until ctx is cancelled. The bot plays
// through the same dispatchers a human caller would use, so its moves are
// validated and reconciled exactly like any other input. At most one move is
// produced per observed state, which keeps a slow authority from being
// flooded with replays.
func (c *Client) RunBot(ctx context.Context) error {
	c.mu.Lock()
	bot := c.bot
	c.mu.Unlock()
	if bot == nil {
		return ErrNoBot
	}

	wake := make(chan struct{}, 1)
	unsub := c.Subscribe(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsub()

	moves := c.Moves()
	lastActed := int64(-1)

	for {
		c.step(bot, moves, &lastActed)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (c *Client) step(bot Bot, moves map[string]Dispatcher, lastActed *int64) {
	view := c.View()
	if view == nil || !view.IsActive {
		return
	}
	if view.StateID == *lastActed {
		return
	}
	name, args, ok := bot.ChooseMove(view)
	if !ok {
		return
	}
	dispatch, known := moves[name]
	if !known {
		c.logger.Warn("bot chose an unknown move")
		return
	}
	*lastActed = view.StateID
	dispatch(args...)
}
