package store

import (
	"ninepins/game"
	"ninepins/transport"
)

// NopInterceptor provides no-op hooks for interceptors that only care about
// part of the pipeline.
type NopInterceptor struct{}

func (NopInterceptor) BeforeApply(*Transaction) {}
func (NopInterceptor) AfterApply(*Transaction)  {}
func (NopInterceptor) AfterCommit(*Transaction) {}

// Subscription notifies the client's listener chain after every dispatch has
// fully committed. It is registered first so its AfterCommit runs last,
// once any synchronous authority echo has settled.
type Subscription struct {
	NopInterceptor
	Notify func()
}

func (s Subscription) AfterCommit(*Transaction) {
	if s.Notify != nil {
		s.Notify()
	}
}

// Relay captures the pre-action state and, unless the action is marked
// client-only, forwards the (prior state, action) pair to the transport once
// the dispatch has committed. Relaying outside the store lock lets the
// in-process authority dispatch its UPDATE echo straight back.
type Relay struct {
	NopInterceptor
	Transport transport.Transport
}

func (r Relay) BeforeApply(tx *Transaction) {
	tx.Prior = tx.store.state
}

func (r Relay) AfterCommit(tx *Transaction) {
	if tx.Action.ClientOnly || r.Transport == nil {
		return
	}
	r.Transport.OnAction(tx.Prior, tx.Action)
}

// LogReconciler maintains the client-held log as a side table keyed by
// action kind. The stateID filter on UPDATE is the sole dedup mechanism:
// entries the client already produced optimistically are discarded when the
// authority echoes them back, whatever the delivery order or repetition.
type LogReconciler struct {
	NopInterceptor
}

func (LogReconciler) AfterApply(tx *Transaction) {
	switch tx.Action.Type {
	case game.ActionMakeMove, game.ActionGameEvent:
		if tx.Next != nil && len(tx.Next.Deltalog) > 0 {
			tx.setLog(append(tx.Log(), tx.Next.Deltalog...))
		}

	case game.ActionReset:
		tx.setLog(nil)

	case game.ActionSync:
		if len(tx.Action.Log) == 0 {
			tx.setLog(nil)
			return
		}
		replaced := make([]game.LogEntry, len(tx.Action.Log))
		copy(replaced, tx.Action.Log)
		tx.setLog(replaced)

	case game.ActionUpdate:
		entries := tx.Log()
		last := int64(-1)
		if n := len(entries); n > 0 {
			last = entries[n-1].StateID
		}
		for _, entry := range tx.Action.Deltalog {
			if entry.StateID > last {
				entries = append(entries, entry)
				last = entry.StateID
			}
		}
		tx.setLog(entries)
	}
}

// Observer adapts a caller-supplied hook into the pipeline. It is the
// store-enhancer extension point: the hook sees every committed transition.
type Observer struct {
	NopInterceptor
	Fn func(act game.Action, prior, next *game.State)
}

func (o Observer) BeforeApply(tx *Transaction) {
	if tx.Prior == nil {
		tx.Prior = tx.store.state
	}
}

func (o Observer) AfterCommit(tx *Transaction) {
	if o.Fn != nil {
		o.Fn(tx.Action, tx.Prior, tx.Next)
	}
}
