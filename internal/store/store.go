// Package store holds the client's synchronized state container: a reducer,
// the current state, the client-held log and an ordered interceptor
// pipeline applied around every dispatched action.
package store

import (
	"sync"

	"ninepins/game"
)

// Transaction captures one dispatch as it moves through the pipeline.
type Transaction struct {
	Action game.Action

	// Prior is the state the action is applied against. It is captured by
	// the transport interceptor's BeforeApply hook.
	Prior *game.State

	// Next is the reducer's output, set before the After hooks run.
	Next *game.State

	store *Store
}

// Log exposes the store's log to interceptors running under the store lock.
func (tx *Transaction) Log() []game.LogEntry {
	return tx.store.log
}

func (tx *Transaction) setLog(entries []game.LogEntry) {
	tx.store.log = entries
}

// Interceptor wraps every dispatched action. The pipeline is an explicit
// ordered list folded by Dispatch: BeforeApply hooks run in registration
// order, the reducer applies the action, then AfterApply and AfterCommit run
// in reverse order. BeforeApply and AfterApply execute under the store lock;
// AfterCommit executes after the lock is released, so an interceptor may
// re-enter Dispatch from there (the in-process authority's synchronous echo
// relies on this).
type Interceptor interface {
	BeforeApply(tx *Transaction)
	AfterApply(tx *Transaction)
	AfterCommit(tx *Transaction)
}

// Store is the single authority for state within one client instance.
type Store struct {
	mu           sync.Mutex
	reducer      game.Reducer
	state        *game.State
	log          []game.LogEntry
	interceptors []Interceptor
}

// New constructs a store around a reducer and an initial state. The initial
// state is nil for clients awaiting their first SYNC.
func New(reducer game.Reducer, initial *game.State, interceptors ...Interceptor) *Store {
	return &Store{
		reducer:      reducer,
		state:        initial,
		interceptors: interceptors,
	}
}

// Dispatch applies one action atomically: no two dispatches interleave their
// reducer application or log maintenance. Calls from a single goroutine are
// applied in call order.
func (s *Store) Dispatch(act game.Action) {
	s.mu.Lock()
	tx := &Transaction{Action: act, store: s}
	for _, ic := range s.interceptors {
		ic.BeforeApply(tx)
	}
	tx.Next = s.reducer(s.state, act)
	s.state = tx.Next
	for i := len(s.interceptors) - 1; i >= 0; i-- {
		s.interceptors[i].AfterApply(tx)
	}
	if tx.Next != nil {
		// The deltalog has been consumed by the log interceptor.
		tx.Next.Deltalog = nil
	}
	s.mu.Unlock()

	for i := len(s.interceptors) - 1; i >= 0; i-- {
		s.interceptors[i].AfterCommit(tx)
	}
}

// State returns the current internal state. Callers treat it as read-only.
func (s *Store) State() *game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Log returns a copy of the client-held log.
func (s *Store) Log() []game.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.log) == 0 {
		return nil
	}
	entries := make([]game.LogEntry, len(s.log))
	copy(entries, s.log)
	return entries
}
