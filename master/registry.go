package master

import (
	"sync"

	"go.uber.org/zap"

	"ninepins/game"
)

type registryKey struct {
	gameName string
	gameID   string
}

type registryEntry struct {
	master *Master
	refs   int
}

// Registry is the process-wide home of shared in-process masters, keyed by
// (game definition name, session id) with explicit reference counting: a
// master is created on first acquire, reused while any holder remains and
// disposed of when the last holder releases it.
type Registry struct {
	mu      sync.Mutex
	entries map[registryKey]*registryEntry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]*registryEntry)}
}

// DefaultRegistry backs clients that do not supply their own registry.
// Clients sharing it (and the same game name plus session id) share one
// authority instance.
var DefaultRegistry = NewRegistry()

// Acquire returns the shared master for the given game and session,
// creating it on first reference.
func (r *Registry) Acquire(g game.Game, gameID string, cfg Config) *Master {
	key := registryKey{gameName: g.Name, gameID: gameID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[key]; ok {
		entry.refs++
		return entry.master
	}
	m := New(g, gameID, cfg)
	r.entries[key] = &registryEntry{master: m, refs: 1}
	if cfg.Logger != nil {
		cfg.Logger.Debug("master created",
			zap.String("game", g.Name),
			zap.String("gameID", gameID))
	}
	return m
}

// Release drops one reference. The master is discarded once nobody holds it.
func (r *Registry) Release(g game.Game, gameID string) {
	key := registryKey{gameName: g.Name, gameID: gameID}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.entries, key)
	}
}

// Len reports the number of live masters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
