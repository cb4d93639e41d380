// Package master implements the authoritative side of a match: the single
// owner of the canonical state and log for one session, fanning confirmed
// results out to every subscribed client.
package master

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ninepins/game"
)

// Config tunes a master instance.
type Config struct {
	// NumPlayers seeds the initial state. Defaults to 2.
	NumPlayers int

	Logger *zap.Logger
}

type subscriber struct {
	playerID string
	push     func(game.Action)
	pushMeta func(game.MatchData)
}

// Master owns exactly one session: the authoritative state, the
// authoritative log and the subscriber fan-out. All actions it receives are
// serialized under one mutex; the reducer is never applied concurrently.
type Master struct {
	mu          sync.Mutex
	game        game.Game
	gameID      string
	numPlayers  int
	reducer     game.Reducer
	state       *game.State
	log         []game.LogEntry
	subscribers map[string]*subscriber
	credentials map[string]string
	logger      *zap.Logger
}

// New constructs a master for one session of the given game.
func New(g game.Game, gameID string, cfg Config) *Master {
	numPlayers := cfg.NumPlayers
	if numPlayers <= 0 {
		numPlayers = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Master{
		game:        g,
		gameID:      gameID,
		numPlayers:  numPlayers,
		reducer:     game.NewReducer(g, numPlayers),
		subscribers: make(map[string]*subscriber),
		credentials: make(map[string]string),
		logger:      logger,
	}
}

// GameID returns the session identifier this master is authoritative for.
func (m *Master) GameID() string {
	return m.gameID
}

// Subscribe registers a client's push sinks. The new subscriber immediately
// receives a full SYNC, and every subscriber receives refreshed match
// metadata. The returned handle removes exactly this registration.
func (m *Master) Subscribe(playerID string, push func(game.Action), pushMeta func(game.MatchData)) func() {
	id := uuid.NewString()

	m.mu.Lock()
	m.ensureStateLocked()
	m.subscribers[id] = &subscriber{playerID: playerID, push: push, pushMeta: pushMeta}
	sync := game.NewSync(m.state, m.snapshotLogLocked())
	md := m.matchDataLocked()
	targets := m.metadataTargetsLocked()
	m.mu.Unlock()

	if push != nil {
		push(sync)
	}
	for _, target := range targets {
		target(md)
	}

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		md := m.matchDataLocked()
		targets := m.metadataTargetsLocked()
		m.mu.Unlock()
		for _, target := range targets {
			target(md)
		}
	}
}

// PushSync sends the authoritative state and full log to one sink. It is
// the recovery path for clients that detected divergence.
func (m *Master) PushSync(push func(game.Action)) {
	if push == nil {
		return
	}
	m.mu.Lock()
	m.ensureStateLocked()
	sync := game.NewSync(m.state, m.snapshotLogLocked())
	m.mu.Unlock()
	push(sync)
}

// OnAction processes one client-originated action. baseStateID is the
// StateID of the state the client applied the action against; if it does
// not match the authoritative head the action is rejected and the sender is
// resynchronized instead. Accepted actions extend the authoritative log and
// broadcast an UPDATE to every subscriber.
func (m *Master) OnAction(playerID, credentials string, baseStateID int64, act game.Action, reply func(game.Action)) {
	if act.Type != game.ActionMakeMove && act.Type != game.ActionGameEvent {
		m.logger.Debug("dropping non-move action",
			zap.String("gameID", m.gameID),
			zap.String("type", string(act.Type)))
		return
	}

	m.mu.Lock()
	m.ensureStateLocked()

	if !m.checkCredentialsLocked(playerID, credentials) {
		m.mu.Unlock()
		m.logger.Warn("credential mismatch",
			zap.String("gameID", m.gameID),
			zap.String("playerID", playerID))
		return
	}

	if baseStateID != m.state.StateID {
		sync := game.NewSync(m.state, m.snapshotLogLocked())
		m.mu.Unlock()
		m.logger.Debug("stale action basis, resyncing sender",
			zap.String("gameID", m.gameID),
			zap.String("playerID", playerID),
			zap.Int64("base", baseStateID))
		if reply != nil {
			reply(sync)
		}
		return
	}

	if active := m.game.Flow.IsPlayerActive; active != nil && !active(m.state.G, m.state.Ctx, playerID) {
		m.mu.Unlock()
		m.logger.Debug("dropping action from inactive player",
			zap.String("gameID", m.gameID),
			zap.String("playerID", playerID))
		return
	}

	next := m.reducer(m.state, act)
	if next == m.state {
		m.mu.Unlock()
		m.logger.Debug("reducer rejected action",
			zap.String("gameID", m.gameID),
			zap.String("playerID", playerID))
		return
	}

	deltalog := next.Deltalog
	next.Deltalog = nil
	m.state = next
	m.log = append(m.log, deltalog...)

	update := game.NewUpdate(m.state, deltalog)
	targets := make([]func(game.Action), 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		if sub.push != nil {
			targets = append(targets, sub.push)
		}
	}
	m.mu.Unlock()

	for _, push := range targets {
		push(update)
	}
}

// State returns the authoritative state. Callers treat it as read-only.
func (m *Master) State() *game.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Log returns a copy of the authoritative log.
func (m *Master) Log() []game.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLogLocked()
}

func (m *Master) ensureStateLocked() {
	if m.state == nil {
		m.state = game.NewInitialState(m.game, m.numPlayers)
	}
}

func (m *Master) snapshotLogLocked() []game.LogEntry {
	if len(m.log) == 0 {
		return nil
	}
	entries := make([]game.LogEntry, len(m.log))
	copy(entries, m.log)
	return entries
}

// checkCredentialsLocked pins the first non-empty credential presented per
// participant and requires later actions to match it.
func (m *Master) checkCredentialsLocked(playerID, credentials string) bool {
	if playerID == "" {
		return true
	}
	pinned, ok := m.credentials[playerID]
	if !ok {
		if credentials != "" {
			m.credentials[playerID] = credentials
		}
		return true
	}
	return pinned == credentials
}

func (m *Master) matchDataLocked() game.MatchData {
	connected := make(map[string]bool, len(m.subscribers))
	for _, sub := range m.subscribers {
		if sub.playerID != "" {
			connected[sub.playerID] = true
		}
	}
	ids := make([]string, 0, len(connected))
	for id := range connected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	players := make([]game.PlayerMetadata, 0, len(ids))
	for _, id := range ids {
		players = append(players, game.PlayerMetadata{ID: id, IsConnected: true})
	}
	return game.MatchData{GameID: m.gameID, Players: players}
}

func (m *Master) metadataTargetsLocked() []func(game.MatchData) {
	targets := make([]func(game.MatchData), 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		if sub.pushMeta != nil {
			targets = append(targets, sub.pushMeta)
		}
	}
	return targets
}
