// Package server hosts authoritative game sessions behind a websocket
// endpoint. Each connection binds to one (game, gameID, playerID) triple and
// stays subscribed to that session's pushes until it drops.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ninepins/game"
	"ninepins/internal/wire"
	"ninepins/master"
)

// Config tunes the handler. A nil Registry falls back to
// master.DefaultRegistry; a nil Logger discards.
type Config struct {
	Registry *master.Registry
	Logger   *zap.Logger
}

// Handler upgrades websocket connections and routes their frames to the
// master of the session named in the connection's first frame.
type Handler struct {
	games    map[string]game.Game
	registry *master.Registry
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds a handler serving the given games.
func NewHandler(games []game.Game, cfg Config) *Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = master.DefaultRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]game.Game, len(games))
	for _, g := range games {
		byName[g.Name] = g
	}
	return &Handler{
		games:    byName,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the session loop until the
// connection drops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}
	h.serve(conn)
}

// binding is the session identity locked in by the first frame.
type binding struct {
	game        game.Game
	gameID      string
	playerID    string
	credentials string
	master      *master.Master
}

func (h *Handler) serve(conn *websocket.Conn) {
	sess := newSession(conn, h.logger)

	var bound *binding
	var unsub func()
	defer func() {
		conn.Close()
		if unsub != nil {
			unsub()
		}
		if bound != nil {
			h.registry.Release(bound.game, bound.gameID)
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wire.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Debug("discarding malformed frame", zap.Error(err))
			continue
		}
		if msg.Ver != wire.Version {
			sess.closeWithPolicyViolation("protocol version mismatch")
			return
		}

		if bound == nil {
			b, ok := h.bind(sess, msg)
			if !ok {
				return
			}
			bound = b
			unsub = bound.master.Subscribe(bound.playerID, sess.pushAction, sess.pushMatchData)
			if msg.Type == wire.ClientTypeSync {
				continue
			}
		}

		h.route(sess, bound, msg)
	}
}

// bind resolves the first frame's session identity and acquires its master.
func (h *Handler) bind(sess *session, msg wire.ClientMessage) (*binding, bool) {
	g, ok := h.games[msg.GameName]
	if !ok {
		h.logger.Warn("unknown game", zap.String("game", msg.GameName))
		sess.closeWithPolicyViolation("unknown game")
		return nil, false
	}
	if msg.GameID == "" || msg.PlayerID == "" {
		sess.closeWithPolicyViolation("missing session binding")
		return nil, false
	}
	m := h.registry.Acquire(g, msg.GameID, master.Config{
		NumPlayers: msg.NumPlayers,
		Logger:     h.logger,
	})
	h.logger.Info("session bound",
		zap.String("game", msg.GameName),
		zap.String("gameID", msg.GameID),
		zap.String("playerID", msg.PlayerID))
	return &binding{
		game:        g,
		gameID:      msg.GameID,
		playerID:    msg.PlayerID,
		credentials: msg.Credentials,
		master:      m,
	}, true
}

func (h *Handler) route(sess *session, bound *binding, msg wire.ClientMessage) {
	switch msg.Type {
	case wire.ClientTypeSync:
		bound.master.PushSync(sess.pushAction)
	case wire.ClientTypeAction:
		if msg.Action == nil || msg.StateID == nil {
			h.logger.Debug("discarding action frame without payload",
				zap.String("playerID", bound.playerID))
			return
		}
		bound.master.OnAction(bound.playerID, bound.credentials, *msg.StateID, *msg.Action, sess.pushAction)
	default:
		h.logger.Debug("discarding unknown frame type", zap.String("type", msg.Type))
	}
}
