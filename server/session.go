package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ninepins/game"
	"ninepins/internal/wire"
)

const writeWait = 10 * time.Second

// session wraps one upgraded connection. Authority pushes arrive from the
// master's goroutines while the read loop owns the connection, so every
// write goes through the session's mutex.
type session struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu sync.Mutex
}

func newSession(conn *websocket.Conn, logger *zap.Logger) *session {
	return &session{conn: conn, logger: logger}
}

func (s *session) write(msg *wire.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// pushAction is the sink handed to the master for SYNC and UPDATE pushes.
func (s *session) pushAction(act game.Action) {
	msg, err := wire.FromMasterAction(act)
	if err != nil {
		s.logger.Error("unroutable authority push", zap.Error(err))
		return
	}
	if err := s.write(msg); err != nil {
		s.logger.Debug("push failed", zap.Error(err))
	}
}

// pushMatchData is the sink handed to the master for metadata broadcasts.
func (s *session) pushMatchData(md game.MatchData) {
	if err := s.write(wire.NewMatchDataMessage(md)); err != nil {
		s.logger.Debug("match data push failed", zap.Error(err))
	}
}

func (s *session) closeWithPolicyViolation(reason string) {
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	s.mu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, message)
	s.mu.Unlock()
	s.conn.Close()
}
