package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	defaultWriteWait       = 10 * time.Second
	defaultLoadWait        = 5 * time.Second
	defaultSendBuffer      = 256
	defaultMaxMessageBytes = 1 << 20
)

// SessionState is where a session is in its lifecycle.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateSyncing
	StateRelaying
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSyncing:
		return "syncing"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Authenticator resolves a bearer token to a user allowed into key.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, key domain.RoomKey) (uint, error)
}

// SnapshotStore is the slice of the document service a session needs.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, key domain.RoomKey) ([]byte, bool, error)
	SaveSnapshot(ctx context.Context, key domain.RoomKey, data []byte) error
}

// SessionConfig tunes per-connection limits. Zero values fall back to defaults.
type SessionConfig struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	LoadTimeout     time.Duration // bound on the snapshot read during sync
	MaxMessageBytes int64
	PongWait        time.Duration
	PingPeriod      time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteWait
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = defaultLoadWait
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = defaultMaxMessageBytes
	}
	if c.PongWait <= 0 {
		c.PongWait = pongWait
	}
	// pings must go out before the peer's read deadline passes
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	return c
}

// Session relays binary document updates between one WebSocket client and the other
// peers on the same room key.
type Session struct {
	id       string
	key      domain.RoomKey
	conn     *websocket.Conn
	registry Registry
	docs     SnapshotStore
	cfg      SessionConfig
	userID   uint

	state atomic.Int32

	send     chan []byte
	sendMu   sync.Mutex
	sendDone bool

	closeOnce sync.Once
	log       *logrus.Entry
}

// NewSession wraps an upgraded connection. Nothing is registered until Serve authenticates.
func NewSession(conn *websocket.Conn, key domain.RoomKey, registry Registry, docs SnapshotStore, cfg SessionConfig) *Session {
	if conn == nil {
		panic("websocket conn cannot be nil for Session")
	}
	if registry == nil {
		panic("Registry cannot be nil for Session")
	}
	if docs == nil {
		panic("SnapshotStore cannot be nil for Session")
	}
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Session{
		id:       id,
		key:      key,
		conn:     conn,
		registry: registry,
		docs:     docs,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		log: logrus.WithFields(logrus.Fields{
			"session_id": id,
			"room_id":    key.RoomID,
			"file_id":    key.FileID,
		}),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Key() domain.RoomKey { return s.key }
func (s *Session) UserID() uint        { return s.userID }
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
	s.log.WithField("state", st.String()).Debug("Session state changed")
}

// Send queues payload for the write pump without blocking.
func (s *Session) Send(payload []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendDone {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Close closes the outbound queue; the write pump then sends a close frame and drops the connection.
func (s *Session) Close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendDone {
		s.sendDone = true
		close(s.send)
	}
}

// Serve runs the session to completion on the calling goroutine.
func (s *Session) Serve(ctx context.Context, token string, auth Authenticator) {
	// 1. authenticate; nothing is registered on failure
	s.setState(StateAuthenticating)
	userID, err := auth.Authenticate(ctx, token, s.key)
	if err != nil {
		s.log.WithError(err).Warn("Session rejected")
		s.reject(websocket.ClosePolicyViolation, "authentication failed")
		return
	}
	s.userID = userID
	s.log = s.log.WithField("user_id", userID)

	// 2. register first so no broadcast is missed, then sync; broadcasts wait in the queue
	s.setState(StateSyncing)
	s.registry.Connect(s, s.key)
	if err := s.sync(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to write sync frame")
		s.terminate()
		_ = s.conn.Close()
		return
	}

	// 3. relay until either pump stops
	s.setState(StateRelaying)
	go s.writePump()
	s.readPump(ctx)
}

// sync writes the stored snapshot directly on the connection. It must run before the
// write pump starts so the sync frame is the first frame the client sees.
func (s *Session) sync(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	snapshot, ok, err := s.docs.LoadSnapshot(loadCtx, s.key)
	cancel()
	if err != nil {
		// relay without a sync frame rather than refusing the client
		s.log.WithError(err).Warn("Failed to load snapshot, skipping sync")
		return nil
	}
	if !ok {
		return nil
	}
	// the write pump is not running yet, so writing on conn here is safe
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, domain.SyncFrame(snapshot)); err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Time{})
	s.log.WithField("bytes", len(snapshot)).Debug("Sync frame sent")
	return nil
}

func (s *Session) reject(code int, reason string) {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(s.cfg.WriteTimeout))
	s.terminate()
	_ = s.conn.Close()
}

// terminate runs the Closed transition exactly once.
func (s *Session) terminate() {
	s.closeOnce.Do(func() {
		s.registry.Disconnect(s, s.key)
		s.Close()
		s.setState(StateClosed)
	})
}

func (s *Session) readPump(ctx context.Context) {
	defer s.terminate()

	// oversized frames make ReadMessage fail and gorilla answers with 1009
	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	// each pong extends the read deadline
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				s.log.Warn("Frame exceeded read limit")
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				s.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			default:
				s.log.Debug("WebSocket connection closed")
			}
			return
		}

		// only binary updates are relayed
		if messageType != websocket.BinaryMessage {
			s.log.WithField("message_type", messageType).Warn("Non-binary frame, closing session")
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "binary frames only"),
				time.Now().Add(s.cfg.WriteTimeout))
			return
		}

		s.relay(ctx, message)
	}
}

// relay persists then fans out. A store failure does not stop the relay.
func (s *Session) relay(ctx context.Context, message []byte) {
	if err := s.docs.SaveSnapshot(ctx, s.key, message); err != nil {
		s.log.WithError(err).Warn("Failed to persist snapshot, relaying anyway")
	}
	n := s.registry.Broadcast(message, s.key, s)
	s.log.WithFields(logrus.Fields{"bytes": len(message), "recipients": n}).Debug("Frame relayed")
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		s.log.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			// queue closed by terminate or eviction
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				s.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			// keepalive; a failed ping means the peer is gone
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
