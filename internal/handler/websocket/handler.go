package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/hub"
	"github.com/fluffy-dev/The-Loom/internal/middleware"
)

// UserAuthenticator verifies tokens and resolves users.
type UserAuthenticator interface {
	VerifyToken(token string) (uint, error)
	LookupUser(ctx context.Context, userID uint) (*domain.User, error)
}

// RoomFinder checks that a room exists.
type RoomFinder interface {
	FindRoomByPublicID(ctx context.Context, publicID string) (*domain.Room, error)
}

// Options configures the upgrader and the sessions it spawns.
type Options struct {
	AllowedOrigin string
	Session       hub.SessionConfig
}

// WebSocketHandler upgrades GET /ws/:roomId/:fileId and runs a relay session on it.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	registry hub.Registry
	docs     hub.SnapshotStore
	users    UserAuthenticator
	rooms    RoomFinder
	opts     Options
}

func NewWebSocketHandler(registry hub.Registry, docs hub.SnapshotStore, users UserAuthenticator, rooms RoomFinder, opts Options) *WebSocketHandler {
	if registry == nil {
		panic("Registry cannot be nil for WebSocketHandler")
	}
	if docs == nil {
		panic("SnapshotStore cannot be nil for WebSocketHandler")
	}
	if users == nil {
		panic("UserAuthenticator cannot be nil for WebSocketHandler")
	}
	if rooms == nil {
		panic("RoomFinder cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigin),
		},
		registry: registry,
		docs:     docs,
		users:    users,
		rooms:    rooms,
		opts:     opts,
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || strings.EqualFold(origin, allowed)
	}
}

// Authenticate implements hub.Authenticator: valid token, existing user, existing room.
func (h *WebSocketHandler) Authenticate(ctx context.Context, token string, key domain.RoomKey) (uint, error) {
	userID, err := h.users.VerifyToken(token)
	if err != nil {
		return 0, err
	}
	if _, err := h.users.LookupUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("user %d: %w", userID, err)
	}
	if _, err := h.rooms.FindRoomByPublicID(ctx, key.RoomID); err != nil {
		return 0, fmt.Errorf("room %s: %w", key.RoomID, err)
	}
	return userID, nil
}

// HandleConnection serves one WebSocket for its whole lifetime.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	key := domain.RoomKey{RoomID: c.Param("roomId"), FileID: c.Param("fileId")}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": key.RoomID, "file_id": key.FileID})
	if err := key.Validate(); err != nil {
		logCtx.WithError(err).Warn("WS Handler: invalid room key")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room or file id"})
		return
	}

	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logCtx.WithError(err).Warn("WS Handler: failed to upgrade connection")
		return
	}
	logCtx.Debug("WS Handler: connection upgraded")

	session := hub.NewSession(conn, key, h.registry, h.docs, h.opts.Session)
	session.Serve(c.Request.Context(), token, h)
}
