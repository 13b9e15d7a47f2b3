package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/middleware"
	"github.com/fluffy-dev/The-Loom/internal/service"
)

// RoomHandler serves room creation and lookup.
type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

type FileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

type ArchiveResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomResponse struct {
	RoomID    string            `json:"room_id"`
	OwnerID   uint              `json:"owner_id"`
	CreatedAt time.Time         `json:"created_at"`
	Files     []FileResponse    `json:"files"`
	Snapshots []ArchiveResponse `json:"snapshots"`
}

type roomURI struct {
	RoomID string `uri:"roomId" binding:"required,alphanum,max=16"`
}

func toRoomResponse(room *domain.Room) RoomResponse {
	return RoomResponse{
		RoomID:    room.PublicID,
		OwnerID:   room.OwnerID,
		CreatedAt: room.CreatedAt,
		Files: lo.Map(room.Files, func(f domain.File, _ int) FileResponse {
			return FileResponse{ID: f.WireID(), Name: f.OriginalName, SizeBytes: f.SizeBytes}
		}),
		// archive paths are server-side locations and stay private
		Snapshots: lo.Map(room.Archives, func(a domain.SnapshotArchive, _ int) ArchiveResponse {
			return ArchiveResponse{ID: a.ID, CreatedAt: a.CreatedAt}
		}),
	}
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("Handler.CreateRoom: user id missing from context")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, toRoomResponse(room))
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid room id")
		return
	}

	room, err := h.roomService.FindRoomByPublicID(c.Request.Context(), uri.RoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, toRoomResponse(room))
}
