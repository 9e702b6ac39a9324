package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		log:   logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=64"`
	Topic string `json:"topic" binding:"max=256"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Topic     string `json:"topic"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func roomResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Type:      string(room.Type),
		Topic:     room.Topic,
		OwnerID:   room.OwnerID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}

// CreateRoom creates a public room and joins the caller to it.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	uid, ok := accountID(c)
	if !ok {
		h.log.Error().Msg("account_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	room, err := h.store.CreateRoom(ctx, name, store.RoomTypePublic, &uid)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("room_name", name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if _, err := h.store.JoinRoom(ctx, uid, room.ID); err != nil {
		h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to join created room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if topic := strings.TrimSpace(req.Topic); topic != "" {
		if _, err := h.store.SetRoomTopic(ctx, uid, room.ID, topic); err != nil {
			h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to set topic")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		room.Topic = topic
	}

	h.log.Info().Str("room_name", room.Name).Int64("room_id", room.ID).Int64("owner_id", uid).Msg("room created")
	c.JSON(http.StatusCreated, roomResponse(room))
}

// ListRooms lists public rooms and the caller's own rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	uid, ok := accountID(c)
	if !ok {
		h.log.Error().Msg("account_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.store.ListRooms(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("account_id", uid).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(room))
	}

	h.log.Debug().Int64("account_id", uid).Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}
