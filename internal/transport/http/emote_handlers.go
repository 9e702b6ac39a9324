package http

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

var aliasPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// EmoteHandlers manages the emote catalog. Connected clients pick up
// changes on the next catalog read of the poller.
type EmoteHandlers struct {
	store store.EmoteStore
	log   *zerolog.Logger
}

// NewEmoteHandlers creates a new emote handlers instance.
func NewEmoteHandlers(st store.EmoteStore, logger *zerolog.Logger) *EmoteHandlers {
	return &EmoteHandlers{
		store: st,
		log:   logger,
	}
}

// SetEmoteRequest represents the set emote request body.
type SetEmoteRequest struct {
	Ref string `json:"ref" binding:"required,max=256"`
}

// ListEmotes returns the whole catalog.
// GET /api/emotes
func (h *EmoteHandlers) ListEmotes(c *gin.Context) {
	catalog, err := h.store.GetEmoteCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read emote catalog")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// SetEmote adds or replaces an alias.
// PUT /api/emotes/:alias
func (h *EmoteHandlers) SetEmote(c *gin.Context) {
	alias := c.Param("alias")
	if !aliasPattern.MatchString(alias) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid alias"})
		return
	}

	var req SetEmoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.SetEmote(c.Request.Context(), alias, req.Ref); err != nil {
		h.log.Error().Err(err).Str("alias", alias).Msg("failed to set emote")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("alias", alias).Msg("emote set")
	c.Status(http.StatusNoContent)
}

// DeleteEmote removes an alias.
// DELETE /api/emotes/:alias
func (h *EmoteHandlers) DeleteEmote(c *gin.Context) {
	alias := c.Param("alias")
	if err := h.store.DeleteEmote(c.Request.Context(), alias); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "emote not found"})
			return
		}
		h.log.Error().Err(err).Str("alias", alias).Msg("failed to delete emote")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("alias", alias).Msg("emote deleted")
	c.Status(http.StatusNoContent)
}
