package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-sync/internal/auth"
	"github.com/vovakirdan/wirechat-sync/internal/config"
	"github.com/vovakirdan/wirechat-sync/internal/core"
	"github.com/vovakirdan/wirechat-sync/internal/store"
)

// NewServer builds the HTTP server with the REST API and the websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	router.POST("/api/register", apiHandlers.Register)
	router.POST("/api/login", apiHandlers.Login)

	api := router.Group("/api", AuthMiddleware(authService, logger))
	api.POST("/logout", apiHandlers.Logout)

	roomHandlers := NewRoomHandlers(st, logger)
	api.GET("/rooms", roomHandlers.ListRooms)
	api.POST("/rooms", roomHandlers.CreateRoom)

	userHandlers := NewUserHandlers(st, logger)
	api.GET("/users/:username", userHandlers.LookupUser)

	emoteHandlers := NewEmoteHandlers(st, logger)
	api.GET("/emotes", emoteHandlers.ListEmotes)
	api.PUT("/emotes/:alias", emoteHandlers.SetEmote)
	api.DELETE("/emotes/:alias", emoteHandlers.DeleteEmote)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
