package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-sync/internal/auth"
)

const (
	// ContextKeyAccountID is the context key for storing the account ID.
	ContextKeyAccountID = "account_id"
	// ContextKeyToken is the context key for storing the raw session token.
	ContextKeyToken = "token"
)

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware resolves the bearer token to a live session.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			logger.Debug().Msg("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			return
		}

		accountID, ok, err := authService.ResolveSession(c.Request.Context(), token)
		if err != nil {
			logger.Error().Err(err).Msg("resolve session")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
			return
		}
		if !ok {
			logger.Debug().Msg("invalid or revoked token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(ContextKeyAccountID, accountID)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// accountID reads the authenticated account set by AuthMiddleware.
func accountID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextKeyAccountID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
