package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"campusprint/internal/api/middleware"
)

// userIDFromContext returns the authenticated user id set by the auth
// middleware.
func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// loggerOrDefault returns the request-scoped logger, falling back to the
// handler's own and then the process default.
func loggerOrDefault(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
