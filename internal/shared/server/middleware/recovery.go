package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope and an error log line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.ErrorContext(c.Request.Context(), "panic", map[string]any{
				"user_id": UserIDFromContext(c),
				"error":   fmt.Sprint(rec),
				"stack":   string(debug.Stack()),
				"route":   c.FullPath(),
				"method":  c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
