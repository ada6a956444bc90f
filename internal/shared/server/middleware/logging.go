package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can correlate the pipeline run.
const (
	DocumentIDKey = "documentId"
	AnalysisIDKey = "analysisId"
	OutcomeKey    = "outcome"
	TierKey       = "tier"
)

// Logging emits one structured line per request. The request id comes from
// the request context, so RequestID must run first. Pipeline fields are only
// present when a handler set them.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID := UserIDFromContext(c); userID != "" {
			fields["user_id"] = userID
			fields["is_guest"] = IsGuest(c)
		}
		for key, field := range map[string]string{
			DocumentIDKey: "document_id",
			AnalysisIDKey: "analysis_id",
			OutcomeKey:    "outcome",
			TierKey:       "tier",
		} {
			if v := c.GetString(key); v != "" {
				fields[field] = v
			}
		}

		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			telemetry.ErrorContext(ctx, "request.complete", fields)
			return
		}
		telemetry.InfoContext(ctx, "request.complete", fields)
	}
}
