package respond

import (
	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/telemetry"
)

// Error codes shared by every handler.
const (
	CodeValidation        = "validation_error"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeLimitReached      = "limit_reached"
	CodeRateLimited       = "rate_limited"
	CodePersistenceFailed = "persistence_failed"
	CodeQueueUnavailable  = "queue_unavailable"
	CodeInternal          = "internal"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts with the error envelope. 5xx responses
// log at error level, everything else at info.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status": status,
		"code":   code,
		"route":  c.FullPath(),
		"method": c.Request.Method,
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		fields["message"] = message
		telemetry.ErrorContext(c.Request.Context(), "http.error", fields)
	} else {
		telemetry.InfoContext(c.Request.Context(), "http.rejected", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
