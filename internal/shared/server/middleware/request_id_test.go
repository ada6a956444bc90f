package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/telemetry"
)

func TestRequestIDReuseAndReplace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		if telemetry.RequestID(c.Request.Context()) != RequestIDFromContext(c) {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	cases := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"caller id", "abc-123", true},
		{"missing", "", false},
		{"spaces inside", "abc 123", false},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-Id", tc.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if got == "" || got != resp.Body.String() {
				t.Fatalf("header %q and context %q disagree", got, resp.Body.String())
			}
			if tc.reuse && got != tc.header {
				t.Fatalf("expected caller id reused, got %q", got)
			}
			if !tc.reuse && got == tc.header {
				t.Fatalf("expected generated id, got caller value")
			}
		})
	}
}
