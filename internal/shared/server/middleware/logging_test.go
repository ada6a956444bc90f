package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/telemetry"
)

func loggedRequest(t *testing.T, handler gin.HandlerFunc) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Auth(nil), Logging())
	router.GET("/test", handler)

	var buf bytes.Buffer
	defer telemetry.SetOutput(&buf)()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	return entry, resp
}

func TestLoggingCarriesPipelineFields(t *testing.T) {
	entry, resp := loggedRequest(t, func(c *gin.Context) {
		c.Set(DocumentIDKey, "doc-1")
		c.Set(AnalysisIDKey, "analysis-1")
		c.Set(OutcomeKey, "degraded")
		c.Set(TierKey, "partial")
		c.Status(http.StatusOK)
	})

	want := map[string]any{
		"msg":         "request.complete",
		"request_id":  resp.Header().Get("X-Request-Id"),
		"user_id":     "guest:guest1",
		"is_guest":    true,
		"document_id": "doc-1",
		"analysis_id": "analysis-1",
		"outcome":     "degraded",
		"tier":        "partial",
		"status":      float64(http.StatusOK),
	}
	for key, v := range want {
		if entry[key] != v {
			t.Fatalf("%s: expected %v, got %v", key, v, entry[key])
		}
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Fatalf("missing duration_ms")
	}
}

func TestLoggingOmitsUnsetFieldsAndFlagsServerErrors(t *testing.T) {
	entry, _ := loggedRequest(t, func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	for _, key := range []string{"document_id", "analysis_id", "outcome", "tier"} {
		if _, ok := entry[key]; ok {
			t.Fatalf("unexpected field %s in %v", key, entry)
		}
	}
	if entry["level"] != "error" {
		t.Fatalf("expected error level for 5xx, got %v", entry["level"])
	}
}
