package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func meRouter(svc *Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
		c.Set("isGuest", guest)
		c.Set("userEmail", "claims@example.com")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func getMe(t *testing.T, router *gin.Engine) (int, map[string]any) {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	var body map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	return resp.Code, body
}

func TestMeReturnsStoredUser(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	if err := svc.UpsertFromAuth(context.Background(), User{ID: "google:1", Email: "jane@example.com", FullName: "Jane"}); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}

	code, body := getMe(t, meRouter(svc, "google:1", false))
	if code != http.StatusOK || body["email"] != "jane@example.com" || body["fullName"] != "Jane" {
		t.Fatalf("unexpected response %d %v", code, body)
	}
}

func TestMeFallsBackToClaims(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	code, body := getMe(t, meRouter(svc, "google:2", false))
	if code != http.StatusOK || body["email"] != "claims@example.com" {
		t.Fatalf("unexpected response %d %v", code, body)
	}

	code, body = getMe(t, meRouter(svc, "guest:abc", true))
	if code != http.StatusOK || body["isGuest"] != true || body["id"] != "guest:abc" {
		t.Fatalf("unexpected guest response %d %v", code, body)
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	code, _ := getMe(t, meRouter(NewService(NewMemoryRepo()), "", false))
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
