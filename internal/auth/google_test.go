package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	sharedauth "ats-backend/internal/shared/auth"
)

func newTestGoogle(t *testing.T, cfg GoogleConfig) (*gin.Engine, *GoogleService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := sharedauth.NewSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	svc := NewGoogleService(cfg, signer, nil)
	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func TestStartRedirectsWithState(t *testing.T) {
	router, svc := newTestGoogle(t, GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/v1/auth/google/callback",
		UIRedirect:   "http://localhost:5173/auth",
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" || loc.Query().Get("client_id") != "client" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	if !svc.stateStore.consume(state) {
		t.Fatalf("state was not recorded")
	}
	if svc.stateStore.consume(state) {
		t.Fatalf("state must be single use")
	}
}

func TestStartUnconfigured(t *testing.T) {
	router, _ := newTestGoogle(t, GoogleConfig{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	router, _ := newTestGoogle(t, GoogleConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://x"})

	for _, target := range []string{
		"/api/v1/auth/google/callback",
		"/api/v1/auth/google/callback?state=nope&code=abc",
	} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestStateExpires(t *testing.T) {
	store := newStateStore()
	store.put("old", time.Now().Add(-time.Second))
	if store.consume("old") {
		t.Fatalf("expired state accepted")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://localhost:5173/auth?next=%2Fhistory", "abc.def")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	if !strings.Contains(got, "token=abc.def") || !strings.Contains(got, "next=%2Fhistory") {
		t.Fatalf("unexpected url %s", got)
	}
	if _, err := appendToken("", "t"); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
