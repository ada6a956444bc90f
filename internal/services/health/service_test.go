package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func probe(t *testing.T, svc *Service, path string) (int, Report) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	var report Report
	_ = json.NewDecoder(resp.Body).Decode(&report)
	return resp.Code, report
}

func TestLivenessIgnoresChecks(t *testing.T) {
	svc := NewService()
	svc.Add("db", func(context.Context) error { return errors.New("down") })
	if code, _ := probe(t, svc, "/api/v1/health"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestReadyReportsEveryCheck(t *testing.T) {
	svc := NewService()
	svc.Add("db", func(context.Context) error { return nil })
	svc.Add("inference", func(context.Context) error { return errors.New("circuit open") })

	code, report := probe(t, svc, "/api/v1/health/ready")
	if code != http.StatusServiceUnavailable || report.OK {
		t.Fatalf("expected 503 not ok, got %d %+v", code, report)
	}
	if report.Checks["db"] != "ok" || report.Checks["inference"] != "circuit open" {
		t.Fatalf("unexpected checks %+v", report.Checks)
	}
}

func TestReadyWithoutChecks(t *testing.T) {
	code, report := probe(t, NewService(), "/api/v1/health/ready")
	if code != http.StatusOK || !report.OK {
		t.Fatalf("expected 200 ok, got %d %+v", code, report)
	}
}

func TestCheckIsBounded(t *testing.T) {
	svc := NewService()
	svc.Add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if report := svc.Ready(ctx); report.OK {
		t.Fatalf("expected failure for canceled check")
	}
}
