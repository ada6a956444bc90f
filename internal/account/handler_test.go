package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"ats-backend/internal/analyses"
	"ats-backend/internal/documents"
)

func newClaimRouter(svc *Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func claim(router *gin.Engine, guestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	if guestID != "" {
		req.Header.Set("X-Guest-Id", guestID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestClaimGuestMovesHistoryIntoSummary(t *testing.T) {
	ctx := context.Background()
	docRepo := documents.NewMemoryRepo()
	analysisRepo := analyses.NewMemoryRepo()
	router := newClaimRouter(NewService(docRepo, analysisRepo, nil), "user-1", false)

	guestID := "11111111-1111-1111-1111-111111111111"
	guestUserID := "guest:" + guestID
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := docRepo.Create(ctx, documents.Document{ID: "doc-1", UserID: guestUserID, FileName: "resume.pdf", CreatedAt: base}); err != nil {
		t.Fatalf("create document: %v", err)
	}
	seed := []analyses.Analysis{
		{ID: "a-user", UserID: "user-1", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a-guest", UserID: guestUserID, CreatedAt: base.Add(time.Hour)},
	}
	seed[0].Result.OverallScore = 80
	seed[1].Result.OverallScore = 40
	for _, a := range seed {
		if err := analysisRepo.Create(ctx, a); err != nil {
			t.Fatalf("create analysis: %v", err)
		}
	}

	resp := claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result ClaimResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedDocuments != 1 || result.MigratedAnalyses != 1 {
		t.Fatalf("unexpected claim result: %+v", result)
	}

	if _, err := docRepo.GetByID(ctx, "user-1", "doc-1"); err != nil {
		t.Fatalf("document not moved: %v", err)
	}
	if _, err := analysisRepo.GetByID(ctx, guestUserID, "a-guest"); err == nil {
		t.Fatalf("guest still owns the analysis")
	}
	points, err := analysisRepo.ListScores(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	agg := analyses.ComputeAggregate(points)
	if agg.TotalAnalyses != 2 || agg.FirstScore != 40 || agg.LastScore != 80 || agg.ImprovementPercentage != 100 {
		t.Fatalf("unexpected aggregate after claim: %+v", agg)
	}
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	ctx := context.Background()
	docRepo := documents.NewMemoryRepo()
	router := newClaimRouter(NewService(docRepo, analyses.NewMemoryRepo(), nil), "user-1", false)

	guestID := "22222222-2222-2222-2222-222222222222"
	if err := docRepo.Create(ctx, documents.Document{ID: "doc-2", UserID: "guest:" + guestID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create document: %v", err)
	}

	if resp := claim(router, guestID); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp := claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on repeat, got %d", resp.Code)
	}
	var again ClaimResult
	if err := json.NewDecoder(resp.Body).Decode(&again); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if again.MigratedDocuments != 0 || again.MigratedAnalyses != 0 {
		t.Fatalf("repeat claim moved data: %+v", again)
	}

	docs, err := docRepo.ListByUser(ctx, "user-2", 10, 0)
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs for other user, got %d", len(docs))
	}
}

func TestClaimGuestRejects(t *testing.T) {
	svc := NewService(documents.NewMemoryRepo(), analyses.NewMemoryRepo(), nil)

	if resp := claim(newClaimRouter(svc, "guest:abc", true), "11111111-1111-1111-1111-111111111111"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("guest caller: expected 401, got %d", resp.Code)
	}
	if resp := claim(newClaimRouter(svc, "user-1", false), ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing header: expected 400, got %d", resp.Code)
	}
	if resp := claim(newClaimRouter(svc, "user-1", false), "not-a-uuid"); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad guest id: expected 400, got %d", resp.Code)
	}
}

func TestClaimGuestFromBody(t *testing.T) {
	ctx := context.Background()
	docRepo := documents.NewMemoryRepo()
	guestID := "22222222-2222-2222-2222-222222222222"
	if err := docRepo.Create(ctx, documents.Document{ID: "doc-9", UserID: "guest:" + guestID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	router := newClaimRouter(NewService(docRepo, analyses.NewMemoryRepo(), nil), "google:7", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", strings.NewReader(`{"guestId":"`+guestID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"migratedDocuments":1`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestClaimGuestUnsupportedRepos(t *testing.T) {
	router := newClaimRouter(NewService(nil, nil, nil), "google:7", false)
	if resp := claim(router, "33333333-3333-3333-3333-333333333333"); resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.Code)
	}
}

func TestClaimGuestUsesOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents SET user_id = \$1`).
		WithArgs("user-1", "guest:g").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE analyses SET user_id = \$1`).
		WithArgs("user-1", "guest:g").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	svc := NewService(nil, nil, db)
	res, err := svc.ClaimGuest(context.Background(), "guest:g", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if res.MigratedDocuments != 2 || res.MigratedAnalyses != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
