package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ats-backend/internal/llm"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestCompleteReturnsCandidateText(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"overallScore\":55}"}]}}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Complete(context.Background(), llm.Request{System: "sys", User: "profile", JSONOutput: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"overallScore":55}` {
		t.Fatalf("unexpected text %q", out)
	}
	if !strings.Contains(path, "gemini-test:generateContent") {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestCompleteMapsHTTPErrorToStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{User: "x"})
	var se *llm.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", se.StatusCode)
	}
}
