package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ats-backend/internal/shared/storage/object"
)

func TestSaveAndOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	pdf := []byte("%PDF-1.7\nhello")

	obj, err := store.Save(ctx, "user-1", "my resume.pdf", bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.Size != int64(len(pdf)) || obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected object %+v", obj)
	}
	if !strings.HasSuffix(obj.Key, "_my resume.pdf") || strings.Contains(obj.Key, "user-1") {
		t.Fatalf("unexpected key %s", obj.Key)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, pdf) {
		t.Fatalf("expected %q, got %q", pdf, got)
	}
}

func TestSaveWithKeyReplaces(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if _, err := store.SaveWithKey(ctx, "u/doc.extracted.txt", "text/plain", strings.NewReader(body)); err != nil {
			t.Fatalf("SaveWithKey: %v", err)
		}
	}
	rc, err := store.Open(ctx, "u/doc.extracted.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second" {
		t.Fatalf("expected second copy, got %q", got)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../etc/passwd", "/abs/path", "a/../../b", ""} {
		if _, err := store.Open(context.Background(), key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("%q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	if _, err := store.Save(context.Background(), "u", "../x.pdf", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal file name to be rejected")
	}
}
