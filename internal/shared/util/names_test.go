package util

import (
	"errors"
	"strings"
	"testing"
)

func TestOwnerDirStableHex(t *testing.T) {
	got := OwnerDir("google:12345")
	if got != OwnerDir("google:12345") || got == OwnerDir("guest:12345") {
		t.Fatalf("owner dirs must be stable and distinct")
	}
	if len(got) != 64 || strings.Trim(got, "0123456789abcdef") != "" {
		t.Fatalf("expected 64 lowercase hex chars, got %q", got)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":              "resume.pdf",
		"  My CV.pdf ":            "My CV.pdf",
		"uploads/2026/resume.pdf": "resume.pdf",
		`C:\Users\jane\cv.pdf`:    "cv.pdf",
		"tab\tname.pdf":           "tab_name.pdf",
	}
	for in, want := range cases {
		got, err := SafeFileName(in)
		if err != nil || got != want {
			t.Fatalf("SafeFileName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "   ", "../etc/passwd", "a/../../b.pdf", "/"} {
		if _, err := SafeFileName(bad); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SafeFileName(%q): expected ErrInvalidFileName, got %v", bad, err)
		}
	}
}

func TestSafeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got, err := SafeFileName(strings.Repeat("x", 300) + ".pdf")
	if err != nil {
		t.Fatalf("SafeFileName: %v", err)
	}
	if len(got) != maxFileNameLength || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected truncation %q (%d)", got, len(got))
	}
}
