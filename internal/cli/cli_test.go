package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ats-backend/internal/analyses"
	"ats-backend/internal/shared/config"
)

const resumeText = `Jane Doe
Senior Backend Engineer
jane@example.com

Summary
Backend engineer focused on distributed systems.

Experience
Senior Engineer at Acme (Jan 2020 - Present)
- Led the billing platform rewrite

Skills
Go, PostgreSQL, Kubernetes

Education
BSc Computer Science, State University

Projects
atsctl - CLI for resume scoring
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	base := config.Config{LLMProvider: "heuristic", LLMTimeout: 5 * time.Second, PromptVersion: "ats-v1"}
	err := Execute(context.Background(), base, &out, args)
	return out.String(), err
}

func TestSectionsReportsTier(t *testing.T) {
	out, err := run(t, "sections", writeFile(t, "resume.txt", resumeText))
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	for _, want := range []string{"partial", "experience", "skills"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSectionsInsufficientShowsRemediation(t *testing.T) {
	out, err := run(t, "sections", "-o", "json", writeFile(t, "thin.txt", "Jane Doe\n\nSkills\nGo\n"))
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	var body struct {
		Completeness struct {
			Tier string `json:"tier"`
		} `json:"completeness"`
		Remediation *struct {
			NextSteps []json.RawMessage `json:"nextSteps"`
		} `json:"remediation"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if body.Completeness.Tier != "insufficient" || body.Remediation == nil || len(body.Remediation.NextSteps) == 0 {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestScoreRunsPipeline(t *testing.T) {
	jd := writeFile(t, "jd.txt", "We need Go and Kubernetes experience.")
	out, err := run(t, "score", "--output", "json", "--target-role", "Backend Engineer", "--jd", jd, writeFile(t, "resume.txt", resumeText))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var outcome analyses.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if outcome.Kind == analyses.OutcomeInsufficient || outcome.Analysis == nil {
		t.Fatalf("expected a scored analysis, got %s", outcome.Kind)
	}
	if outcome.Analysis.TargetRole != "Backend Engineer" || outcome.Analysis.Provider != "heuristic" {
		t.Fatalf("unexpected analysis %+v", outcome.Analysis)
	}
	if s := outcome.Analysis.Result.OverallScore; s < 0 || s > 100 {
		t.Fatalf("score out of range: %d", s)
	}
}

func TestEnvironmentOverridesOutput(t *testing.T) {
	t.Setenv("ATS_OUTPUT", "yaml")
	if _, err := run(t, "sections", writeFile(t, "resume.txt", resumeText)); err == nil {
		t.Fatalf("expected unknown output format error")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := run(t, "score", filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
