package scoring

import (
	"strings"
	"testing"

	"ats-backend/internal/profile"
)

func TestBuildRequestIncludesOnlyAvailableSections(t *testing.T) {
	in, r := sixOfNine()
	req := BuildRequest(in, r, RequestContext{TargetRole: "Platform Engineer", JobDescription: "Go and Kubernetes"})

	if !strings.Contains(req.User, "Tier: partial") {
		t.Fatalf("expected tier in prompt: %s", req.User)
	}
	if !strings.Contains(req.User, "Target role: Platform Engineer") || !strings.Contains(req.User, "Go and Kubernetes") {
		t.Fatalf("expected role and job description in prompt")
	}
	if !strings.Contains(req.User, "[headline]\nheadline text") {
		t.Fatalf("expected headline verbatim: %s", req.User)
	}
	for _, missing := range []string{"[skills]", "[experience]", "[activity]"} {
		if strings.Contains(req.User, missing) {
			t.Fatalf("missing section %s must not be rendered", missing)
		}
	}
	if !strings.Contains(req.User, "Missing sections: experience, skills, activity") {
		t.Fatalf("expected missing section names listed: %s", req.User)
	}
	if req.Fields[FieldSectionPrefix+string(profile.Skills)] != "" {
		t.Fatalf("missing section leaked into fields")
	}
	if req.Fields[FieldTier] != "partial" || req.PromptVersion != DefaultPromptVersion || !req.JSONOutput {
		t.Fatalf("unexpected request metadata %+v", req)
	}
}

func TestBuildRequestIsDeterministic(t *testing.T) {
	in, r := allNine()
	rc := RequestContext{TargetRole: "SRE"}
	a := BuildRequest(in, r, rc)
	b := BuildRequest(in, r, rc)
	if a.Hash() != b.Hash() {
		t.Fatalf("expected stable hash")
	}
	c := BuildRequest(in, r, RequestContext{TargetRole: "Data Engineer"})
	if a.Hash() == c.Hash() {
		t.Fatalf("expected hash to change with context")
	}
	if strings.Contains(a.User, "Job description") {
		t.Fatalf("blank job description must be omitted")
	}
}
