package scoring

import (
	"fmt"
	"strings"

	"ats-backend/internal/completeness"
	"ats-backend/internal/llm"
	"ats-backend/internal/profile"
)

// DefaultPromptVersion labels the instructions below.
const DefaultPromptVersion = "ats-v1"

// RequestContext carries the caller-supplied parameters of an analysis.
type RequestContext struct {
	TargetRole     string
	JobDescription string
	PromptVersion  string
}

// Field keys in llm.Request.Fields.
const (
	FieldTier           = "tier"
	FieldTargetRole     = "targetRole"
	FieldJobDescription = "jobDescription"
	FieldSectionPrefix  = "section."
)

const systemPrompt = `You are an applicant tracking system scoring engine.
Score the candidate profile below for the target role and job description.
Respond with a single JSON object and nothing else, using these keys:
  overallScore (integer 0-100),
  subScores (object with integer 0-100 values for keywordMatch, skills, formatting, experience, projects, atsCompatible),
  matchedKeywords, missingKeywords, strengths, weaknesses, suggestions (arrays of strings, most important first),
  improvementTip (string).
Only judge sections that are provided. When the tier is "partial", give a score of 0 to any category whose sections are listed as missing and do not mention them in strengths or weaknesses.`

// BuildRequest serialises the available sections and the analysis context.
// Missing sections are named but their content is never included.
func BuildRequest(in profile.Input, r completeness.Report, rc RequestContext) llm.Request {
	version := strings.TrimSpace(rc.PromptVersion)
	if version == "" {
		version = DefaultPromptVersion
	}
	fields := map[string]string{
		FieldTier: string(r.Tier),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tier: %s\n", r.Tier)
	fmt.Fprintf(&b, "Coverage: %.1f%%\n", r.DisplayCoverage())
	if role := strings.TrimSpace(rc.TargetRole); role != "" {
		fmt.Fprintf(&b, "Target role: %s\n", role)
		fields[FieldTargetRole] = role
	}
	if jd := strings.TrimSpace(rc.JobDescription); jd != "" {
		b.WriteString("\nJob description:\n")
		b.WriteString(jd)
		b.WriteString("\n")
		fields[FieldJobDescription] = jd
	}

	b.WriteString("\nProfile sections:\n")
	for _, name := range r.Available {
		text := in.Section(name).Render()
		fmt.Fprintf(&b, "\n[%s]\n%s\n", name, text)
		fields[FieldSectionPrefix+string(name)] = text
	}
	if len(r.Missing) > 0 {
		names := make([]string, 0, len(r.Missing))
		for _, m := range r.Missing {
			names = append(names, string(m))
		}
		fmt.Fprintf(&b, "\nMissing sections: %s\n", strings.Join(names, ", "))
	}
	if suppressed := SuppressedCategories(r); len(suppressed) > 0 {
		names := make([]string, 0, len(suppressed))
		for _, c := range suppressed {
			names = append(names, string(c))
		}
		fmt.Fprintf(&b, "Categories that must score 0: %s\n", strings.Join(names, ", "))
	}

	return llm.Request{
		System:        systemPrompt,
		User:          b.String(),
		PromptVersion: version,
		JSONOutput:    true,
		Fields:        fields,
	}
}
