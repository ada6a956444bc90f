package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
)

// ParseError reports an inference response that cannot be turned into a
// result.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse inference response: %s: %v", e.Reason, e.Err)
	}
	return "parse inference response: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const (
	maxKeywords    = 50
	maxFindings    = 10
	maxSuggestions = 10
)

// StripWrapping removes a BOM, markdown code fences and any prose around the
// outermost JSON object.
func StripWrapping(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{}") {
			s = s[i+1:]
		}
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// Parse validates a raw inference response. Scores are clamped, the score
// category is recomputed and, outside the full tier, categories backed only
// by missing sections are forced to zero and kept out of strengths and
// weaknesses.
func Parse(raw string, tier completeness.Tier, r completeness.Report) (Result, error) {
	body := StripWrapping(raw)
	if body == "" {
		return Result{}, &ParseError{Reason: "empty response"}
	}
	var top map[string]any
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return Result{}, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if top == nil {
		return Result{}, &ParseError{Reason: "response is not an object"}
	}
	if err := requireTopLevelFields(top); err != nil {
		return Result{}, err
	}

	suppressed := suppressedFor(tier, r)
	scores := zeroScores()
	if sub, ok := top["subScores"].(map[string]any); ok {
		for key, v := range sub {
			if c, ok := lookupCategory(key); ok {
				scores[c] = ClampScore(number(v))
			}
		}
	}
	for _, c := range suppressed {
		scores[c] = 0
	}

	evaluated := make([]Category, 0, len(allCategories))
	for _, c := range allCategories {
		if !contains(suppressed, c) {
			evaluated = append(evaluated, c)
		}
	}
	var overall int
	if v, ok := top["overallScore"]; ok && v != nil {
		overall = ClampScore(number(v))
	} else {
		overall = MeanScore(scores, evaluated)
	}

	matched := uniqueStrings(stringList(top["matchedKeywords"]), nil, maxKeywords)
	missing := uniqueStrings(stringList(top["missingKeywords"]), matched, maxKeywords)

	filter := newMentionFilter(suppressed)
	res := Result{
		OverallScore:         overall,
		ScoreCategory:        CategoryFor(overall),
		SubScores:            scores,
		MatchedKeywords:      matched,
		MissingKeywords:      missing,
		Strengths:            filter.apply(findings(top["strengths"]), maxFindings),
		Weaknesses:           filter.apply(findings(top["weaknesses"]), maxFindings),
		Suggestions:          uniqueStrings(stringList(top["suggestions"]), nil, maxSuggestions),
		TierAtAnalysisTime:   tier,
		CoveragePercentage:   r.DisplayCoverage(),
		SuppressedCategories: nonNilCategories(suppressed),
	}
	if tip, ok := top["improvementTip"].(string); ok {
		res.ImprovementTip = strings.TrimSpace(tip)
	}
	if res.ImprovementTip == "" {
		res.ImprovementTip = defaultTip(scores, evaluated, res.Suggestions)
	}
	return res, nil
}

// ParseOrFallback is Parse for callers that always need a result: on a parse
// failure it returns the degraded fallback alongside the *ParseError.
func ParseOrFallback(raw string, tier completeness.Tier, r completeness.Report) (Result, error) {
	res, err := Parse(raw, tier, r)
	if err != nil {
		return Fallback(ReasonParseError, r), err
	}
	return res, nil
}

func requireTopLevelFields(top map[string]any) error {
	_, hasOverall := top["overallScore"]
	_, hasSub := top["subScores"]
	if !hasOverall && !hasSub {
		return &ParseError{Reason: "missing overallScore and subScores"}
	}
	return nil
}

var categoryAliases = map[string]Category{
	"keywordmatch":     KeywordMatch,
	"keywords":         KeywordMatch,
	"keyword":          KeywordMatch,
	"skills":           Skills,
	"skill":            Skills,
	"skillsmatch":      Skills,
	"formatting":       Formatting,
	"format":           Formatting,
	"readability":      Formatting,
	"experience":       Experience,
	"workexperience":   Experience,
	"projects":         Projects,
	"project":          Projects,
	"atscompatible":    ATSCompatible,
	"atscompatibility": ATSCompatible,
	"ats":              ATSCompatible,
}

func lookupCategory(key string) (Category, bool) {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	c, ok := categoryAliases[b.String()]
	return c, ok
}

// number reads a JSON number or numeric string. Anything else is 0.
func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// uniqueStrings trims, drops blanks and case-insensitive duplicates (also
// against exclude) and keeps at most limit items in order.
func uniqueStrings(in []string, exclude []string, limit int) []string {
	seen := make(map[string]struct{}, len(in)+len(exclude))
	for _, e := range exclude {
		seen[strings.ToLower(e)] = struct{}{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

type finding struct {
	category string
	text     string
}

// findings accepts plain strings or {"category","text"} objects.
func findings(v any) []finding {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]finding, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case string:
			out = append(out, finding{text: t})
		case map[string]any:
			f := finding{}
			f.category, _ = t["category"].(string)
			f.text, _ = t["text"].(string)
			out = append(out, f)
		}
	}
	return out
}

var categoryTerms = map[Category][]string{
	KeywordMatch: {"keyword"},
	Skills:       {"skill"},
	Formatting:   {"format"},
	Experience:   {"experience"},
	Projects:     {"project"},
}

var sectionTerms = map[profile.SectionName][]string{
	profile.Headline:   {"headline"},
	profile.About:      {"summary", "about section"},
	profile.Skills:     {"skill"},
	profile.Experience: {"experience", "work history"},
	profile.Activity:   {"activity", "activities", "project"},
}

// mentionFilter drops findings about suppressed categories.
type mentionFilter struct {
	categories []Category
	pattern    *regexp.Regexp
}

func newMentionFilter(suppressed []Category) mentionFilter {
	if len(suppressed) == 0 {
		return mentionFilter{}
	}
	var terms []string
	for _, c := range suppressed {
		terms = append(terms, categoryTerms[c]...)
		for _, s := range backing[c] {
			terms = append(terms, sectionTerms[s]...)
		}
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	return mentionFilter{
		categories: suppressed,
		pattern:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`),
	}
}

func (m mentionFilter) apply(in []finding, limit int) []string {
	texts := make([]string, 0, len(in))
	for _, f := range in {
		if m.pattern != nil {
			if c, ok := lookupCategory(f.category); ok && contains(m.categories, c) {
				continue
			}
			if m.pattern.MatchString(f.text) {
				continue
			}
		}
		texts = append(texts, f.text)
	}
	return uniqueStrings(texts, nil, limit)
}

var categoryTips = map[Category]string{
	KeywordMatch:  "Mirror the most important terms from the job description in your headline and skills.",
	Skills:        "List the tools and technologies you use most, grouped and ordered by relevance.",
	Formatting:    "Tighten your headline and summary so a recruiter understands your focus in one read.",
	Experience:    "Describe each role with measurable outcomes rather than duties.",
	Projects:      "Share recent projects or posts that show the skills you want to be hired for.",
	ATSCompatible: "Use standard section names and plain text so applicant tracking systems can read every section.",
}

func defaultTip(scores map[Category]int, evaluated []Category, suggestions []string) string {
	if len(suggestions) > 0 {
		return suggestions[0]
	}
	if len(evaluated) == 0 {
		return categoryTips[ATSCompatible]
	}
	lowest := evaluated[0]
	for _, c := range evaluated[1:] {
		if scores[c] < scores[lowest] {
			lowest = c
		}
	}
	return categoryTips[lowest]
}
