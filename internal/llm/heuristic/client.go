// Package heuristic scores a profile locally with keyword and section
// heuristics. It answers in the same JSON shape a hosted model is asked for,
// so its output goes through the normal parser.
package heuristic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ats-backend/internal/llm"
	"ats-backend/internal/scoring"
)

// Client implements llm.Client without a network call.
type Client struct{}

// New returns a heuristic client.
func New() *Client {
	return &Client{}
}

type response struct {
	SubScores       map[scoring.Category]int `json:"subScores"`
	MatchedKeywords []string                 `json:"matchedKeywords"`
	MissingKeywords []string                 `json:"missingKeywords"`
	Strengths       []finding                `json:"strengths"`
	Weaknesses      []finding                `json:"weaknesses"`
	Suggestions     []string                 `json:"suggestions"`
}

type finding struct {
	Category scoring.Category `json:"category"`
	Text     string           `json:"text"`
}

// Complete scores the sections carried in req.Fields.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sections := map[string]string{}
	for k, v := range req.Fields {
		if name, ok := strings.CutPrefix(k, scoring.FieldSectionPrefix); ok {
			sections[name] = v
		}
	}
	jd := req.Fields[scoring.FieldJobDescription]
	if role := req.Fields[scoring.FieldTargetRole]; role != "" {
		jd = role + "\n" + jd
	}

	var corpus strings.Builder
	for _, v := range sections {
		corpus.WriteString(strings.ToLower(v))
		corpus.WriteString("\n")
	}
	matched, missing := matchKeywords(extractKeywords(jd), corpus.String())

	skills := countItems(sections["skills"])
	scores := map[scoring.Category]int{
		scoring.KeywordMatch:  keywordScore(len(matched), len(missing), skills, sections["headline"] != ""),
		scoring.Skills:        capScore(skills, 30, 7),
		scoring.Formatting:    formattingScore(sections["headline"], sections["about"]),
		scoring.Experience:    experienceScore(sections["experience"]),
		scoring.Projects:      capScore(countEntries(sections["activity"]), 20, 20),
		scoring.ATSCompatible: capScore(len(sections), 40, 7),
	}

	out := response{
		SubScores:       scores,
		MatchedKeywords: matched,
		MissingKeywords: missing,
	}
	for _, cat := range scoring.Categories() {
		v := scores[cat]
		switch {
		case v >= 70:
			out.Strengths = append(out.Strengths, finding{Category: cat, Text: strengthText[cat]})
		case v > 0 && v < 50:
			out.Weaknesses = append(out.Weaknesses, finding{Category: cat, Text: weaknessText[cat]})
			out.Suggestions = append(out.Suggestions, suggestionText[cat])
		}
	}
	if len(missing) > 0 {
		n := len(missing)
		if n > 5 {
			n = 5
		}
		out.Suggestions = append(out.Suggestions, fmt.Sprintf("Work these job terms into your profile where they are true: %s.", strings.Join(missing[:n], ", ")))
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#.]{2,}`)

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "you": {}, "our": {}, "are": {}, "will": {},
	"this": {}, "that": {}, "have": {}, "from": {}, "your": {}, "who": {}, "about": {},
	"work": {}, "team": {}, "role": {}, "years": {}, "experience": {}, "skills": {},
	"ability": {}, "strong": {}, "using": {}, "including": {}, "across": {}, "into": {},
	"what": {}, "they": {}, "their": {}, "must": {}, "also": {}, "such": {}, "other": {},
}

const maxKeywords = 25

// extractKeywords picks distinct terms from the job text, most frequent first.
func extractKeywords(text string) []string {
	counts := map[string]int{}
	order := map[string]int{}
	for _, w := range wordPattern.FindAllString(text, -1) {
		w = strings.ToLower(strings.TrimRight(w, "."))
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := order[w]; !seen {
			order[w] = len(order)
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})
	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	return words
}

func matchKeywords(keywords []string, corpus string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	for _, k := range keywords {
		if strings.Contains(corpus, k) {
			matched = append(matched, k)
		} else {
			missing = append(missing, k)
		}
	}
	return matched, missing
}

func keywordScore(matched, missing, skills int, hasHeadline bool) int {
	if matched+missing > 0 {
		return scoring.ClampScore(100 * float64(matched) / float64(matched+missing))
	}
	switch {
	case skills > 0:
		return capScore(skills, 50, 5)
	case hasHeadline:
		return 40
	default:
		return 0
	}
}

// capScore is base+step*n for n>0, capped at 100, and 0 when n is 0.
func capScore(n, base, step int) int {
	if n <= 0 {
		return 0
	}
	v := base + step*n
	if v > 100 {
		v = 100
	}
	return v
}

func countItems(list string) int {
	if strings.TrimSpace(list) == "" {
		return 0
	}
	n := 0
	for _, p := range strings.Split(list, ",") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// countEntries counts rendered "- " lines, or 1 for plain text.
func countEntries(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "- ") {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

var digits = regexp.MustCompile(`\d+%|\$\d|\d{2,}`)

func experienceScore(text string) int {
	n := countEntries(text)
	if n == 0 {
		return 0
	}
	v := 25 * n
	if v > 75 {
		v = 75
	}
	if digits.MatchString(text) {
		v += 25
	}
	return v
}

func formattingScore(headline, about string) int {
	v := 0
	if h := strings.TrimSpace(headline); h != "" {
		v += 30
		if len(h) <= 120 {
			v += 10
		}
	}
	if words := len(strings.Fields(about)); words > 0 {
		if words >= 40 && words <= 300 {
			v += 60
		} else {
			v += 30
		}
	}
	return v
}

var strengthText = map[scoring.Category]string{
	scoring.KeywordMatch:  "Profile language lines up well with the target role.",
	scoring.Skills:        "Broad, clearly listed skill set.",
	scoring.Formatting:    "Headline and summary are concise and easy to scan.",
	scoring.Experience:    "Work history shows concrete, quantified results.",
	scoring.Projects:      "Recent projects and activity back up the listed skills.",
	scoring.ATSCompatible: "Most standard sections are filled in.",
}

var weaknessText = map[scoring.Category]string{
	scoring.KeywordMatch:  "Few terms from the job description appear in the profile.",
	scoring.Skills:        "Skill list is short.",
	scoring.Formatting:    "Headline or summary is missing or hard to scan.",
	scoring.Experience:    "Work history lacks measurable outcomes.",
	scoring.Projects:      "Little recent project activity.",
	scoring.ATSCompatible: "Several standard sections are empty.",
}

var suggestionText = map[scoring.Category]string{
	scoring.KeywordMatch:  "Mirror the key requirements of the job description in your headline and skills.",
	scoring.Skills:        "Add the tools and technologies you use day to day.",
	scoring.Formatting:    "Write a one-line headline and a short summary of your focus.",
	scoring.Experience:    "Add numbers to each role: scale, savings, growth or latency.",
	scoring.Projects:      "Share one or two recent projects with a short description.",
	scoring.ATSCompatible: "Fill in the empty profile sections.",
}

var _ llm.Client = (*Client)(nil)
