package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ats-backend/internal/analyses"
	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
	"ats-backend/internal/scoring"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Width(22)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// scoreStyle colours a score by its category band.
func scoreStyle(c scoring.ScoreCategory) lipgloss.Style {
	switch c {
	case scoring.Excellent, scoring.Good:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	case scoring.Average:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func line(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+value)
}

func renderReport(w io.Writer, r completeness.Report) {
	fmt.Fprintln(w, titleStyle.Render("Completeness"))
	line(w, "Tier", string(r.Tier))
	line(w, "Coverage", fmt.Sprintf("%.0f%%", r.DisplayCoverage()))
	line(w, "Available", joinSections(r.Available))
	line(w, "Missing", mutedStyle.Render(joinSections(r.Missing)))
}

func renderRemediation(w io.Writer, rem completeness.Remediation) {
	fmt.Fprintln(w, titleStyle.Render("Not enough profile data to score"))
	for _, reason := range rem.Reasons {
		fmt.Fprintln(w, "  "+reason)
	}
	line(w, "Sections required", fmt.Sprintf("%d", rem.SectionsRequired))
	for _, step := range rem.NextSteps {
		fmt.Fprintf(w, "  %d. %s %s\n     %s\n", step.Order, step.Title, mutedStyle.Render("("+step.Impact+")"), step.Action)
	}
}

func renderOutcome(w io.Writer, out analyses.Outcome) {
	renderReport(w, out.Completeness)
	if out.Kind == analyses.OutcomeInsufficient {
		if out.Remediation != nil {
			renderRemediation(w, *out.Remediation)
		}
		return
	}
	res := out.Analysis.Result

	fmt.Fprintln(w, titleStyle.Render("Score"))
	line(w, "Overall", scoreStyle(res.ScoreCategory).Render(fmt.Sprintf("%d (%s)", res.OverallScore, res.ScoreCategory)))
	if res.Degraded {
		line(w, "Degraded", warnStyle.Render(string(res.DegradedReason)))
	}
	for _, c := range scoring.Categories() {
		if contains(res.SuppressedCategories, c) {
			line(w, string(c), mutedStyle.Render("suppressed"))
			continue
		}
		line(w, string(c), fmt.Sprintf("%d", res.SubScores[c]))
	}

	renderList(w, "Matched keywords", res.MatchedKeywords)
	renderList(w, "Missing keywords", res.MissingKeywords)
	renderList(w, "Strengths", res.Strengths)
	renderList(w, "Weaknesses", res.Weaknesses)
	renderList(w, "Suggestions", res.Suggestions)
	if res.ImprovementTip != "" {
		fmt.Fprintln(w, titleStyle.Render("Tip"))
		fmt.Fprintln(w, "  "+res.ImprovementTip)
	}
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	for _, item := range items {
		fmt.Fprintln(w, "  - "+item)
	}
}

func joinSections(names []profile.SectionName) string {
	if len(names) == 0 {
		return "none"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

func contains(list []scoring.Category, c scoring.Category) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}
