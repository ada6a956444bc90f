package completeness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ats-backend/internal/profile"
)

const maxNextSteps = 7

// Step is one ranked action that would raise coverage.
type Step struct {
	ID      string              `json:"id"`
	Section profile.SectionName `json:"section"`
	Title   string              `json:"title"`
	Action  string              `json:"action"`
	Impact  string              `json:"impact"`
	Order   int                 `json:"order"`
}

// Remediation is returned instead of an analysis when too little of the
// profile could be read.
type Remediation struct {
	Reasons          []string `json:"reasons"`
	NextSteps        []Step   `json:"nextSteps"`
	SectionsRequired int      `json:"sectionsRequired"`
}

type guidance struct {
	title  string
	action string
	impact string
}

var sectionGuidance = map[profile.SectionName]guidance{
	profile.Experience:      {"Add your work experience", "List each role with title, organization, dates and two to four outcome-focused bullets.", "high"},
	profile.Skills:          {"List your skills", "Add a dedicated skills section with the tools and technologies you use, separated by commas.", "high"},
	profile.About:           {"Write a summary", "Add a short about or summary paragraph describing your focus and strongest results.", "high"},
	profile.Headline:        {"Add a headline", "Put a one-line professional title under your name, for example \"Senior Backend Engineer\".", "medium"},
	profile.Education:       {"Add education", "Include degrees, certifications or bootcamps with institution and dates.", "medium"},
	profile.Activity:        {"Show projects or activity", "Add a projects section or recent posts so reviewers can see applied work.", "medium"},
	profile.ProfilePicture:  {"Add a profile picture", "Upload a clear, professional photo to your profile.", "low"},
	profile.BackgroundImage: {"Add a background image", "Set a banner image that reflects your field.", "low"},
	profile.Followers:       {"Expose your network size", "Make your follower or connection count visible on the profile.", "low"},
}

// SectionsToReach returns how many more sections must become available for
// coverage to reach threshold.
func SectionsToReach(r Report, threshold float64) int {
	total := len(r.Available) + len(r.Missing)
	if total == 0 {
		return 0
	}
	needed := int(math.Ceil(threshold*float64(total)/100 - 1e-9))
	if gap := needed - len(r.Available); gap > 0 {
		return gap
	}
	return 0
}

// BuildRemediation explains why the input cannot be analyzed and ranks the
// missing sections by how much they help.
func BuildRemediation(r Report) Remediation {
	required := SectionsToReach(r, PartialThreshold)
	total := len(r.Available) + len(r.Missing)
	reasons := []string{
		fmt.Sprintf("Only %d of %d profile sections could be read (%.1f%% coverage); at least %.0f%% is needed for an analysis.",
			len(r.Available), total, r.DisplayCoverage(), PartialThreshold),
	}
	if len(r.Missing) > 0 {
		names := make([]string, 0, len(r.Missing))
		for _, m := range r.Missing {
			names = append(names, string(m))
		}
		reasons = append(reasons, "Missing or empty: "+strings.Join(names, ", ")+".")
	}
	if required > 0 {
		reasons = append(reasons, fmt.Sprintf("Add at least %d more section(s) and try again.", required))
	}

	steps := make([]Step, 0, len(r.Missing))
	for _, name := range r.Missing {
		g, ok := sectionGuidance[name]
		if !ok {
			continue
		}
		steps = append(steps, Step{
			ID:      "ADD_" + strings.ToUpper(string(name)),
			Section: name,
			Title:   g.title,
			Action:  g.action,
			Impact:  g.impact,
		})
	}
	sortSteps(steps)
	if len(steps) > maxNextSteps {
		steps = steps[:maxNextSteps]
	}
	for i := range steps {
		steps[i].Order = i + 1
	}
	return Remediation{Reasons: reasons, NextSteps: steps, SectionsRequired: required}
}

func impactRank(value string) int {
	switch value {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

func sectionRank(name profile.SectionName) int {
	for i, s := range profile.AllSections() {
		if s == name {
			return i
		}
	}
	return len(profile.AllSections())
}

func sortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if impactRank(a.Impact) != impactRank(b.Impact) {
			return impactRank(a.Impact) > impactRank(b.Impact)
		}
		return sectionRank(a.Section) < sectionRank(b.Section)
	})
}
