package scoring

import (
	"math"

	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
)

// Category is one of the fixed sub-score dimensions.
type Category string

const (
	KeywordMatch  Category = "keywordMatch"
	Skills        Category = "skills"
	Formatting    Category = "formatting"
	Experience    Category = "experience"
	Projects      Category = "projects"
	ATSCompatible Category = "atsCompatible"
)

var allCategories = [...]Category{
	KeywordMatch,
	Skills,
	Formatting,
	Experience,
	Projects,
	ATSCompatible,
}

// Categories returns every category in canonical order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories[:])
	return out
}

// backing lists the sections a category is judged from. A category with no
// backing sections is never suppressed.
var backing = map[Category][]profile.SectionName{
	KeywordMatch:  {profile.Skills, profile.Headline},
	Skills:        {profile.Skills},
	Formatting:    {profile.About, profile.Headline},
	Experience:    {profile.Experience},
	Projects:      {profile.Activity},
	ATSCompatible: nil,
}

// BackingSections returns the sections behind c.
func BackingSections(c Category) []profile.SectionName {
	return append([]profile.SectionName(nil), backing[c]...)
}

// SuppressedCategories returns the categories that must score zero: outside
// the full tier, those whose backing sections are all missing.
func SuppressedCategories(r completeness.Report) []Category {
	return suppressedFor(r.Tier, r)
}

func suppressedFor(tier completeness.Tier, r completeness.Report) []Category {
	if tier == completeness.TierFull {
		return nil
	}
	var out []Category
	for _, c := range allCategories {
		secs := backing[c]
		if len(secs) == 0 {
			continue
		}
		missing := true
		for _, s := range secs {
			if !r.IsMissing(s) {
				missing = false
				break
			}
		}
		if missing {
			out = append(out, c)
		}
	}
	return out
}

// ScoreCategory is the qualitative label for an overall score.
type ScoreCategory string

const (
	Excellent ScoreCategory = "Excellent"
	Good      ScoreCategory = "Good"
	Average   ScoreCategory = "Average"
	Poor      ScoreCategory = "Poor"
)

// Breakpoints for CategoryFor. These are the only ones used anywhere.
const (
	ExcellentFrom = 81
	GoodFrom      = 66
	AverageFrom   = 41
)

// CategoryFor labels an overall score.
func CategoryFor(score int) ScoreCategory {
	switch {
	case score >= ExcellentFrom:
		return Excellent
	case score >= GoodFrom:
		return Good
	case score >= AverageFrom:
		return Average
	default:
		return Poor
	}
}

// ClampScore rounds half away from zero and clamps into [0,100].
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// MeanScore is the unweighted mean of the listed categories, rounded.
// Categories absent from scores count as zero.
func MeanScore(scores map[Category]int, over []Category) int {
	if len(over) == 0 {
		return 0
	}
	sum := 0
	for _, c := range over {
		sum += scores[c]
	}
	return ClampScore(float64(sum) / float64(len(over)))
}

func contains(list []Category, c Category) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
