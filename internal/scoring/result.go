package scoring

import (
	"ats-backend/internal/completeness"
)

// Result is a validated analysis.
type Result struct {
	OverallScore         int               `json:"overallScore"`
	ScoreCategory        ScoreCategory     `json:"scoreCategory"`
	SubScores            map[Category]int  `json:"subScores"`
	MatchedKeywords      []string          `json:"matchedKeywords"`
	MissingKeywords      []string          `json:"missingKeywords"`
	Strengths            []string          `json:"strengths"`
	Weaknesses           []string          `json:"weaknesses"`
	Suggestions          []string          `json:"suggestions"`
	ImprovementTip       string            `json:"improvementTip"`
	TierAtAnalysisTime   completeness.Tier `json:"tierAtAnalysisTime"`
	CoveragePercentage   float64           `json:"coveragePercentage"`
	SuppressedCategories []Category        `json:"suppressedCategories"`
	Degraded             bool              `json:"degraded"`
	DegradedReason       DegradedReason    `json:"degradedReason,omitempty"`
}

// DegradedReason explains why a result is the fallback.
type DegradedReason string

const (
	ReasonParseError           DegradedReason = "parse_error"
	ReasonInferenceTimeout     DegradedReason = "inference_timeout"
	ReasonInferenceError       DegradedReason = "inference_error"
	ReasonInferenceUnavailable DegradedReason = "inference_unavailable"
)

var fallbackSuggestions = map[DegradedReason]string{
	ReasonParseError:           "Automated analysis could not read the scoring response. Please review your profile manually or try again.",
	ReasonInferenceTimeout:     "The scoring service took too long to respond. Please try again in a moment.",
	ReasonInferenceError:       "The scoring service returned an error. Please try again or review your profile manually.",
	ReasonInferenceUnavailable: "The scoring service is temporarily unavailable. Please try again later.",
}

// Fallback builds the degraded result: zero scores, Poor, one suggestion.
func Fallback(reason DegradedReason, r completeness.Report) Result {
	msg, ok := fallbackSuggestions[reason]
	if !ok {
		reason = ReasonParseError
		msg = fallbackSuggestions[reason]
	}
	return Result{
		OverallScore:         0,
		ScoreCategory:        CategoryFor(0),
		SubScores:            zeroScores(),
		MatchedKeywords:      []string{},
		MissingKeywords:      []string{},
		Strengths:            []string{},
		Weaknesses:           []string{},
		Suggestions:          []string{msg},
		ImprovementTip:       "Submit the analysis again once the scoring service is reachable.",
		TierAtAnalysisTime:   r.Tier,
		CoveragePercentage:   r.DisplayCoverage(),
		SuppressedCategories: nonNilCategories(SuppressedCategories(r)),
		Degraded:             true,
		DegradedReason:       reason,
	}
}

func zeroScores() map[Category]int {
	out := make(map[Category]int, len(allCategories))
	for _, c := range allCategories {
		out[c] = 0
	}
	return out
}

func nonNilCategories(in []Category) []Category {
	if in == nil {
		return []Category{}
	}
	return in
}
