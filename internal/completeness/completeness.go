package completeness

import (
	"encoding/json"
	"math"

	"ats-backend/internal/profile"
)

// Tier gates how much of the scoring pipeline runs.
type Tier string

const (
	TierInsufficient Tier = "insufficient"
	TierPartial      Tier = "partial"
	TierFull         Tier = "full"
)

// Coverage thresholds, in percent. They are compared against the unrounded
// coverage value.
const (
	PartialThreshold = 30.0
	FullThreshold    = 70.0
)

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierInsufficient, TierPartial, TierFull:
		return true
	}
	return false
}

// Classify maps a coverage percentage to a tier.
func Classify(coverage float64) Tier {
	switch {
	case coverage < PartialThreshold:
		return TierInsufficient
	case coverage < FullThreshold:
		return TierPartial
	default:
		return TierFull
	}
}

// Report describes which sections of an input are usable. Available and
// Missing partition the section enumeration and are in canonical order.
type Report struct {
	Available []profile.SectionName
	Missing   []profile.SectionName
	Coverage  float64
	Tier      Tier
}

// Evaluate computes the completeness report for an input.
func Evaluate(in profile.Input) Report {
	all := profile.AllSections()
	r := Report{
		Available: make([]profile.SectionName, 0, len(all)),
		Missing:   make([]profile.SectionName, 0, len(all)),
	}
	for _, name := range all {
		if in.Section(name).Present() {
			r.Available = append(r.Available, name)
		} else {
			r.Missing = append(r.Missing, name)
		}
	}
	r.Coverage = 100 * float64(len(r.Available)) / float64(len(all))
	r.Tier = Classify(r.Coverage)
	return r
}

// DisplayCoverage is the coverage rounded to one decimal place.
func (r Report) DisplayCoverage() float64 {
	return math.Round(r.Coverage*10) / 10
}

// IsMissing reports whether the section was unavailable.
func (r Report) IsMissing(name profile.SectionName) bool {
	for _, m := range r.Missing {
		if m == name {
			return true
		}
	}
	return false
}

type reportJSON struct {
	AvailableSections  []profile.SectionName `json:"availableSections"`
	MissingSections    []profile.SectionName `json:"missingSections"`
	CoveragePercentage float64               `json:"coveragePercentage"`
	Tier               Tier                  `json:"tier"`
}

// MarshalJSON renders the display coverage.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON{
		AvailableSections:  nonNil(r.Available),
		MissingSections:    nonNil(r.Missing),
		CoveragePercentage: r.DisplayCoverage(),
		Tier:               r.Tier,
	})
}

func nonNil(in []profile.SectionName) []profile.SectionName {
	if in == nil {
		return []profile.SectionName{}
	}
	return in
}

// UnmarshalJSON restores a stored report. Coverage is recomputed from the
// available sections so threshold comparisons stay exact.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Available = nonNil(in.AvailableSections)
	r.Missing = nonNil(in.MissingSections)
	r.Coverage = 100 * float64(len(r.Available)) / float64(profile.SectionCount)
	r.Tier = in.Tier
	if !r.Tier.Valid() {
		r.Tier = Classify(r.Coverage)
	}
	return nil
}
