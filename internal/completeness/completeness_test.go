package completeness

import (
	"encoding/json"
	"math/rand"
	"testing"

	"ats-backend/internal/profile"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		coverage float64
		want     Tier
	}{
		{0, TierInsufficient},
		{22.2, TierInsufficient},
		{29.9, TierInsufficient},
		{29.999999, TierInsufficient},
		{30.0, TierPartial},
		{33.3, TierPartial},
		{69.9, TierPartial},
		{70.0, TierFull},
		{77.8, TierFull},
		{100, TierFull},
	}
	for _, tc := range cases {
		if got := Classify(tc.coverage); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.coverage, got, tc.want)
		}
	}
}

func TestClassifyUsesUnroundedCoverage(t *testing.T) {
	// 29.96 displays as 30.0 but is still below the partial threshold.
	r := Report{Coverage: 29.96}
	if r.DisplayCoverage() != 30.0 {
		t.Fatalf("display = %v", r.DisplayCoverage())
	}
	if Classify(r.Coverage) != TierInsufficient {
		t.Fatal("threshold must compare the unrounded value")
	}
}

func inputWith(names ...profile.SectionName) profile.Input {
	values := map[profile.SectionName]*profile.Value{}
	for _, n := range names {
		switch n {
		case profile.Followers:
			values[n] = profile.CountValue(10)
		case profile.Skills:
			values[n] = profile.ListValue([]string{"Go"})
		default:
			values[n] = profile.TextValue(string(n) + " text")
		}
	}
	return profile.NewInput(profile.SourceText, values)
}

func TestEvaluateTwoOfNineIsInsufficient(t *testing.T) {
	r := Evaluate(inputWith(profile.Headline, profile.Skills))
	if len(r.Available) != 2 || len(r.Missing) != 7 {
		t.Fatalf("unexpected partition %v / %v", r.Available, r.Missing)
	}
	if r.DisplayCoverage() != 22.2 {
		t.Fatalf("display coverage = %v", r.DisplayCoverage())
	}
	if r.Tier != TierInsufficient {
		t.Fatalf("tier = %s", r.Tier)
	}
}

func TestEvaluateSixOfNineIsPartial(t *testing.T) {
	r := Evaluate(inputWith(profile.Headline, profile.About, profile.Education, profile.Followers, profile.ProfilePicture, profile.BackgroundImage))
	if r.Tier != TierPartial || r.DisplayCoverage() != 66.7 {
		t.Fatalf("tier=%s coverage=%v", r.Tier, r.DisplayCoverage())
	}
	for _, m := range []profile.SectionName{profile.Experience, profile.Skills, profile.Activity} {
		if !r.IsMissing(m) {
			t.Fatalf("expected %s missing", m)
		}
	}
}

func TestEvaluatePartitionsEnumeration(t *testing.T) {
	all := profile.AllSections()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var picked []profile.SectionName
		for _, n := range all {
			if rng.Intn(2) == 0 {
				picked = append(picked, n)
			}
		}
		r := Evaluate(inputWith(picked...))

		seen := map[profile.SectionName]int{}
		for _, n := range r.Available {
			seen[n]++
		}
		for _, n := range r.Missing {
			seen[n]++
		}
		if len(seen) != len(all) {
			t.Fatalf("partition covers %d of %d sections", len(seen), len(all))
		}
		for n, c := range seen {
			if c != 1 {
				t.Fatalf("section %s appears %d times", n, c)
			}
		}
		if len(r.Available) != len(picked) {
			t.Fatalf("expected %d available, got %d", len(picked), len(r.Available))
		}
		if Evaluate(inputWith(picked...)).Coverage != r.Coverage {
			t.Fatal("evaluate is not deterministic")
		}
	}
}

func TestReportJSON(t *testing.T) {
	raw, err := json.Marshal(Evaluate(inputWith(profile.Headline, profile.Skills, profile.About)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["coveragePercentage"] != 33.3 || got["tier"] != "partial" {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestReportUnmarshalRestoresExactCoverage(t *testing.T) {
	orig := Evaluate(inputWith(profile.Headline, profile.Skills))
	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Report
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Coverage != orig.Coverage || got.Tier != TierInsufficient {
		t.Fatalf("expected coverage %v insufficient, got %v %s", orig.Coverage, got.Coverage, got.Tier)
	}
	if len(got.Missing) != 7 || !got.IsMissing(profile.Experience) {
		t.Fatalf("unexpected missing sections %v", got.Missing)
	}
}
