package analyses

import (
	"math"
	"sort"
	"time"
)

// ScorePoint is the slice of a persisted analysis the aggregate needs.
type ScorePoint struct {
	ID        string
	Score     int
	CreatedAt time.Time
}

// Aggregate summarises a user's analysis history.
type Aggregate struct {
	TotalAnalyses         int     `json:"totalAnalyses"`
	BestScore             int     `json:"bestScore"`
	LastScore             int     `json:"lastScore"`
	FirstScore            int     `json:"firstScore"`
	AverageScore          float64 `json:"averageScore"`
	ImprovementPercentage float64 `json:"improvementPercentage"`
}

// ComputeAggregate recomputes the summary from the full history. First and
// last are by creation time, ties broken by id.
func ComputeAggregate(points []ScorePoint) Aggregate {
	if len(points) == 0 {
		return Aggregate{}
	}
	ordered := make([]ScorePoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	agg := Aggregate{
		TotalAnalyses: len(ordered),
		FirstScore:    ordered[0].Score,
		LastScore:     ordered[len(ordered)-1].Score,
		BestScore:     ordered[0].Score,
	}
	sum := 0
	for _, p := range ordered {
		sum += p.Score
		if p.Score > agg.BestScore {
			agg.BestScore = p.Score
		}
	}
	agg.AverageScore = round2(float64(sum) / float64(len(ordered)))
	base := agg.FirstScore
	if base < 1 {
		base = 1
	}
	agg.ImprovementPercentage = round2(100 * float64(agg.LastScore-agg.FirstScore) / float64(base))
	return agg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
