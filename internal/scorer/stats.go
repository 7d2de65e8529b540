package scorer

import (
	"math"

	"github.com/civicworks/projectwatch/internal/model"
)

// Statistics aggregates a batch of analyses: counts per classification, mean
// score, mean confidence, and the share of projects that are confirmed or
// likely stalled.
func Statistics(analyses []model.ProjectAnalysis) model.Stats {
	stats := model.Stats{
		Total:            len(analyses),
		ByClassification: make(map[model.Classification]int),
	}
	if len(analyses) == 0 {
		return stats
	}

	var scoreSum, confSum float64
	for _, a := range analyses {
		stats.ByClassification[a.Classification]++
		scoreSum += float64(a.StalledScore)
		confSum += float64(a.Confidence)
	}

	n := float64(len(analyses))
	stats.MeanScore = round2(scoreSum / n)
	stats.MeanConfidence = round2(confSum / n)

	stalled := stats.ByClassification[model.ClassConfirmedStalled] +
		stats.ByClassification[model.ClassLikelyStalled]
	stats.StalledPercentage = math.Round(float64(stalled)/n*100*100) / 100
	return stats
}
