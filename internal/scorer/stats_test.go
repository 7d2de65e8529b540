package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicworks/projectwatch/internal/model"
)

func TestStatisticsEmpty(t *testing.T) {
	stats := Statistics(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.StalledPercentage)
}

func TestStatistics(t *testing.T) {
	analyses := []model.ProjectAnalysis{
		{StalledScore: 90, Confidence: 80, Classification: model.ClassConfirmedStalled},
		{StalledScore: 70, Confidence: 60, Classification: model.ClassLikelyStalled},
		{StalledScore: 50, Confidence: 70, Classification: model.ClassAtRisk},
		{StalledScore: 10, Confidence: 90, Classification: model.ClassActive},
	}

	stats := Statistics(analyses)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.ByClassification[model.ClassConfirmedStalled])
	assert.Equal(t, 1, stats.ByClassification[model.ClassLikelyStalled])
	assert.Equal(t, 1, stats.ByClassification[model.ClassAtRisk])
	assert.Equal(t, 1, stats.ByClassification[model.ClassActive])
	assert.InDelta(t, 55.0, stats.MeanScore, 1e-9)
	assert.InDelta(t, 75.0, stats.MeanConfidence, 1e-9)
	assert.InDelta(t, 50.0, stats.StalledPercentage, 1e-9)
}

func TestStatisticsAllStalled(t *testing.T) {
	analyses := []model.ProjectAnalysis{
		{StalledScore: 95, Classification: model.ClassConfirmedStalled},
		{StalledScore: 85, Classification: model.ClassConfirmedStalled},
		{StalledScore: 65, Classification: model.ClassLikelyStalled},
	}
	stats := Statistics(analyses)
	assert.InDelta(t, 100.0, stats.StalledPercentage, 1e-9)
}
