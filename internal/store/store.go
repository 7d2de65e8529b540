// Package store persists extraction results and project analyses.
package store

import (
	"context"

	"github.com/civicworks/projectwatch/internal/model"
)

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Classification model.Classification `json:"classification,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the monitoring pipeline.
type Store interface {
	// Extraction runs
	SaveExtractionResults(ctx context.Context, results []model.ExtractionResult) error
	ListExtractionResults(ctx context.Context, runID string) ([]model.ExtractionResult, error)

	// Analyses
	SaveAnalyses(ctx context.Context, analyses []model.ProjectAnalysis) error
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.ProjectAnalysis, error)
	AnalysisHistory(ctx context.Context, projectID string, limit int) ([]model.ProjectAnalysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
