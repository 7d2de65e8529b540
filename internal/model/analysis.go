package model

import "time"

// ExtractionResult is the per-source outcome of one pipeline run.
// Results are appended to the run history and never mutated.
type ExtractionResult struct {
	RunID            string          `json:"run_id"`
	SourceID         string          `json:"source_id"`
	Success          bool            `json:"success"`
	RecordsExtracted int             `json:"records_extracted"`
	RecordsValidated int             `json:"records_validated"`
	Errors           []string        `json:"errors,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Records          []ProjectRecord `json:"records,omitempty"`
	ExtractedAt      time.Time       `json:"extracted_at"`
	NextScheduled    time.Time       `json:"next_scheduled,omitzero"`
}

// Evidence is one structured note backing a criterion score.
type Evidence struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// CriterionResult is the outcome of evaluating one stalled criterion
// against one project.
type CriterionResult struct {
	CriterionID string     `json:"criterion_id"`
	Name        string     `json:"name"`
	Score       float64    `json:"score"`
	Weight      float64    `json:"weight"`
	Weighted    float64    `json:"weighted"`
	Explanation string     `json:"explanation"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// Classification buckets a stalled score.
type Classification string

const (
	ClassConfirmedStalled Classification = "Confirmed Stalled"
	ClassLikelyStalled    Classification = "Likely Stalled"
	ClassAtRisk           Classification = "At Risk"
	ClassActive           Classification = "Active"
)

// ProjectAnalysis is the scoring engine's verdict for one project.
type ProjectAnalysis struct {
	ProjectID       string            `json:"project_id"`
	ProjectName     string            `json:"project_name"`
	StalledScore    int               `json:"stalled_score"`
	Classification  Classification    `json:"classification"`
	Criteria        []CriterionResult `json:"criteria"`
	Recommendations []string          `json:"recommendations"`
	AnalyzedAt      time.Time         `json:"analyzed_at"`
	Confidence      int               `json:"confidence"`
}

// Stats aggregates a batch of analyses.
type Stats struct {
	Total             int                    `json:"total"`
	ByClassification  map[Classification]int `json:"by_classification"`
	MeanScore         float64                `json:"mean_score"`
	MeanConfidence    float64                `json:"mean_confidence"`
	StalledPercentage float64                `json:"stalled_percentage"`
}

// Trend describes the score movement of one project across recent analyses.
type Trend string

const (
	TrendDeteriorating    Trend = "deteriorating"
	TrendImproving        Trend = "improving"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)
