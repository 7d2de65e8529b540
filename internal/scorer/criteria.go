// Package scorer implements the weighted multi-criteria stalled-project
// scoring model.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/civicworks/projectwatch/internal/model"
)

// CriterionKind enumerates the scoring criteria. The evaluate switch below is
// exhaustive over these values, so adding a criterion without a formula is a
// compile-visible hole rather than a silent runtime default.
type CriterionKind int

const (
	KindTimelineOverrun CriterionKind = iota
	KindBudgetOverrun
	KindNoProgressUpdates
	KindContractorDisputes
	KindAuditFindings
)

// Criterion is one weighted rule in the scoring model. Weights need not sum
// to 1; the aggregate normalizes by the weight sum.
type Criterion struct {
	Kind        CriterionKind
	ID          string
	Name        string
	Description string
	Weight      float64
	Threshold   float64
}

// daysPerMonth converts overdue days to months. Mean Gregorian month length;
// downstream classification cutoffs were tuned against this exact constant.
const daysPerMonth = 30.44

// DefaultCriteria returns the standard five-criterion model.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{
			Kind:        KindTimelineOverrun,
			ID:          "timeline_overrun",
			Name:        "Timeline Overrun",
			Description: "Project is past its expected completion date",
			Weight:      0.30,
			Threshold:   6, // months overdue for a full score
		},
		{
			Kind:        KindBudgetOverrun,
			ID:          "budget_overrun",
			Name:        "Budget Overrun",
			Description: "Spending exceeds the approved budget",
			Weight:      0.25,
			Threshold:   0.20, // overrun ratio for a full score
		},
		{
			Kind:        KindNoProgressUpdates,
			ID:          "no_progress_updates",
			Name:        "No Progress Updates",
			Description: "No status update has been recorded recently",
			Weight:      0.20,
			Threshold:   90, // days since last update for a full score
		},
		{
			Kind:        KindContractorDisputes,
			ID:          "contractor_disputes",
			Name:        "Contractor Disputes",
			Description: "Record carries contractor dispute or litigation tags",
			Weight:      0.15,
		},
		{
			Kind:        KindAuditFindings,
			ID:          "audit_findings",
			Name:        "Audit Findings",
			Description: "Record carries audit or irregularity tags",
			Weight:      0.10,
		},
	}
}

// Tuning overrides the default weights and thresholds. Zero fields keep the
// default value, so partial overrides compose with DefaultCriteria.
type Tuning struct {
	TimelineWeight          float64
	BudgetWeight            float64
	ProgressWeight          float64
	DisputeWeight           float64
	AuditWeight             float64
	TimelineThresholdMonths float64
	BudgetThresholdRatio    float64
	ProgressThresholdDays   float64
}

// TunedCriteria returns the standard model with the given overrides applied.
func TunedCriteria(t Tuning) []Criterion {
	criteria := DefaultCriteria()
	override := func(c *Criterion, weight, threshold float64) {
		if weight > 0 {
			c.Weight = weight
		}
		if threshold > 0 {
			c.Threshold = threshold
		}
	}
	for i := range criteria {
		switch criteria[i].Kind {
		case KindTimelineOverrun:
			override(&criteria[i], t.TimelineWeight, t.TimelineThresholdMonths)
		case KindBudgetOverrun:
			override(&criteria[i], t.BudgetWeight, t.BudgetThresholdRatio)
		case KindNoProgressUpdates:
			override(&criteria[i], t.ProgressWeight, t.ProgressThresholdDays)
		case KindContractorDisputes:
			override(&criteria[i], t.DisputeWeight, 0)
		case KindAuditFindings:
			override(&criteria[i], t.AuditWeight, 0)
		}
	}
	return criteria
}

var (
	disputeMarkers = []string{"dispute", "litigation", "arbitration"}
	auditMarkers   = []string{"audit", "irregularity", "misappropriation"}
)

// evaluate scores one criterion against one record. Pure function of the
// record, the criterion, and the reference time.
func evaluate(c Criterion, rec model.ProjectRecord, now time.Time) (model.CriterionResult, error) {
	result := model.CriterionResult{
		CriterionID: c.ID,
		Name:        c.Name,
		Weight:      c.Weight,
	}

	switch c.Kind {
	case KindTimelineOverrun:
		if rec.ExpectedCompletion.IsZero() {
			result.Explanation = "no expected completion date on record"
			break
		}
		monthsOverdue := math.Max(0, now.Sub(rec.ExpectedCompletion).Hours()/24/daysPerMonth)
		result.Score = ramp(monthsOverdue, c.Threshold)
		result.Explanation = fmt.Sprintf("%.1f months past expected completion", monthsOverdue)
		result.Evidence = []model.Evidence{
			{Type: "months_overdue", Value: round1(monthsOverdue)},
			{Type: "expected_completion", Value: rec.ExpectedCompletion.Format("2006-01-02")},
		}

	case KindBudgetOverrun:
		if rec.Budget <= 0 {
			result.Explanation = "no budget on record"
			break
		}
		ratio := (rec.Spent - rec.Budget) / rec.Budget
		result.Score = ramp(math.Max(ratio, 0), c.Threshold)
		result.Explanation = fmt.Sprintf("spending at %.0f%% of budget", rec.Spent/rec.Budget*100)
		result.Evidence = []model.Evidence{
			{Type: "overrun_ratio", Value: round2(ratio)},
			{Type: "budget", Value: rec.Budget},
			{Type: "spent", Value: rec.Spent},
		}

	case KindNoProgressUpdates:
		if rec.LastUpdate.IsZero() {
			result.Explanation = "no last-update date on record"
			break
		}
		daysSince := math.Max(0, now.Sub(rec.LastUpdate).Hours()/24)
		result.Score = ramp(daysSince, c.Threshold)
		result.Explanation = fmt.Sprintf("%.0f days since last update", daysSince)
		result.Evidence = []model.Evidence{
			{Type: "days_since_update", Value: math.Round(daysSince)},
			{Type: "last_update", Value: rec.LastUpdate.Format("2006-01-02")},
		}

	case KindContractorDisputes:
		matched := matchTags(rec.Issues, disputeMarkers)
		if len(matched) > 0 {
			result.Score = 1
			result.Explanation = "contractor dispute tags present"
			for _, tag := range matched {
				result.Evidence = append(result.Evidence, model.Evidence{Type: "dispute", Value: tag})
			}
		} else {
			result.Explanation = "no dispute tags"
		}

	case KindAuditFindings:
		matched := matchTags(rec.Issues, auditMarkers)
		if len(matched) > 0 {
			result.Score = 1
			result.Explanation = "audit or irregularity tags present"
			for _, tag := range matched {
				result.Evidence = append(result.Evidence, model.Evidence{Type: "finding", Value: tag})
			}
		} else {
			result.Explanation = "no audit tags"
		}

	default:
		return result, eris.Errorf("scorer: unknown criterion kind %d", c.Kind)
	}

	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) {
		return result, eris.Errorf("scorer: criterion %s produced non-finite score for project %s", c.ID, rec.ID)
	}

	result.Score = clamp01(result.Score)
	result.Weighted = result.Score * c.Weight
	return result, nil
}

// ramp is the shared score curve: linear below the threshold, flat at 1
// above it. Kept exactly as specified; the classification cutoffs were tuned
// against this curve.
func ramp(value, threshold float64) float64 {
	if threshold <= 0 {
		if value > 0 {
			return 1
		}
		return 0
	}
	if value > threshold {
		return 1
	}
	return clamp01(value / threshold)
}

func matchTags(tags, markers []string) []string {
	var matched []string
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
