package scorer

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/model"
)

// historyDepth bounds the per-project analysis history kept for trends.
const historyDepth = 10

// recommendThreshold is the raw score above which a criterion contributes
// its recommendation bundle.
const recommendThreshold = 0.7

// evidenceCap normalizes the evidence-count confidence factor.
const evidenceCap = 10

var recommendations = map[CriterionKind][]string{
	KindTimelineOverrun: {
		"Immediate project review and timeline reassessment required",
		"Consider appointing a project recovery manager",
	},
	KindBudgetOverrun: {
		"Financial audit and budget reallocation needed",
		"Implement stricter financial controls",
	},
	KindNoProgressUpdates: {
		"Establish mandatory weekly progress reporting",
		"Deploy field monitoring team",
	},
	KindContractorDisputes: {
		"Initiate dispute resolution process",
		"Consider alternative contractors if necessary",
	},
	KindAuditFindings: {
		"Address audit findings immediately",
		"Implement corrective measures",
	},
}

var escalationRecommendations = []string{
	"Escalate to relevant authorities for intervention",
	"Increase public transparency and reporting",
}

const monitorRecommendation = "Continue regular monitoring"

// Engine evaluates the configured criteria against project records and keeps
// a bounded per-project history for trend derivation. One Engine is
// constructed per process and passed explicitly to callers.
type Engine struct {
	criteria []Criterion
	now      func() time.Time

	mu      sync.Mutex
	history map[string][]model.ProjectAnalysis
}

// NewEngine creates an Engine with the given criteria.
func NewEngine(criteria []Criterion) *Engine {
	return &Engine{
		criteria: criteria,
		now:      time.Now,
		history:  make(map[string][]model.ProjectAnalysis),
	}
}

// Analyze scores each project and returns the analyses sorted descending by
// stalled score. A project whose evaluation fails is logged and skipped; it
// never aborts the batch.
func (e *Engine) Analyze(projects []model.ProjectRecord) []model.ProjectAnalysis {
	now := e.now()

	analyses := make([]model.ProjectAnalysis, 0, len(projects))
	for _, rec := range projects {
		analysis, err := e.analyzeOne(rec, now)
		if err != nil {
			zap.L().Warn("scorer: skipping project",
				zap.String("project_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		analyses = append(analyses, analysis)
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].StalledScore > analyses[j].StalledScore
	})

	e.mu.Lock()
	for _, a := range analyses {
		h := append(e.history[a.ProjectID], a)
		if len(h) > historyDepth {
			h = h[len(h)-historyDepth:]
		}
		e.history[a.ProjectID] = h
	}
	e.mu.Unlock()

	zap.L().Info("scorer: analysis complete",
		zap.Int("projects", len(projects)),
		zap.Int("analyzed", len(analyses)),
	)
	return analyses
}

func (e *Engine) analyzeOne(rec model.ProjectRecord, now time.Time) (model.ProjectAnalysis, error) {
	results := make([]model.CriterionResult, 0, len(e.criteria))
	var weightedSum, weightSum float64
	evidenceCount := 0

	for _, c := range e.criteria {
		result, err := evaluate(c, rec, now)
		if err != nil {
			return model.ProjectAnalysis{}, err
		}
		results = append(results, result)
		weightedSum += result.Weighted
		weightSum += c.Weight
		evidenceCount += len(result.Evidence)
	}

	score := 0
	if weightSum > 0 {
		score = int(math.Round(weightedSum / weightSum * 100))
	}

	return model.ProjectAnalysis{
		ProjectID:       rec.ID,
		ProjectName:     rec.Name,
		StalledScore:    score,
		Classification:  Classify(score),
		Criteria:        results,
		Recommendations: e.recommend(results),
		AnalyzedAt:      now,
		Confidence:      confidence(rec, evidenceCount, now),
	}, nil
}

// Classify buckets a stalled score. Cutoffs are inclusive at the lower edge.
func Classify(score int) model.Classification {
	switch {
	case score >= 80:
		return model.ClassConfirmedStalled
	case score >= 60:
		return model.ClassLikelyStalled
	case score >= 40:
		return model.ClassAtRisk
	default:
		return model.ClassActive
	}
}

// recommend assembles the recommendation list: per-criterion bundles for
// every criterion scoring above the threshold, then the escalation lines, or
// the monitoring line alone when nothing fires. First occurrence wins on
// duplicates.
func (e *Engine) recommend(results []model.CriterionResult) []string {
	var recs []string
	for i, r := range results {
		if r.Score > recommendThreshold {
			recs = append(recs, recommendations[e.criteria[i].Kind]...)
		}
	}
	if len(recs) == 0 {
		return []string{monitorRecommendation}
	}
	recs = append(recs, escalationRecommendations...)
	return dedupe(recs)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// confidence blends source trust, evidence volume, and data freshness into a
// 0-100 measure independent of the stalled score itself.
func confidence(rec model.ProjectRecord, evidenceCount int, now time.Time) int {
	trust := clamp01(float64(rec.Provenance.TrustScore) / 100)
	volume := clamp01(float64(evidenceCount) / evidenceCap)

	freshness := 0.0
	if !rec.LastUpdate.IsZero() {
		daysSince := math.Max(0, now.Sub(rec.LastUpdate).Hours()/24)
		freshness = math.Max(0, 1-daysSince/30)
	}

	return int(math.Round((trust + volume + freshness) / 3 * 100))
}

// History returns the retained analyses for a project, oldest first.
func (e *Engine) History(projectID string) []model.ProjectAnalysis {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.history[projectID]
	out := make([]model.ProjectAnalysis, len(h))
	copy(out, h)
	return out
}

// Trend derives the score movement for a project from its retained history.
func (e *Engine) Trend(projectID string) model.Trend {
	e.mu.Lock()
	h := e.history[projectID]
	scores := make([]int, len(h))
	for i, a := range h {
		scores[i] = a.StalledScore
	}
	e.mu.Unlock()
	return TrendFromScores(scores)
}

// TrendFromScores compares the two most recent scores of an oldest-first
// series: a rise above 5 points is deteriorating, a drop below -5 improving.
func TrendFromScores(scores []int) model.Trend {
	if len(scores) < 2 {
		return model.TrendInsufficientData
	}
	diff := scores[len(scores)-1] - scores[len(scores)-2]
	switch {
	case diff > 5:
		return model.TrendDeteriorating
	case diff < -5:
		return model.TrendImproving
	default:
		return model.TrendStable
	}
}
