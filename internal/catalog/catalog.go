// Package catalog holds the static registry of configured data sources.
package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/civicworks/projectwatch/internal/model"
)

// Catalog is an immutable, ordered registry of source definitions.
// Reconfiguration means building a new Catalog, never editing entries in
// place, so a run always sees a consistent set of definitions.
type Catalog struct {
	sources []model.SourceDefinition
	byID    map[string]int
}

// New builds a catalog from the given definitions, preserving order.
// Duplicate ids are rejected.
func New(sources []model.SourceDefinition) (*Catalog, error) {
	byID := make(map[string]int, len(sources))
	for i, s := range sources {
		if s.ID == "" {
			return nil, eris.Errorf("catalog: source at position %d has no id", i)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, eris.Errorf("catalog: duplicate source id %q", s.ID)
		}
		if s.TrustScore < 0 || s.TrustScore > 100 {
			return nil, eris.Errorf("catalog: source %q trust score %d out of range", s.ID, s.TrustScore)
		}
		byID[s.ID] = i
	}
	cp := make([]model.SourceDefinition, len(sources))
	copy(cp, sources)
	return &Catalog{sources: cp, byID: byID}, nil
}

// Get returns the definition for the given source id.
func (c *Catalog) Get(id string) (model.SourceDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.SourceDefinition{}, false
	}
	return c.sources[i], true
}

// All returns the definitions in catalog order. The returned slice is a copy.
func (c *Catalog) All() []model.SourceDefinition {
	out := make([]model.SourceDefinition, len(c.sources))
	copy(out, c.sources)
	return out
}

// Len returns the number of configured sources.
func (c *Catalog) Len() int { return len(c.sources) }

type catalogFile struct {
	Sources []model.SourceDefinition `yaml:"sources"`
}

// LoadFile reads source definitions from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}
	if len(f.Sources) == 0 {
		return nil, eris.Errorf("catalog: %s defines no sources", path)
	}

	cat, err := New(f.Sources)
	if err != nil {
		return nil, err
	}
	zap.L().Info("catalog: loaded",
		zap.String("path", path),
		zap.Int("sources", cat.Len()),
	)
	return cat, nil
}

// Default returns the built-in catalog used when no catalog file is
// configured. Trust scores are static per source.
func Default() *Catalog {
	required := func(field, msg string) model.ValidationRule {
		return model.ValidationRule{Field: field, Kind: model.RuleRequired, Message: msg}
	}
	min := func(v float64) *float64 { return &v }

	cat, err := New([]model.SourceDefinition{
		{
			ID:         "national-pims",
			Name:       "National Projects Information System",
			Category:   model.CategoryGovernment,
			TrustScore: 85,
			Strategy:   model.StrategyAPI,
			Auth:       model.AuthAPIKey,
			Frequency:  model.FrequencyDaily,
			FieldMapping: map[string]string{
				"project_id":      "id",
				"project_name":    "name",
				"county":          "county",
				"constituency":    "constituency",
				"sector":          "sector",
				"total_budget":    "budget",
				"amount_spent":    "spent",
				"project_status":  "status",
				"commenced_on":    "start_date",
				"completion_date": "expected_completion",
				"last_updated":    "last_update",
				"contractor_name": "contractor",
				"supervisor_name": "supervisor",
				"flags":           "issues",
			},
			Rules: []model.ValidationRule{
				required("project_id", "project id is required"),
				required("project_name", "project name is required"),
				{Field: "total_budget", Kind: model.RuleRange, Min: min(0), Message: "budget must be non-negative"},
			},
			Status: model.SourceActive,
		},
		{
			ID:         "county-bulletins",
			Name:       "County Development Bulletins",
			Category:   model.CategoryGovernment,
			TrustScore: 70,
			Strategy:   model.StrategyScraping,
			Auth:       model.AuthNone,
			Frequency:  model.FrequencyWeekly,
			FieldMapping: map[string]string{
				"Project":    "name",
				"Ref":        "id",
				"County":     "county",
				"Budget":     "budget",
				"Spent":      "spent",
				"Status":     "status",
				"Updated":    "last_update",
				"Contractor": "contractor",
			},
			Rules: []model.ValidationRule{
				required("Ref", "project reference is required"),
				required("Project", "project name is required"),
			},
			Status: model.SourceActive,
		},
		{
			ID:         "treasury-register",
			Name:       "Treasury Capital Projects Register",
			Category:   model.CategoryGovernment,
			TrustScore: 90,
			Strategy:   model.StrategyFile,
			Auth:       model.AuthNone,
			Frequency:  model.FrequencyMonthly,
			FieldMapping: map[string]string{
				"ref_no":       "id",
				"title":        "name",
				"county":       "county",
				"sector":       "sector",
				"budget_kes":   "budget",
				"absorbed_kes": "spent",
				"state":        "status",
				"start":        "start_date",
				"target_end":   "expected_completion",
				"as_of":        "last_update",
			},
			Rules: []model.ValidationRule{
				required("ref_no", "reference number is required"),
				{Field: "state", Kind: model.RuleEnum, Allowed: []string{
					"ongoing", "completed", "stalled", "on_hold", "cancelled", "delayed",
				}, Message: "unknown project state"},
			},
			Status: model.SourceActive,
		},
		{
			ID:         "citizen-reports",
			Name:       "Citizen Field Reports",
			Category:   model.CategoryCrowdsourced,
			TrustScore: 45,
			Strategy:   model.StrategyManual,
			Auth:       model.AuthNone,
			Frequency:  model.FrequencyRealTime,
			FieldMapping: map[string]string{
				"project_ref": "id",
				"name":        "name",
				"county":      "county",
				"status":      "status",
				"observed_at": "last_update",
				"issues":      "issues",
			},
			Rules: []model.ValidationRule{
				required("project_ref", "project reference is required"),
			},
			Status: model.SourceActive,
		},
	})
	if err != nil {
		// Static definitions above; New can only fail on a programming error.
		panic(err)
	}
	return cat
}
