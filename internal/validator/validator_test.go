package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/projectwatch/internal/model"
)

func TestCanonicalStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"on_hold", "Stalled"},
		{"on hold", "Stalled"},
		{"ON HOLD", "Stalled"},
		{"  suspended  ", "Stalled"},
		{"halted", "Stalled"},
		{"delayed", "Delayed"},
		{"behind_schedule", "Behind Schedule"},
		{"behind schedule", "Behind Schedule"},
		{"in_progress", "Active"},
		{"in progress", "Active"},
		{"ongoing", "Active"},
		{"completed", "Completed"},
		{"finished", "Completed"},
		{"cancelled", "Cancelled"},
		{"terminated", "Cancelled"},
		{"mystery", "mystery"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalStatus(tt.in))
		})
	}
}

func TestCanonicalStatusIdempotent(t *testing.T) {
	inputs := []string{
		"on_hold", "suspended", "delayed", "behind schedule", "ongoing",
		"finished", "terminated", "mystery", "Stalled", "Active", "",
	}
	for _, in := range inputs {
		once := CanonicalStatus(in)
		assert.Equal(t, once, CanonicalStatus(once), "input %q", in)
	}
}

func TestCoerceNumber(t *testing.T) {
	assert.Equal(t, 1200000.5, CoerceNumber("KES 1,200,000.50"))
	assert.Equal(t, -300.0, CoerceNumber("-300"))
	assert.Equal(t, 42.0, CoerceNumber(42))
	assert.Equal(t, 3.5, CoerceNumber(3.5))
	assert.Equal(t, 0.0, CoerceNumber("n/a"))
	assert.Equal(t, 0.0, CoerceNumber(nil))
}

func TestParseDate(t *testing.T) {
	got := ParseDate("2024-03-15")
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())

	assert.False(t, ParseDate("2024-03-15T10:00:00Z").IsZero())
	assert.True(t, ParseDate("").IsZero())
	assert.True(t, ParseDate("not a date").IsZero())
	assert.True(t, ParseDate(nil).IsZero())
}

func testSource() model.SourceDefinition {
	min := 0.0
	return model.SourceDefinition{
		ID:         "test-src",
		TrustScore: 75,
		FieldMapping: map[string]string{
			"pid":        "id",
			"title":      "name",
			"county":     "county",
			"budget":     "budget",
			"spent":      "spent",
			"state":      "status",
			"updated":    "last_update",
			"due":        "expected_completion",
			"contractor": "contractor",
			"flags":      "issues",
			"lat":        "latitude",
			"lng":        "longitude",
		},
		Rules: []model.ValidationRule{
			{Field: "pid", Kind: model.RuleRequired, Message: "pid is required"},
			{Field: "budget", Kind: model.RuleRange, Min: &min, Message: "budget must be non-negative"},
			{Field: "state", Kind: model.RuleEnum, Allowed: []string{"ongoing", "on_hold", "completed"}, Message: "unknown state"},
		},
	}
}

func TestValidateAndCleanHappyPath(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	raws := []model.RawRecord{{
		"pid":        "PRJ-001",
		"title":      "  Makutano Bridge  ",
		"county":     "Meru",
		"budget":     "KES 4,500,000",
		"spent":      "1,200,000",
		"state":      "on_hold",
		"updated":    "2026-05-01",
		"due":        "2026-12-31",
		"contractor": " Acme Ltd ",
		"flags":      "Contractor_Dispute, Audit_Finding",
		"lat":        "0.05",
		"lng":        "37.65",
		"internal":   "should be discarded",
	}}

	records, errs := ValidateAndClean(raws, testSource(), now)
	require.Empty(t, errs)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "PRJ-001", rec.ID)
	assert.Equal(t, "Makutano Bridge", rec.Name)
	assert.Equal(t, 4500000.0, rec.Budget)
	assert.Equal(t, 1200000.0, rec.Spent)
	assert.Equal(t, "Stalled", rec.Status)
	assert.Equal(t, "Acme Ltd", rec.Contractor)
	assert.Equal(t, []string{"contractor_dispute", "audit_finding"}, rec.Issues)
	assert.Equal(t, time.May, rec.LastUpdate.Month())
	require.NotNil(t, rec.Location)
	assert.InDelta(t, 0.05, rec.Location.Lat, 1e-9)

	// Provenance stamped from the source definition.
	assert.Equal(t, "test-src", rec.Provenance.SourceID)
	assert.Equal(t, 75, rec.Provenance.TrustScore)
	assert.Equal(t, now, rec.Provenance.ExtractedAt)

	// Unmapped fields discarded from the canonical record but kept in Raw.
	assert.Equal(t, "should be discarded", rec.Raw["internal"])
}

func TestValidateAndCleanDropsFailingRecords(t *testing.T) {
	now := time.Now()
	raws := []model.RawRecord{
		{"title": "No ID", "state": "ongoing"},
		{"pid": "PRJ-002", "title": "Good", "state": "ongoing"},
		{"pid": "PRJ-003", "title": "Bad state", "state": "vanished", "budget": "-5"},
	}

	records, errs := ValidateAndClean(raws, testSource(), now)
	require.Len(t, records, 1)
	assert.Equal(t, "PRJ-002", records[0].ID)

	require.Len(t, errs, 2)
	assert.Equal(t, "record 0: pid is required", errs[0])
	assert.Equal(t, "PRJ-003: budget must be non-negative, unknown state", errs[1])
}

func TestValidateAndCleanFormatRuleAccepted(t *testing.T) {
	src := testSource()
	src.Rules = append(src.Rules, model.ValidationRule{
		Field: "pid", Kind: model.RuleFormat, Pattern: `^PRJ-\d+$`, Message: "bad format",
	})
	records, errs := ValidateAndClean([]model.RawRecord{
		{"pid": "anything-goes", "state": "ongoing"},
	}, src, time.Now())
	assert.Empty(t, errs)
	assert.Len(t, records, 1)
}

func TestIssueTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, issueTags([]any{"A", " b "}))
	assert.Equal(t, []string{"dispute"}, issueTags("dispute"))
	assert.Nil(t, issueTags(nil))
	assert.Nil(t, issueTags(""))
}
