// Package validator applies declarative source rules to raw records and
// normalizes survivors into canonical project records.
package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/model"
)

// statusAliases maps lower-cased source status values to canonical values.
// This table is an external contract: consumers filter and display by exactly
// these canonical strings. Values not in the table pass through unchanged,
// which also makes canonicalization idempotent.
var statusAliases = map[string]string{
	"on_hold":         "Stalled",
	"on hold":         "Stalled",
	"suspended":       "Stalled",
	"halted":          "Stalled",
	"delayed":         "Delayed",
	"behind_schedule": "Behind Schedule",
	"behind schedule": "Behind Schedule",
	"in_progress":     "Active",
	"in progress":     "Active",
	"ongoing":         "Active",
	"completed":       "Completed",
	"finished":        "Completed",
	"cancelled":       "Cancelled",
	"terminated":      "Cancelled",
}

// CanonicalStatus maps a source status value to its canonical form.
// Matching is case-insensitive and ignores surrounding whitespace; unmapped
// values are returned trimmed but otherwise unchanged.
func CanonicalStatus(s string) string {
	trimmed := strings.TrimSpace(s)
	if canonical, ok := statusAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseDate parses a date-bearing field value. Returns the zero time when the
// value is empty or unparseable.
func ParseDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case nil:
		return time.Time{}
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CoerceNumber converts a raw value to a float by stripping every character
// that is not a digit, a decimal point, or a minus sign. "KES 1,200,000.50"
// becomes 1200000.5. Returns 0 for values with no numeric content.
func CoerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	var b strings.Builder
	for _, r := range fmt.Sprint(v) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

// checkRules evaluates every rule in order and returns the accumulated
// failure reasons. An empty slice means the record passed.
func checkRules(raw model.RawRecord, rules []model.ValidationRule) []string {
	var reasons []string
	for _, rule := range rules {
		val, present := raw[rule.Field]

		switch rule.Kind {
		case model.RuleRequired:
			if !present || strings.TrimSpace(fmt.Sprint(val)) == "" || val == nil {
				reasons = append(reasons, rule.Message)
			}
		case model.RuleRange:
			if present && rule.Min != nil && CoerceNumber(val) < *rule.Min {
				reasons = append(reasons, rule.Message)
			}
		case model.RuleEnum:
			if present && !inSet(fmt.Sprint(val), rule.Allowed) {
				reasons = append(reasons, rule.Message)
			}
		case model.RuleFormat, model.RuleCustom:
			// Extension points; accepted but not enforced.
		}
	}
	return reasons
}

func inSet(v string, allowed []string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	for _, a := range allowed {
		if v == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// ValidateAndClean applies the source's rules to each raw record, drops
// failures, and normalizes survivors into canonical project records. Dropped
// records are reported through the returned error strings, one composite
// entry per record.
func ValidateAndClean(raws []model.RawRecord, src model.SourceDefinition, now time.Time) ([]model.ProjectRecord, []string) {
	var records []model.ProjectRecord
	var errs []string

	for i, raw := range raws {
		if reasons := checkRules(raw, src.Rules); len(reasons) > 0 {
			errs = append(errs, fmt.Sprintf("%s: %s", recordLabel(raw, src.FieldMapping, i), strings.Join(reasons, ", ")))
			continue
		}
		records = append(records, clean(raw, src, now))
	}

	if len(errs) > 0 {
		zap.L().Debug("validator: records dropped",
			zap.String("source", src.ID),
			zap.Int("dropped", len(errs)),
			zap.Int("kept", len(records)),
		)
	}
	return records, errs
}

// recordLabel identifies a record in error strings: the source's id field if
// present, otherwise its position.
func recordLabel(raw model.RawRecord, mapping map[string]string, index int) string {
	for srcField, target := range mapping {
		if target != "id" {
			continue
		}
		if v, ok := raw[srcField]; ok {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("record %d", index)
}

// clean maps a validated raw record onto the canonical field set and
// standardizes its values. Unmapped source fields are discarded.
func clean(raw model.RawRecord, src model.SourceDefinition, now time.Time) model.ProjectRecord {
	mapped := make(map[string]any, len(src.FieldMapping))
	for srcField, target := range src.FieldMapping {
		if v, ok := raw[srcField]; ok {
			mapped[target] = v
		}
	}

	rec := model.ProjectRecord{
		ID:                 text(mapped["id"]),
		Name:               text(mapped["name"]),
		County:             text(mapped["county"]),
		Constituency:       text(mapped["constituency"]),
		Sector:             text(mapped["sector"]),
		Budget:             CoerceNumber(mapped["budget"]),
		Spent:              CoerceNumber(mapped["spent"]),
		Status:             CanonicalStatus(text(mapped["status"])),
		StartDate:          ParseDate(mapped["start_date"]),
		ExpectedCompletion: ParseDate(mapped["expected_completion"]),
		LastUpdate:         ParseDate(mapped["last_update"]),
		Contractor:         text(mapped["contractor"]),
		Supervisor:         text(mapped["supervisor"]),
		Issues:             issueTags(mapped["issues"]),
		Provenance: model.Provenance{
			SourceID:    src.ID,
			TrustScore:  src.TrustScore,
			ExtractedAt: now,
		},
		Raw: raw,
	}

	if lat, lng, ok := coordinates(mapped); ok {
		rec.Location = &model.GeoPoint{Lat: lat, Lng: lng}
	}
	return rec
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// issueTags normalizes the issues field: accepts a list or a comma-separated
// string, lower-cases tags, and drops empties.
func issueTags(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		parts = t
	case []any:
		for _, e := range t {
			parts = append(parts, fmt.Sprint(e))
		}
	default:
		parts = strings.Split(fmt.Sprint(v), ",")
	}

	var tags []string
	for _, p := range parts {
		if tag := strings.ToLower(strings.TrimSpace(p)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func coordinates(mapped map[string]any) (lat, lng float64, ok bool) {
	latV, hasLat := mapped["latitude"]
	lngV, hasLng := mapped["longitude"]
	if !hasLat || !hasLng {
		return 0, 0, false
	}
	lat = CoerceNumber(latV)
	lng = CoerceNumber(lngV)
	if lat == 0 && lng == 0 {
		return 0, 0, false
	}
	return lat, lng, true
}
