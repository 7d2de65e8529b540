package model

import "time"

// RawRecord is an untyped key-value record as returned by a fetcher,
// before validation and field mapping.
type RawRecord map[string]any

// GeoPoint holds WGS84 coordinates for a project site.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Provenance records where a canonical record came from.
type Provenance struct {
	SourceID    string    `json:"source_id"`
	TrustScore  int       `json:"trust_score"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// ProjectRecord is a project observation normalized to the shared field set.
// Records are created once during normalization and never mutated.
type ProjectRecord struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	County             string     `json:"county,omitempty"`
	Constituency       string     `json:"constituency,omitempty"`
	Sector             string     `json:"sector,omitempty"`
	Budget             float64    `json:"budget"`
	Spent              float64    `json:"spent"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"start_date,omitzero"`
	ExpectedCompletion time.Time  `json:"expected_completion,omitzero"`
	LastUpdate         time.Time  `json:"last_update,omitzero"`
	Contractor         string     `json:"contractor,omitempty"`
	Supervisor         string     `json:"supervisor,omitempty"`
	Location           *GeoPoint  `json:"location,omitempty"`
	Issues             []string   `json:"issues,omitempty"`
	Provenance         Provenance `json:"provenance"`

	// Raw keeps the original payload for audit.
	Raw RawRecord `json:"raw,omitempty"`
}
