// Package model defines the canonical data shapes shared across the
// extraction pipeline and the scoring engine.
package model

// SourceCategory classifies who operates an upstream feed.
type SourceCategory string

const (
	CategoryGovernment   SourceCategory = "government"
	CategoryPrivate      SourceCategory = "private"
	CategoryNGO          SourceCategory = "ngo"
	CategoryMedia        SourceCategory = "media"
	CategoryCrowdsourced SourceCategory = "crowdsourced"
)

// ExtractionStrategy selects which fetcher a source is dispatched to.
type ExtractionStrategy string

const (
	StrategyAPI      ExtractionStrategy = "api"
	StrategyScraping ExtractionStrategy = "scraping"
	StrategyFile     ExtractionStrategy = "file_upload"
	StrategyManual   ExtractionStrategy = "manual"
)

// AuthMethod describes how a source authenticates requests.
type AuthMethod string

const (
	AuthAPIKey AuthMethod = "api_key"
	AuthOAuth  AuthMethod = "oauth"
	AuthBasic  AuthMethod = "basic"
	AuthNone   AuthMethod = "none"
)

// UpdateFrequency is the expected cadence of a source's data.
type UpdateFrequency string

const (
	FrequencyRealTime UpdateFrequency = "real-time"
	FrequencyHourly   UpdateFrequency = "hourly"
	FrequencyDaily    UpdateFrequency = "daily"
	FrequencyWeekly   UpdateFrequency = "weekly"
	FrequencyMonthly  UpdateFrequency = "monthly"
)

// SourceStatus is the operational state of a configured source.
type SourceStatus string

const (
	SourceActive   SourceStatus = "active"
	SourceInactive SourceStatus = "inactive"
	SourceError    SourceStatus = "error"
	SourcePending  SourceStatus = "pending"
)

// RuleKind is the type of a validation rule.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleFormat   RuleKind = "format"
	RuleRange    RuleKind = "range"
	RuleEnum     RuleKind = "enum"
	RuleCustom   RuleKind = "custom"
)

// ValidationRule is a declarative per-record check evaluated against raw
// source fields before mapping.
type ValidationRule struct {
	Field   string   `json:"field" yaml:"field"`
	Kind    RuleKind `json:"kind" yaml:"kind"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Allowed []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Message string   `json:"message" yaml:"message"`
}

// SourceDefinition describes one configured upstream feed. Definitions are
// created at configuration time and are read-only during a run.
type SourceDefinition struct {
	ID           string             `json:"id" yaml:"id"`
	Name         string             `json:"name" yaml:"name"`
	Category     SourceCategory     `json:"category" yaml:"category"`
	TrustScore   int                `json:"trust_score" yaml:"trust_score"`
	Strategy     ExtractionStrategy `json:"strategy" yaml:"strategy"`
	Auth         AuthMethod         `json:"auth" yaml:"auth"`
	Frequency    UpdateFrequency    `json:"frequency" yaml:"frequency"`
	Endpoint     string             `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	FieldMapping map[string]string  `json:"field_mapping" yaml:"field_mapping"`
	Rules        []ValidationRule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Status       SourceStatus       `json:"status" yaml:"status"`
}
