// Package fetcher provides one raw-record fetcher per extraction strategy.
package fetcher

import (
	"context"

	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/secrets"
)

// Fetcher retrieves raw records for one source. Implementations must be safe
// for concurrent use; each call is independent.
type Fetcher interface {
	Fetch(ctx context.Context, src model.SourceDefinition) ([]model.RawRecord, error)
}

// Registry maps extraction strategies to their fetchers.
type Registry map[model.ExtractionStrategy]Fetcher

// Lookup returns the fetcher for the given strategy.
func (r Registry) Lookup(strategy model.ExtractionStrategy) (Fetcher, bool) {
	f, ok := r[strategy]
	return f, ok
}

// DefaultRegistry wires the standard fetcher per strategy.
func DefaultRegistry(sec secrets.Source, manualDir string) Registry {
	return Registry{
		model.StrategyAPI:      NewAPIFetcher(sec, APIOptions{}),
		model.StrategyScraping: NewScrapeFetcher(ScrapeOptions{}),
		model.StrategyFile:     NewFileFetcher(FileOptions{}),
		model.StrategyManual:   NewManualFetcher(manualDir),
	}
}
