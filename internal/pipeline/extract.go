// Package pipeline orchestrates extraction runs across the source catalog.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicworks/projectwatch/internal/catalog"
	"github.com/civicworks/projectwatch/internal/fetcher"
	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/validator"
)

// Options configures an Extractor.
type Options struct {
	// Workers caps how many sources are fetched concurrently.
	Workers int
	// Timeout bounds a single source's fetch plus validation.
	Timeout time.Duration
}

// Extractor runs the full extraction pipeline: every active source is
// fetched, validated, and normalized into canonical project records. A
// failing source never aborts the run; it yields a failed result and the
// rest of the batch proceeds.
type Extractor struct {
	catalog  *catalog.Catalog
	fetchers fetcher.Registry
	opts     Options
	now      func() time.Time
}

// NewExtractor wires an extractor over the given catalog and fetchers.
func NewExtractor(cat *catalog.Catalog, fetchers fetcher.Registry, opts Options) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Extractor{
		catalog:  cat,
		fetchers: fetchers,
		opts:     opts,
		now:      time.Now,
	}
}

// RunAll extracts every source in the catalog concurrently and returns one
// result per source, in catalog order.
func (e *Extractor) RunAll(ctx context.Context) []model.ExtractionResult {
	runID := uuid.NewString()
	sources := e.catalog.All()
	results := make([]model.ExtractionResult, len(sources))

	zap.L().Info("pipeline: run started",
		zap.String("run_id", runID),
		zap.Int("sources", len(sources)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = e.runOne(gctx, runID, src)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the results

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	zap.L().Info("pipeline: run finished",
		zap.String("run_id", runID),
		zap.Int("succeeded", ok),
		zap.Int("failed", len(results)-ok),
	)
	return results
}

// RunSource extracts a single source by id.
func (e *Extractor) RunSource(ctx context.Context, sourceID string) (model.ExtractionResult, error) {
	src, ok := e.catalog.Get(sourceID)
	if !ok {
		return model.ExtractionResult{}, eris.Errorf("pipeline: unknown source %q", sourceID)
	}
	return e.runOne(ctx, uuid.NewString(), src), nil
}

func (e *Extractor) runOne(ctx context.Context, runID string, src model.SourceDefinition) model.ExtractionResult {
	now := e.now()
	res := model.ExtractionResult{
		RunID:         runID,
		SourceID:      src.ID,
		ExtractedAt:   now,
		NextScheduled: nextScheduled(now, src.Frequency),
	}

	if src.Status != model.SourceActive {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("source is %s, skipping extraction", src.Status))
		return res
	}

	f, ok := e.fetchers.Lookup(src.Strategy)
	if !ok {
		res.Errors = append(res.Errors,
			fmt.Sprintf("no fetcher registered for strategy %q", src.Strategy))
		return res
	}

	fctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	raws, err := f.Fetch(fctx, src)
	if err != nil {
		zap.L().Warn("pipeline: source failed",
			zap.String("run_id", runID),
			zap.String("source", src.ID),
			zap.Error(err),
		)
		res.Errors = append(res.Errors, eris.ToString(err, false))
		return res
	}
	res.RecordsExtracted = len(raws)

	records, errs := validator.ValidateAndClean(raws, src, now)
	res.Records = records
	res.RecordsValidated = len(records)
	res.Errors = append(res.Errors, errs...)
	if dropped := len(raws) - len(records); dropped > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d of %d records failed validation", dropped, len(raws)))
	}
	res.Success = true

	zap.L().Debug("pipeline: source extracted",
		zap.String("run_id", runID),
		zap.String("source", src.ID),
		zap.Int("extracted", res.RecordsExtracted),
		zap.Int("validated", res.RecordsValidated),
	)
	return res
}

// nextScheduled computes when the source should next be pulled. Real-time
// sources are polled on the daily cycle like unknown frequencies.
func nextScheduled(from time.Time, freq model.UpdateFrequency) time.Time {
	switch freq {
	case model.FrequencyHourly:
		return from.Add(time.Hour)
	case model.FrequencyDaily:
		return from.Add(24 * time.Hour)
	case model.FrequencyWeekly:
		return from.Add(7 * 24 * time.Hour)
	case model.FrequencyMonthly:
		return from.Add(30 * 24 * time.Hour)
	default:
		return from.Add(24 * time.Hour)
	}
}

// Merge flattens a batch of results into the validated records of the
// successful sources, in result order.
func Merge(results []model.ExtractionResult) []model.ProjectRecord {
	var out []model.ProjectRecord
	for _, r := range results {
		if r.Success {
			out = append(out, r.Records...)
		}
	}
	return out
}
