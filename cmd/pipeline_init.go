package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/catalog"
	"github.com/civicworks/projectwatch/internal/fetcher"
	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/pipeline"
	"github.com/civicworks/projectwatch/internal/scorer"
	"github.com/civicworks/projectwatch/internal/secrets"
	"github.com/civicworks/projectwatch/internal/store"
)

// pipelineEnv holds the initialized store, catalog, extractor, and scoring
// engine needed by the run/serve/watch commands.
type pipelineEnv struct {
	Store     store.Store
	Catalog   *catalog.Catalog
	Extractor *pipeline.Extractor
	Engine    *scorer.Engine
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.Path
		if dsn == "" {
			dsn = "projectwatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCatalog() (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		zap.L().Debug("no catalog file configured, using built-in sources")
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

// initPipeline sets up the store, source catalog, fetchers, extractor, and
// scoring engine. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cat, err := initCatalog()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	registry := fetcher.DefaultRegistry(secrets.Env{}, cfg.Manual.Dir)
	extractor := pipeline.NewExtractor(cat, registry, pipeline.Options{
		Workers: cfg.Extract.Workers,
		Timeout: time.Duration(cfg.Extract.TimeoutSecs) * time.Second,
	})

	engine := scorer.NewEngine(scorer.TunedCriteria(scorer.Tuning{
		TimelineWeight:          cfg.Scoring.TimelineWeight,
		BudgetWeight:            cfg.Scoring.BudgetWeight,
		ProgressWeight:          cfg.Scoring.ProgressWeight,
		DisputeWeight:           cfg.Scoring.DisputeWeight,
		AuditWeight:             cfg.Scoring.AuditWeight,
		TimelineThresholdMonths: cfg.Scoring.TimelineThresholdMonths,
		BudgetThresholdRatio:    cfg.Scoring.BudgetThresholdRatio,
		ProgressThresholdDays:   cfg.Scoring.ProgressThresholdDays,
	}))

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Int("sources", cat.Len()),
		zap.Int("workers", cfg.Extract.Workers),
	)

	return &pipelineEnv{
		Store:     st,
		Catalog:   cat,
		Extractor: extractor,
		Engine:    engine,
	}, nil
}

// runOutcome is the combined result of one extract-and-score cycle.
type runOutcome struct {
	RunID       string                  `json:"run_id"`
	Extractions []model.ExtractionResult `json:"extractions"`
	Analyses    []model.ProjectAnalysis  `json:"analyses"`
	Stats       model.Stats              `json:"stats"`
}

// runPipeline executes one full extract-and-score cycle and persists the
// outcome. Shared by the run, serve, and watch commands.
func runPipeline(ctx context.Context, env *pipelineEnv) (*runOutcome, error) {
	results := env.Extractor.RunAll(ctx)
	if err := env.Store.SaveExtractionResults(ctx, results); err != nil {
		return nil, eris.Wrap(err, "save extraction results")
	}

	records := pipeline.Merge(results)
	analyses := env.Engine.Analyze(records)
	if err := env.Store.SaveAnalyses(ctx, analyses); err != nil {
		return nil, eris.Wrap(err, "save analyses")
	}

	outcome := &runOutcome{
		Extractions: results,
		Analyses:    analyses,
		Stats:       scorer.Statistics(analyses),
	}
	if len(results) > 0 {
		outcome.RunID = results[0].RunID
	}
	return outcome, nil
}
