package main

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/discharge"
	"github.com/lox/qtwsa/internal/nwis"
	"github.com/lox/qtwsa/internal/store"
)

// loadDataset reads the assets from the bundle when one is configured,
// otherwise from the data directory.
func loadDataset(cfg config.Dataset, logger *slog.Logger) (*dataset.Dataset, error) {
	if cfg.Bundle == "" {
		return load(dataset.DirSource{Dir: cfg.DataDir}, cfg, logger)
	}

	st, err := store.Open(cfg.Bundle, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	run, err := st.LatestImportRun()
	if err != nil {
		return nil, fmt.Errorf("read import history: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("bundle %s has never been imported", cfg.Bundle)
	}
	if !run.Success {
		logger.Warn("latest bundle import failed, loading previous assets", "error", run.ErrorMessage.String)
	}
	logger.Info("loading dataset from bundle", "bundle", cfg.Bundle, "imported_from", run.Source, "imported_at", run.StartedAt)
	return load(st, cfg, logger)
}

func load(src dataset.Source, cfg config.Dataset, logger *slog.Logger) (*dataset.Dataset, error) {
	ds, err := dataset.Load(src, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ds, nil
}

func loadCatalog(cfg config.Dataset) (*discharge.Catalog, error) {
	if cfg.Catalog == "" {
		return discharge.DefaultCatalog(), nil
	}
	return discharge.LoadCatalog(cfg.Catalog)
}

// pipeline is everything the serve and derive commands share.
type pipeline struct {
	ds      *dataset.Dataset
	engine  *discharge.Engine
	service *discharge.Service
}

func buildPipeline(dcfg config.Dataset, scfg config.Strategy, logger *slog.Logger) (*pipeline, error) {
	if err := scfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := loadDataset(dcfg, logger)
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(dcfg)
	if err != nil {
		return nil, err
	}
	engine := discharge.NewEngine(ds, catalog, logger)

	var strategy discharge.Strategy
	switch scfg.Name {
	case "swot":
		strategy = discharge.NewSWOTStrategy(ds, nwis.NewClient(scfg.SWOT.NWISURL), clockwork.NewRealClock(), scfg.SWOT)
	default:
		strategy = discharge.NewTWSAStrategy(discharge.NewResolver(ds.Sites()), engine, scfg.Cutoff)
	}
	logger.Info("strategy selected", "strategy", strategy.Name())

	return &pipeline{
		ds:      ds,
		engine:  engine,
		service: discharge.NewService(strategy, logger),
	}, nil
}
