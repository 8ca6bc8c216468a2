package api

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/qtwsa/internal/chart"
	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/discharge"
	"github.com/lox/qtwsa/internal/narrative"
)

const (
	chartCacheTTL     = 30 * time.Minute
	chartCacheEntries = 256
)

type Server struct {
	service    *discharge.Service
	ds         *dataset.Dataset
	catalog    *discharge.Catalog
	defaults   discharge.Selection
	cfg        config.HTTP
	tmpl       *template.Template
	charts     *chart.Cache
	narratives *narrative.Generator
	logger     *slog.Logger
}

// NewServer wires the dashboard around a derivation service. The catalog
// supplies the model selector options.
func NewServer(service *discharge.Service, ds *dataset.Dataset, catalog *discharge.Catalog, defaults config.Selection, cfg config.HTTP, logger *slog.Logger) *Server {
	return &Server{
		service: service,
		ds:      ds,
		catalog: catalog,
		defaults: discharge.Selection{
			Regionalization: defaults.Regionalization,
			Spatial:         defaults.Spatial,
			Temporal:        defaults.Temporal,
		},
		cfg:    cfg,
		tmpl:   newTemplates(),
		charts: chart.NewCache(chartCacheTTL, chartCacheEntries),
		logger: logger,
	}
}

// SetNarratives enables /api/narrative. Without it the endpoint reports the
// feature as disabled.
func (s *Server) SetNarratives(gen *narrative.Generator) {
	s.narratives = gen
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/partials/table", s.handleTablePartial)
	mux.HandleFunc("/api/sites", s.handleAPISites)
	mux.HandleFunc("/api/derive", s.handleAPIDerive)
	mux.HandleFunc("/api/hydrograph.png", s.handleHydrograph)
	mux.HandleFunc("/api/narrative", s.handleAPINarrative)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", s.cfg.Addr, "strategy", s.service.Strategy().Name())
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
