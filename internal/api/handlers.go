package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jellydator/ttlcache/v3"

	"github.com/lox/qtwsa/internal/chart"
	"github.com/lox/qtwsa/internal/narrative"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	regionalization, spatial, temporal := s.catalog.Names()
	data := IndexData{
		Strategy:        s.service.Strategy().Name(),
		Defaults:        s.defaults,
		Regionalization: regionalization,
		Spatial:         spatial,
		Temporal:        temporal,
		Sites:           len(s.ds.SiteMap()),
		LoadedAt:        s.ds.LoadedAt(),
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("template error", "template", "index.html", "error", err)
	}
}

func (s *Server) handleTablePartial(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.service.Handle(r.Context(), req)
	if err := s.tmpl.ExecuteTemplate(w, "table.html", newTableData(req, resp)); err != nil {
		s.logger.Error("template error", "template", "table.html", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:   "ok",
		Strategy: s.service.Strategy().Name(),
		Sites:    s.ds.Sites().Len(),
		Features: len(s.ds.SiteMap()),
		LoadedAt: s.ds.LoadedAt(),
	}
	if health.Sites == 0 {
		health.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleAPISites(w http.ResponseWriter, r *http.Request) {
	sites := s.ds.SiteMap()
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]SiteFeature, 0, len(sites))}
	for _, site := range sites {
		fc.Features = append(fc.Features, newSiteFeature(site))
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) handleAPIDerive(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := s.service.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, newDeriveView(req, resp))
}

func (s *Server) handleHydrograph(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Legacy results carry random noise; only deterministic charts are cached.
	cacheable := s.service.Strategy().Name() == "twsa"
	key := requestKey(req)
	if cacheable {
		if item := s.charts.Get(key); item != nil {
			writePNG(w, item.Value(), cacheable)
			return
		}
	}

	resp := s.service.Handle(r.Context(), req)
	h := chart.Hydrograph{
		Title:    "Gauge " + req.SiteID,
		Subtitle: fmt.Sprintf("%s / %s / %s", req.Selection.Regionalization, req.Selection.Spatial, req.Selection.Temporal),
	}
	if !resp.Empty() {
		h.Title = "Gauge " + resp.Result.Site.SiteID
		h.Records = resp.Result.Records
		if resp.Result.Strategy != "twsa" {
			h.Subtitle = "Synthetic SWOT discharge"
		}
	}
	data, err := chart.Render(h)
	if err != nil {
		s.logger.Error("render hydrograph", "site", req.SiteID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if cacheable {
		s.charts.Set(key, data, ttlcache.DefaultTTL)
	}
	writePNG(w, data, cacheable)
}

func writePNG(w http.ResponseWriter, data []byte, cacheable bool) {
	w.Header().Set("Content-Type", "image/png")
	if cacheable {
		w.Header().Set("Cache-Control", "public, max-age=600")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.Write(data)
}

func (s *Server) handleAPINarrative(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.narratives == nil {
		writeError(w, http.StatusServiceUnavailable, narrative.ErrDisabled)
		return
	}

	resp := s.service.Handle(r.Context(), req)
	if resp.Empty() {
		writeJSON(w, http.StatusNotFound, DeriveView{Empty: true, Reason: resp.Reason, Site: req.SiteID})
		return
	}

	text, err := s.narratives.Narrative(r.Context(), req, resp.Result)
	switch {
	case errors.Is(err, narrative.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.logger.Warn("narrative failed", "site", req.SiteID, "error", err)
		writeError(w, http.StatusBadGateway, errors.New("narrative generation failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site": resp.Result.Site.SiteID, "narrative": text})
}
