package discharge

import (
	"database/sql"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/models"
)

// Selection names one model per family.
type Selection struct {
	Regionalization string
	Spatial         string
	Temporal        string
}

// Engine derives predicted discharge from TWSA for one gauge at a time.
type Engine struct {
	ds      *dataset.Dataset
	catalog *Catalog
	dropped []error
}

// NewEngine validates the catalog against the parameter table header. Models
// whose columns are missing are dropped and reported once here.
func NewEngine(ds *dataset.Dataset, catalog *Catalog, logger *slog.Logger) *Engine {
	valid, dropped := catalog.Validate(ds.Parameters())
	for _, err := range dropped {
		logger.Warn("model unavailable in parameter table", "error", err)
	}
	return &Engine{ds: ds, catalog: valid, dropped: dropped}
}

// Catalog returns the validated catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Derive builds the discharge records for a gauge:
//
//  1. TWSA values are aligned to the date index by position; the shorter of
//     the two sets the length.
//  2. Dates after cutoff are dropped.
//  3. predicted = alpha * exp(beta * twsa) using the regionalization model.
//  4. predicted is copied to the confident column for months flagged 1 by
//     the temporal model.
//  5. Observed discharge is left-joined on (year, month). A month with k
//     observations yields k rows; a month with none yields one row with a
//     null observation.
//
// The result is sorted by date; equal dates keep join order.
func (e *Engine) Derive(key SiteKey, sel Selection, cutoff time.Time) ([]models.DischargeRecord, error) {
	comid := key.CorrelationID

	series, ok := e.ds.TWSA(comid)
	if !ok {
		return nil, &NoDataError{Reason: ReasonMissingTWSA, Detail: dataset.FormatID(comid)}
	}

	reg, err := e.regionalization(sel.Regionalization)
	if err != nil {
		return nil, err
	}
	temporal, err := e.temporal(sel.Temporal)
	if err != nil {
		return nil, err
	}

	alpha, err := e.coefficient(comid, "regionalization", reg.Name, reg.Alpha)
	if err != nil {
		return nil, err
	}
	beta, err := e.coefficient(comid, "regionalization", reg.Name, reg.Beta)
	if err != nil {
		return nil, err
	}
	mask, err := e.confidentMonths(comid, temporal)
	if err != nil {
		return nil, err
	}

	cutoff = dataset.Normalize(cutoff)
	aligned := align(e.ds.Dates(), series)

	byMonth := make(map[monthKey][]models.ObservedDischarge)
	for _, o := range e.ds.Observed(key.SiteID) {
		k := monthKey{o.Year, o.Month}
		byMonth[k] = append(byMonth[k], o)
	}

	records := make([]models.DischargeRecord, 0, len(aligned))
	for _, p := range aligned {
		if p.date.After(cutoff) {
			continue
		}
		rec := models.DischargeRecord{
			Date:   p.date,
			Month:  p.date.Month(),
			Year:   p.date.Year(),
			TWSA:   p.twsa,
			SiteID: key.SiteID,
		}
		if p.twsa.Valid {
			rec.Predicted = sql.NullFloat64{Float64: alpha * math.Exp(beta*p.twsa.Float64), Valid: true}
		}
		if mask[rec.Month-1] {
			rec.PredictedConfident = rec.Predicted
		}

		obs := byMonth[monthKey{rec.Year, rec.Month}]
		if len(obs) == 0 {
			records = append(records, rec)
			continue
		}
		for _, o := range obs {
			joined := rec
			joined.Observed = o.Discharge
			records = append(records, joined)
		}
	}

	if len(records) == 0 {
		return nil, &NoDataError{Reason: ReasonEmptyAfterMerge, Detail: dataset.FormatID(comid)}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

type monthKey struct {
	year  int
	month time.Month
}

type alignedPoint struct {
	date time.Time
	twsa sql.NullFloat64
}

// align pairs TWSA value i with date index row i, truncating to the shorter
// of the two.
func align(dates []models.DateEntry, series []sql.NullFloat64) []alignedPoint {
	n := min(len(dates), len(series))
	out := make([]alignedPoint, n)
	for i := 0; i < n; i++ {
		out[i] = alignedPoint{date: dates[i].Date, twsa: series[i]}
	}
	return out
}

func (e *Engine) coefficient(comid int64, kind, model, column string) (float64, error) {
	v, err := e.ds.Parameters().Float(comid, column)
	if err != nil || !v.Valid {
		return 0, &MissingCoefficientError{Kind: kind, Model: model, Column: column, CorrelationID: comid}
	}
	return v.Float64, nil
}

// confidentMonths returns mask[m-1] == true when month m is flagged 1.
func (e *Engine) confidentMonths(comid int64, m TemporalModel) ([12]bool, error) {
	var mask [12]bool
	for i, col := range m.Months {
		v, err := e.ds.Parameters().Float(comid, col)
		if err != nil {
			return mask, &MissingCoefficientError{Kind: "temporal", Model: m.Name, Column: col, CorrelationID: comid}
		}
		mask[i] = v.Valid && v.Float64 == 1
	}
	return mask, nil
}

func (e *Engine) regionalization(name string) (RegionalizationModel, error) {
	if m, ok := e.catalog.RegionalizationModel(name); ok {
		return m, nil
	}
	return RegionalizationModel{}, e.unavailable("regionalization", name)
}

func (e *Engine) spatial(name string) (SpatialModel, error) {
	if m, ok := e.catalog.SpatialModel(name); ok {
		return m, nil
	}
	return SpatialModel{}, e.unavailable("spatial", name)
}

func (e *Engine) temporal(name string) (TemporalModel, error) {
	if m, ok := e.catalog.TemporalModel(name); ok {
		return m, nil
	}
	return TemporalModel{}, e.unavailable("temporal", name)
}

// unavailable returns the validation error recorded for a dropped model, or
// an unknown-model error.
func (e *Engine) unavailable(kind, name string) error {
	for _, err := range e.dropped {
		var missing *MissingCoefficientError
		if errors.As(err, &missing) && missing.Kind == kind && missing.Model == name {
			return err
		}
	}
	return &MissingCoefficientError{Kind: kind, Model: name}
}
