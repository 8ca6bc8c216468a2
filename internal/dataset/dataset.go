// Package dataset loads the static tables behind the discharge dashboard: the
// TWSA date index, the per-gauge model parameters, the per-gauge TWSA series,
// monthly observed discharge and the site map.
//
// A Dataset is built once per process and is read-only afterwards, so it can
// be shared by concurrent requests without locking.
package dataset

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/metrics"
	"github.com/lox/qtwsa/internal/models"
)

type Dataset struct {
	dates    []models.DateEntry
	params   *ParameterTable
	twsa     map[int64][]sql.NullFloat64
	observed map[string][]models.ObservedDischarge
	obsByInt map[int64]string
	sites    *SiteKeyMap
	siteMap  []models.Site
	siteIdx  map[string]int
	loadedAt time.Time
}

// Load reads every table from src. Any failure is returned; callers treat it
// as fatal because the assets are immutable deployment files.
func Load(src Source, cfg config.Dataset, logger *slog.Logger) (*Dataset, error) {
	cols := cfg.Columns
	start := time.Now()

	dates, err := loadDates(src, cfg.Dates, cols)
	if err != nil {
		return nil, err
	}

	paramTable, err := readTable(src, cfg.Models)
	if err != nil {
		return nil, err
	}
	comidCol, err := paramTable.column(cols.CorrelationID)
	if err != nil {
		return nil, err
	}
	siteCol, err := paramTable.column(cols.SiteID)
	if err != nil {
		return nil, err
	}
	params, dupIDs := newParameterTable(paramTable, comidCol)
	if len(dupIDs) > 0 {
		logger.Warn("duplicate correlation ids in parameter table, first row wins", "count", len(dupIDs), "example", dupIDs[0])
	}

	sites := newSiteKeyMap()
	for _, row := range paramTable.rows {
		comid, ok := ParseID(cell(row, comidCol))
		if !ok {
			continue
		}
		sites.add(cell(row, siteCol), comid)
	}
	if dups := sites.Duplicates(); len(dups) > 0 {
		logger.Warn("duplicate site ids in parameter table, first match wins", "count", len(dups), "example", dups[0])
	}

	twsa, err := loadTWSA(src, cfg.TWSA, cols)
	if err != nil {
		return nil, err
	}

	observed, obsByInt, nObserved, err := loadObserved(src, cfg.Observed, cols)
	if err != nil {
		return nil, err
	}

	siteMap, err := loadSiteMap(src, cfg.SiteMap, cols)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		dates:    dates,
		params:   params,
		twsa:     twsa,
		observed: observed,
		obsByInt: obsByInt,
		sites:    sites,
		siteMap:  siteMap,
		siteIdx:  make(map[string]int, len(siteMap)),
		loadedAt: time.Now(),
	}
	for i, s := range siteMap {
		ds.siteIdx[s.SiteID] = i
	}

	metrics.DatasetRows.WithLabelValues("dates").Set(float64(len(dates)))
	metrics.DatasetRows.WithLabelValues("parameters").Set(float64(params.Len()))
	metrics.DatasetRows.WithLabelValues("twsa").Set(float64(len(twsa)))
	metrics.DatasetRows.WithLabelValues("observed").Set(float64(nObserved))
	metrics.DatasetRows.WithLabelValues("sites").Set(float64(len(siteMap)))

	logger.Info("dataset loaded",
		"dates", len(dates),
		"parameters", params.Len(),
		"twsa", len(twsa),
		"observed", nObserved,
		"sites", len(siteMap),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return ds, nil
}

func loadDates(src Source, name string, cols config.Columns) ([]models.DateEntry, error) {
	t, err := readTable(src, name)
	if err != nil {
		return nil, err
	}
	dateCol, err := t.column(cols.DateValue)
	if err != nil {
		return nil, err
	}
	// The sequence number is the other of the first two columns.
	seqCol := -1
	for i := 0; i < len(t.header) && i < 2; i++ {
		if i != dateCol {
			seqCol = i
			break
		}
	}

	dates := make([]models.DateEntry, 0, len(t.rows))
	for i, row := range t.rows {
		d, err := ParseDate(cell(row, dateCol))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
		seq := int64(i)
		if n, ok := ParseID(cell(row, seqCol)); ok {
			seq = n
		}
		if len(dates) > 0 && !d.After(dates[len(dates)-1].Date) {
			return nil, fmt.Errorf("%s row %d: date %s is not after %s", name, i+2, d.Format(time.DateOnly), dates[len(dates)-1].Date.Format(time.DateOnly))
		}
		dates = append(dates, models.DateEntry{Seq: seq, Date: d})
	}
	return dates, nil
}

// loadTWSA reads the wide TWSA table: one row per gauge, the correlation id
// column plus one value column per date-index epoch, in date-index order.
func loadTWSA(src Source, name string, cols config.Columns) (map[int64][]sql.NullFloat64, error) {
	t, err := readTable(src, name)
	if err != nil {
		return nil, err
	}
	comidCol, err := t.column(cols.CorrelationID)
	if err != nil {
		return nil, err
	}

	series := make(map[int64][]sql.NullFloat64, len(t.rows))
	for _, row := range t.rows {
		comid, ok := ParseID(cell(row, comidCol))
		if !ok {
			continue
		}
		if _, seen := series[comid]; seen {
			continue
		}
		values := make([]sql.NullFloat64, 0, len(row)-1)
		for i := range row {
			if i == comidCol {
				continue
			}
			values = append(values, ParseNullFloat(row[i]))
		}
		series[comid] = values
	}
	return series, nil
}

func loadObserved(src Source, name string, cols config.Columns) (map[string][]models.ObservedDischarge, map[int64]string, int, error) {
	t, err := readTable(src, name)
	if err != nil {
		return nil, nil, 0, err
	}
	siteCol, err := t.column(cols.SiteID)
	if err != nil {
		return nil, nil, 0, err
	}
	dateCol, err := t.column(cols.ObservedDate)
	if err != nil {
		return nil, nil, 0, err
	}
	valueCol, err := t.column(cols.ObservedValue)
	if err != nil {
		return nil, nil, 0, err
	}

	observed := make(map[string][]models.ObservedDischarge)
	byInt := make(map[int64]string)
	n := 0
	for i, row := range t.rows {
		site := CanonicalSiteID(cell(row, siteCol))
		if site == "" {
			continue
		}
		d, err := ParseDate(cell(row, dateCol))
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
		observed[site] = append(observed[site], models.ObservedDischarge{
			SiteID:    site,
			Date:      d,
			Year:      d.Year(),
			Month:     d.Month(),
			Discharge: ParseNullFloat(cell(row, valueCol)),
		})
		if num, ok := numericSiteID(site); ok {
			if _, taken := byInt[num]; !taken {
				byInt[num] = site
			}
		}
		n++
	}
	return observed, byInt, n, nil
}

// Dates returns the date index.
func (d *Dataset) Dates() []models.DateEntry {
	return d.dates
}

func (d *Dataset) Parameters() *ParameterTable {
	return d.params
}

// Sites returns the site id to correlation id map.
func (d *Dataset) Sites() *SiteKeyMap {
	return d.sites
}

// TWSA returns the TWSA series for a correlation id.
func (d *Dataset) TWSA(comid int64) ([]sql.NullFloat64, bool) {
	s, ok := d.twsa[comid]
	return s, ok
}

// Observed returns the monthly observations for a site, matching the string
// form first and the integer form second.
func (d *Dataset) Observed(siteID string) []models.ObservedDischarge {
	siteID = CanonicalSiteID(siteID)
	if obs, ok := d.observed[siteID]; ok {
		return obs
	}
	if n, ok := numericSiteID(siteID); ok {
		if key, ok := d.obsByInt[n]; ok {
			return d.observed[key]
		}
	}
	return nil
}

// SiteMap returns the map features.
func (d *Dataset) SiteMap() []models.Site {
	return d.siteMap
}

// Site looks up a map feature by site id.
func (d *Dataset) Site(siteID string) (models.Site, bool) {
	i, ok := d.siteIdx[CanonicalSiteID(siteID)]
	if !ok {
		return models.Site{}, false
	}
	return d.siteMap[i], true
}

func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// MemSource serves assets from memory.
type MemSource map[string][]byte

func (m MemSource) Open(name string) (io.ReadCloser, error) {
	b, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("open %s: not found", name)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Names returns the asset names in sorted order.
func (m MemSource) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FormatID renders a correlation id for display.
func FormatID(comid int64) string {
	return strconv.FormatInt(comid, 10)
}
