package discharge

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/models"
	"github.com/lox/qtwsa/internal/nwis"
	"github.com/lox/qtwsa/internal/swot"
)

// DischargeFetcher supplies daily gauge discharge in cubic metres per second.
type DischargeFetcher interface {
	FetchDailyDischarge(ctx context.Context, siteID string, start, end time.Time) ([]nwis.DailyValue, error)
}

// SWOTStrategy simulates what SWOT would have reported for a gauge: NWIS daily
// discharge on the site's overpass days, perturbed by the SWOT error model.
type SWOTStrategy struct {
	ds      *dataset.Dataset
	fetcher DischargeFetcher
	clock   clockwork.Clock
	cfg     config.SWOT
	passes  map[time.Time]int
}

func NewSWOTStrategy(ds *dataset.Dataset, fetcher DischargeFetcher, clock clockwork.Clock, cfg config.SWOT) *SWOTStrategy {
	passes := make(map[time.Time]int)
	for _, d := range swot.Table(cfg.Start, cfg.Horizon) {
		passes[d.Date] = d.Pass
	}
	return &SWOTStrategy{
		ds:      ds,
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		passes:  passes,
	}
}

func (s *SWOTStrategy) Name() string { return "swot" }

func (s *SWOTStrategy) Derive(ctx context.Context, req Request) (*Result, error) {
	site, ok := s.ds.Site(req.SiteID)
	if !ok {
		return nil, &SiteNotFoundError{SiteID: req.SiteID}
	}
	key := SiteKey{SiteID: site.SiteID}
	if comid, ok := s.ds.Sites().Lookup(site.SiteID); ok {
		key.CorrelationID = comid
	}

	start := dataset.Normalize(s.cfg.Start)
	end := dataset.Normalize(s.cfg.Horizon)
	if today := dataset.Normalize(s.clock.Now()); today.Before(end) {
		end = today
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	daily, err := s.fetcher.FetchDailyDischarge(fetchCtx, site.SiteID, start, end)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &NoDataError{Reason: ReasonUpstreamTimeout, Detail: site.SiteID}
		}
		return nil, &UpstreamServiceError{SiteID: site.SiteID, Err: err}
	}

	overpass := make(map[int]bool, len(site.OverpassDays))
	for _, d := range site.OverpassDays {
		overpass[d] = true
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(s.clock.Now().UnixNano())
	}
	noise := swot.NewNoise(s.cfg.Mu, s.cfg.Sigma, seed)

	var (
		records  []models.DischargeRecord
		observed int
		matched  bool
	)
	for _, v := range daily {
		date := dataset.Normalize(v.Date)
		if v.Discharge <= 0 || !date.After(start) {
			continue
		}
		observed++
		pass, ok := s.passes[date]
		if !ok {
			continue
		}
		rec := models.DischargeRecord{
			Date:     date,
			Month:    date.Month(),
			Year:     date.Year(),
			Observed: sql.NullFloat64{Float64: v.Discharge, Valid: true},
			SiteID:   site.SiteID,
			Pass:     pass,
		}
		if overpass[pass] {
			rec.Predicted = sql.NullFloat64{Float64: noise.Apply(v.Discharge), Valid: true}
			matched = true
		}
		records = append(records, rec)
	}

	if observed == 0 {
		return nil, &NoDataError{Reason: ReasonNoObservations, Detail: site.SiteID}
	}
	if !matched {
		return nil, &NoDataError{Reason: ReasonSWOTPassUnavailable, Detail: site.SiteID}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return &Result{Strategy: s.Name(), Site: key, Records: records}, nil
}
