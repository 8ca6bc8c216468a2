package discharge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/nwis"
	"github.com/lox/qtwsa/internal/swot"
)

type fakeFetcher struct {
	values []nwis.DailyValue
	err    error
	block  bool

	gotStart, gotEnd time.Time
}

func (f *fakeFetcher) FetchDailyDischarge(ctx context.Context, siteID string, start, end time.Time) ([]nwis.DailyValue, error) {
	f.gotStart, f.gotEnd = start, end
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.values, f.err
}

func swotConfig() config.SWOT {
	return config.SWOT{
		Start:   time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC),
		Horizon: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Mu:      -0.027,
		Sigma:   0.051,
		Seed:    42,
		Timeout: time.Second,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSWOTTest(t *testing.T, fetcher DischargeFetcher, cfg config.SWOT) *SWOTStrategy {
	t.Helper()
	ds := loadFixture(t, buildSource(monthlyDates(3), []testGauge{
		// 2014-04-03 is rank 3 and 2014-04-15 is rank 15.
		{comid: 1, site: "01013500", twsa: constSeries(3, 1), lat: 47, lon: -68, overpass: []string{"3.0", "15.6"}},
		{comid: 2, site: "02000000", twsa: constSeries(3, 1), lat: 40, lon: -90},
	}))
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewSWOTStrategy(ds, fetcher, clock, cfg)
}

func TestSWOTStrategy_Derive(t *testing.T) {
	fetcher := &fakeFetcher{values: []nwis.DailyValue{
		{Date: day(2014, 4, 1), Discharge: 50},  // not after start
		{Date: day(2014, 4, 2), Discharge: 0},   // non-positive
		{Date: day(2014, 4, 3), Discharge: 100}, // pass 3
		{Date: day(2014, 4, 4), Discharge: 90},
		{Date: day(2014, 4, 15), Discharge: 80}, // pass 15
		{Date: day(2014, 4, 24), Discharge: 70}, // rank 24, pass 3
		{Date: day(2022, 1, 1), Discharge: 60},  // beyond horizon
	}}
	strategy := newSWOTTest(t, fetcher, swotConfig())

	result, err := strategy.Derive(context.Background(), Request{SiteID: "01013500"})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if result.Strategy != "swot" || result.Site.CorrelationID != 1 {
		t.Errorf("result = %s %+v", result.Strategy, result.Site)
	}

	wantPasses := []int{3, 4, 15, 3}
	if len(result.Records) != len(wantPasses) {
		t.Fatalf("len(Records) = %d, want %d", len(result.Records), len(wantPasses))
	}
	for i, r := range result.Records {
		if r.Pass != wantPasses[i] {
			t.Errorf("record %d pass = %d, want %d", i, r.Pass, wantPasses[i])
		}
		onPass := r.Pass == 3 || r.Pass == 15
		if r.Predicted.Valid != onPass {
			t.Errorf("record %d predicted valid = %v, want %v", i, r.Predicted.Valid, onPass)
		}
		if !r.Observed.Valid || r.Observed.Float64 <= 0 {
			t.Errorf("record %d observed = %v", i, r.Observed)
		}
	}

	if !fetcher.gotEnd.Equal(day(2021, 1, 1)) {
		t.Errorf("fetch end = %s, want horizon", fetcher.gotEnd.Format(time.DateOnly))
	}
}

func TestSWOTStrategy_ZeroSigmaKeepsGaugeValue(t *testing.T) {
	cfg := swotConfig()
	cfg.Mu, cfg.Sigma = 0, 0
	fetcher := &fakeFetcher{values: []nwis.DailyValue{{Date: day(2014, 4, 3), Discharge: 123.456}}}
	strategy := newSWOTTest(t, fetcher, cfg)

	result, err := strategy.Derive(context.Background(), Request{SiteID: "01013500"})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if got := result.Records[0].Predicted.Float64; got != 123.456 {
		t.Errorf("Predicted = %v, want 123.456", got)
	}
}

func TestSWOTStrategy_SeededNoiseIsRepeatable(t *testing.T) {
	fetcher := &fakeFetcher{values: []nwis.DailyValue{{Date: day(2014, 4, 3), Discharge: 500}}}
	strategy := newSWOTTest(t, fetcher, swotConfig())

	a, err := strategy.Derive(context.Background(), Request{SiteID: "01013500"})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	b, err := strategy.Derive(context.Background(), Request{SiteID: "01013500"})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if a.Records[0].Predicted != b.Records[0].Predicted {
		t.Errorf("seeded noise differs: %v vs %v", a.Records[0].Predicted, b.Records[0].Predicted)
	}
}

func TestSWOTStrategy_Errors(t *testing.T) {
	onlyOffPass := []nwis.DailyValue{{Date: day(2014, 4, 4), Discharge: 10}}

	tests := []struct {
		name    string
		siteID  string
		fetcher *fakeFetcher
		reason  string
	}{
		{"unknown site", "99999999", &fakeFetcher{}, "site_not_found"},
		{"no observations", "01013500", &fakeFetcher{values: []nwis.DailyValue{{Date: day(2014, 4, 1), Discharge: 5}}}, string(ReasonNoObservations)},
		{"no pass days match", "01013500", &fakeFetcher{values: onlyOffPass}, string(ReasonSWOTPassUnavailable)},
		{"site without overpass days", "02000000", &fakeFetcher{values: onlyOffPass}, string(ReasonSWOTPassUnavailable)},
		{"missing discharge series", "01013500", &fakeFetcher{err: nwis.ErrNoDischarge}, "upstream_error"},
		{"timeout", "01013500", &fakeFetcher{block: true}, string(ReasonUpstreamTimeout)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := swotConfig()
			cfg.Timeout = 10 * time.Millisecond
			strategy := newSWOTTest(t, tt.fetcher, cfg)

			_, err := strategy.Derive(context.Background(), Request{SiteID: tt.siteID})
			if got := Reason(err); got != tt.reason {
				t.Errorf("Reason = %q, want %q (err: %v)", got, tt.reason, err)
			}
		})
	}

	var upstream *UpstreamServiceError
	strategy := newSWOTTest(t, &fakeFetcher{err: nwis.ErrNoDischarge}, swotConfig())
	_, err := strategy.Derive(context.Background(), Request{SiteID: "01013500"})
	if !errors.As(err, &upstream) || !errors.Is(err, nwis.ErrNoDischarge) {
		t.Errorf("err = %v, want UpstreamServiceError wrapping ErrNoDischarge", err)
	}
}

func TestSWOTStrategy_PassTable(t *testing.T) {
	cfg := swotConfig()
	strategy := newSWOTTest(t, &fakeFetcher{}, cfg)

	if got := len(strategy.passes); got != len(swot.Table(cfg.Start, cfg.Horizon)) {
		t.Errorf("pass table has %d days", got)
	}
	if got := strategy.passes[day(2014, 4, 22)]; got != 1 {
		t.Errorf("pass on 2014-04-22 = %d, want 1", got)
	}
}
