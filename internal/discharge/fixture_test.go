package discharge

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/logging"
)

// testGauge describes one row of the synthetic parameter, TWSA, observed and
// site tables.
type testGauge struct {
	comid    int64
	site     string
	params   map[string]string // overrides of defaultParams
	twsa     []string
	observed [][2]string // date, Q_mon
	lat, lon float64
	overpass []string
}

var monthColumns = []string{"Jan", "Feb", "March", "April", "May", "June", "July", "Aug", "Sept", "Oct", "Nov", "Dec"}

func defaultParams() map[string]string {
	p := map[string]string{
		"NUSVR_alpha": "1.0", "NUSVR_beta": "0.5",
		"GP_alpha": "2.0", "GP_beta": "0.1",
		"GB_alpha": "3.0", "GB_beta": "0.2",
		"svc_sd": "abc", "xgb_sd": "2", "rf_td": "",
		"NN_td": "0", "XT_td": "12", "RF_td": "4",
	}
	for i, m := range monthColumns {
		p[m+"_XT"] = "1"
		p[m+"_NN"] = "0"
		p[m+"_RF"] = "0"
		if (i+1)%3 == 0 {
			p[m+"_RF"] = "1"
		}
	}
	return p
}

// monthlyDates returns n dates on the 15th of consecutive months from Jan 2020.
func monthlyDates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	}
	return out
}

func seriesOf(values ...float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%g", v)
	}
	return out
}

func constSeries(n int, v float64) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%g", v)
	}
	return out
}

// buildSource renders the tables as CSV. omit drops parameter columns from
// the header to simulate a model the data provider did not ship.
func buildSource(dates []time.Time, gauges []testGauge, omit ...string) dataset.MemSource {
	var b strings.Builder
	b.WriteString(",datetime\n")
	for i, d := range dates {
		fmt.Fprintf(&b, "%d,%s\n", i, d.Format(time.DateOnly))
	}
	datesCSV := b.String()

	skip := make(map[string]bool)
	for _, c := range omit {
		skip[c] = true
	}
	defaults := defaultParams()
	var paramCols []string
	for _, c := range []string{"NUSVR_alpha", "NUSVR_beta", "GP_alpha", "GP_beta", "GB_alpha", "GB_beta", "svc_sd", "xgb_sd", "rf_td", "NN_td", "XT_td", "RF_td"} {
		if !skip[c] {
			paramCols = append(paramCols, c)
		}
	}
	for _, model := range []string{"XT", "NN", "RF"} {
		for _, m := range monthColumns {
			if c := m + "_" + model; !skip[c] {
				paramCols = append(paramCols, c)
			}
		}
	}

	b.Reset()
	b.WriteString("COMID,GAGEID," + strings.Join(paramCols, ",") + "\n")
	for _, g := range gauges {
		row := []string{fmt.Sprint(g.comid), g.site}
		for _, c := range paramCols {
			v, ok := g.params[c]
			if !ok {
				v = defaults[c]
			}
			row = append(row, v)
		}
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	modelsCSV := b.String()

	b.Reset()
	width := len(dates)
	for _, g := range gauges {
		width = max(width, len(g.twsa))
	}
	b.WriteString("COMID")
	for i := 0; i < width; i++ {
		fmt.Fprintf(&b, ",%d", i)
	}
	b.WriteString("\n")
	for _, g := range gauges {
		if g.twsa == nil {
			continue
		}
		b.WriteString(fmt.Sprint(g.comid) + "," + strings.Join(g.twsa, ",") + "\n")
	}
	twsaCSV := b.String()

	b.Reset()
	b.WriteString("GAGEID,date,Q_mon\n")
	for _, g := range gauges {
		for _, o := range g.observed {
			fmt.Fprintf(&b, "%s,%s,%s\n", g.site, o[0], o[1])
		}
	}
	observedCSV := b.String()

	b.Reset()
	b.WriteString("GAGEID,Lat,Lon,area,FIRST_DayT\n")
	for _, g := range gauges {
		if len(g.overpass) == 0 {
			fmt.Fprintf(&b, "%s,%g,%g,100,\n", g.site, g.lat, g.lon)
			continue
		}
		for _, p := range g.overpass {
			fmt.Fprintf(&b, "%s,%g,%g,100,%s\n", g.site, g.lat, g.lon, p)
		}
	}
	sitesCSV := b.String()

	return dataset.MemSource{
		"dates.csv":    []byte(datesCSV),
		"models.csv":   []byte(modelsCSV),
		"twsa.csv":     []byte(twsaCSV),
		"observed.csv": []byte(observedCSV),
		"sites.csv":    []byte(sitesCSV),
	}
}

func testDatasetConfig() config.Dataset {
	return config.Dataset{
		Dates:    "dates.csv",
		Models:   "models.csv",
		TWSA:     "twsa.csv",
		Observed: "observed.csv",
		SiteMap:  "sites.csv",
		Columns:  config.DefaultColumns(),
	}
}

func loadFixture(t *testing.T, src dataset.MemSource) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(src, testDatasetConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	return ds
}

func newTestStrategy(t *testing.T, ds *dataset.Dataset) *TWSAStrategy {
	t.Helper()
	engine := NewEngine(ds, DefaultCatalog(), logging.Discard())
	return NewTWSAStrategy(NewResolver(ds.Sites()), engine, config.DefaultCutoff)
}

var defaultSelection = Selection{Regionalization: "GP", Spatial: "XGB", Temporal: "RF"}
