// Package config holds the settings shared by the qtwsa subcommands. The
// structs carry kong tags so they can be embedded directly in the CLI.
package config

import (
	"fmt"
	"time"
)

// DefaultCutoff is the last date covered by the GRACE/GRACE-FO mission data
// shipped with the dashboard.
var DefaultCutoff = time.Date(2022, 5, 23, 0, 0, 0, 0, time.UTC)

// Dataset locates the static assets and names their columns.
type Dataset struct {
	DataDir  string `name:"data-dir" env:"QTWSA_DATA_DIR" default:"static/data" help:"Directory holding the static dataset files."`
	Bundle   string `name:"bundle" env:"QTWSA_BUNDLE" help:"SQLite asset bundle to load instead of --data-dir."`
	Catalog  string `name:"catalog" env:"QTWSA_CATALOG" help:"JSON file overriding the model column catalog."`
	Dates    string `name:"dates-file" env:"QTWSA_DATES_FILE" default:"datesnumberfrombase_TWSA1.csv" help:"Date index CSV."`
	Models   string `name:"models-file" env:"QTWSA_MODELS_FILE" default:"global_gauges_models.csv" help:"Per-gauge model parameter CSV."`
	TWSA     string `name:"twsa-file" env:"QTWSA_TWSA_FILE" default:"TWSA_gauges_global.csv" help:"Per-gauge TWSA CSV."`
	Observed string `name:"observed-file" env:"QTWSA_OBSERVED_FILE" default:"global_gauges_q.csv" help:"Monthly observed discharge CSV."`
	SiteMap  string `name:"sitemap-file" env:"QTWSA_SITEMAP_FILE" default:"usgs-gauges/gauges_global.shp" help:"Site map (.shp or .csv)."`

	Columns Columns `embed:"" prefix:"col-"`
}

// Columns is the column-name contract with the data provider.
type Columns struct {
	DateValue     string `name:"date" env:"QTWSA_COL_DATE" default:"datetime" help:"Date column of the date index."`
	CorrelationID string `name:"comid" env:"QTWSA_COL_COMID" default:"COMID" help:"Correlation id column."`
	SiteID        string `name:"site" env:"QTWSA_COL_SITE" default:"GAGEID" help:"Site id column."`
	ObservedDate  string `name:"observed-date" env:"QTWSA_COL_OBSERVED_DATE" default:"date" help:"Date column of the observed discharge table."`
	ObservedValue string `name:"observed-value" env:"QTWSA_COL_OBSERVED_VALUE" default:"Q_mon" help:"Value column of the observed discharge table."`
	Latitude      string `name:"lat" env:"QTWSA_COL_LAT" default:"Lat" help:"Site map latitude attribute."`
	Longitude     string `name:"lon" env:"QTWSA_COL_LON" default:"Lon" help:"Site map longitude attribute."`
	Area          string `name:"area" env:"QTWSA_COL_AREA" default:"area" help:"Site map drainage area attribute."`
	Overpass      string `name:"overpass" env:"QTWSA_COL_OVERPASS" default:"FIRST_DayT" help:"Site map SWOT overpass day attribute."`
}

// DefaultColumns returns the column names used by the published dataset.
func DefaultColumns() Columns {
	return Columns{
		DateValue:     "datetime",
		CorrelationID: "COMID",
		SiteID:        "GAGEID",
		ObservedDate:  "date",
		ObservedValue: "Q_mon",
		Latitude:      "Lat",
		Longitude:     "Lon",
		Area:          "area",
		Overpass:      "FIRST_DayT",
	}
}

// Files returns the asset names in load order.
func (d Dataset) Files() []string {
	return []string{d.Dates, d.Models, d.TWSA, d.Observed, d.SiteMap}
}

// Selection holds the default model choices offered by the dashboard.
type Selection struct {
	Regionalization string `name:"regionalization" env:"QTWSA_REGIONALIZATION" default:"GP" help:"Default regionalization model."`
	Spatial         string `name:"spatial" env:"QTWSA_SPATIAL" default:"XGB" help:"Default spatial feasibility model."`
	Temporal        string `name:"temporal" env:"QTWSA_TEMPORAL" default:"RF" help:"Default temporal feasibility model."`
}

// Strategy selects and tunes the derivation pipeline.
type Strategy struct {
	Name   string    `name:"strategy" env:"QTWSA_STRATEGY" enum:"twsa,swot" default:"twsa" help:"Derivation strategy (twsa or swot)."`
	Cutoff time.Time `name:"cutoff" env:"QTWSA_CUTOFF" format:"2006-01-02" default:"2022-05-23" help:"Last date included in TWSA derivations."`

	SWOT SWOT `embed:"" prefix:"swot-"`
}

// SWOT tunes the legacy synthetic SWOT strategy.
type SWOT struct {
	Start   time.Time     `name:"start" env:"QTWSA_SWOT_START" format:"2006-01-02" default:"2014-04-01" help:"Assumed SWOT mission start."`
	Horizon time.Time     `name:"horizon" env:"QTWSA_SWOT_HORIZON" format:"2006-01-02" default:"2021-01-01" help:"Last date of the synthetic revisit table."`
	Mu      float64       `name:"mu" env:"QTWSA_SWOT_MU" default:"-0.027" help:"Mean conversion parameter of the log-gaussian error."`
	Sigma   float64       `name:"sigma" env:"QTWSA_SWOT_SIGMA" default:"0.051" help:"Standard deviation conversion parameter of the log-gaussian error."`
	Seed    uint64        `name:"seed" env:"QTWSA_SWOT_SEED" help:"Noise seed; 0 seeds from the clock."`
	Timeout time.Duration `name:"timeout" env:"QTWSA_SWOT_TIMEOUT" default:"20s" help:"Bound on the upstream streamflow request."`
	NWISURL string        `name:"nwis-url" env:"QTWSA_NWIS_URL" default:"https://waterservices.usgs.gov/nwis/dv/" help:"USGS NWIS daily values endpoint."`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level."`
	Format string `name:"log-format" env:"LOG_FORMAT" enum:"text,json" default:"text" help:"Log format."`
}

// HTTP configures the dashboard server.
type HTTP struct {
	Addr            string        `name:"addr" env:"HTTP_ADDR" default:":10000" help:"Listen address."`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"5s" help:"Graceful shutdown timeout."`
	NarrativeDir    string        `name:"narrative-dir" env:"QTWSA_NARRATIVE_DIR" default:"data/narratives" help:"Cache directory for generated site narratives."`
}

// Validate checks settings kong cannot express.
func (s Strategy) Validate() error {
	if s.Name == "swot" {
		if !s.SWOT.Horizon.After(s.SWOT.Start) {
			return fmt.Errorf("swot horizon %s must be after start %s", s.SWOT.Horizon.Format(time.DateOnly), s.SWOT.Start.Format(time.DateOnly))
		}
		if s.SWOT.Timeout <= 0 {
			return fmt.Errorf("swot timeout must be positive")
		}
	}
	return nil
}

// Mirror locates the FTP server the dataset is published on.
type Mirror struct {
	Host      string        `name:"host" env:"QTWSA_MIRROR_HOST" required:"" help:"FTP host:port publishing the dataset."`
	User      string        `name:"user" env:"QTWSA_MIRROR_USER" default:"anonymous" help:"FTP user."`
	Password  string        `name:"password" env:"QTWSA_MIRROR_PASSWORD" default:"anonymous" help:"FTP password."`
	RemoteDir string        `name:"remote-dir" env:"QTWSA_MIRROR_DIR" default:"/" help:"Remote directory holding the dataset files."`
	Timeout   time.Duration `name:"timeout" env:"QTWSA_MIRROR_TIMEOUT" default:"30s" help:"Dial timeout."`
}
