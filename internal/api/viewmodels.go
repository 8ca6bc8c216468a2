package api

import (
	"database/sql"
	"math"
	"time"

	"github.com/lox/qtwsa/internal/discharge"
	"github.com/lox/qtwsa/internal/models"
)

// DeriveView is the JSON body of /api/derive. Empty responses carry only
// the reason.
type DeriveView struct {
	Empty      bool            `json:"empty"`
	Reason     string          `json:"reason,omitempty"`
	Site       string          `json:"site"`
	Strategy   string          `json:"strategy,omitempty"`
	Selection  *SelectionView  `json:"selection,omitempty"`
	Annotation *AnnotationView `json:"annotation,omitempty"`
	Records    []RecordView    `json:"records,omitempty"`
}

type SelectionView struct {
	Regionalization string `json:"regionalization"`
	Spatial         string `json:"spatial"`
	Temporal        string `json:"temporal"`
}

type AnnotationView struct {
	SpatialClass  string `json:"spatial_class"`
	SpatialLabel  string `json:"spatial_label"`
	SpatialColor  string `json:"spatial_color"`
	TemporalCount *int64 `json:"temporal_count"`
}

// RecordView uses pointers so missing values encode as null.
type RecordView struct {
	Date               string   `json:"date"`
	TWSA               *float64 `json:"twsa"`
	Predicted          *float64 `json:"predicted"`
	PredictedConfident *float64 `json:"predicted_confident"`
	Observed           *float64 `json:"observed"`
	Pass               int      `json:"pass,omitempty"`
}

// SiteFeature is one GeoJSON point on the site map.
type SiteFeature struct {
	Type       string         `json:"type"`
	Geometry   SiteGeometry   `json:"geometry"`
	Properties SiteProperties `json:"properties"`
}

type SiteGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type SiteProperties struct {
	SiteID       string   `json:"site_id"`
	DrainageArea *float64 `json:"drainage_area"`
	OverpassDays []int    `json:"overpass_days,omitempty"`
}

type FeatureCollection struct {
	Type     string        `json:"type"`
	Features []SiteFeature `json:"features"`
}

// TableData feeds table.html.
type TableData struct {
	SiteID string
	Reason string
	Rows   []TableRow
}

type TableRow struct {
	Date               string
	Predicted          string
	PredictedConfident string
	Observed           string
}

// IndexData feeds index.html.
type IndexData struct {
	Strategy        string
	Defaults        discharge.Selection
	Regionalization []string
	Spatial         []string
	Temporal        []string
	Sites           int
	LoadedAt        time.Time
}

type HealthStatus struct {
	Status   string    `json:"status"`
	Strategy string    `json:"strategy"`
	Sites    int       `json:"sites"`
	Features int       `json:"features"`
	LoadedAt time.Time `json:"loaded_at"`
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return nil
	}
	f := v.Float64
	return &f
}

func newDeriveView(req discharge.Request, resp discharge.Response) DeriveView {
	if resp.Empty() {
		return DeriveView{Empty: true, Reason: resp.Reason, Site: req.SiteID}
	}
	result := resp.Result
	view := DeriveView{
		Site:     result.Site.SiteID,
		Strategy: result.Strategy,
		Records:  make([]RecordView, 0, len(result.Records)),
	}
	if result.Strategy == "twsa" {
		view.Selection = &SelectionView{
			Regionalization: req.Selection.Regionalization,
			Spatial:         req.Selection.Spatial,
			Temporal:        req.Selection.Temporal,
		}
	}
	if a := result.Annotation; a != nil {
		av := &AnnotationView{
			SpatialClass: string(a.Spatial),
			SpatialLabel: a.Spatial.Label(),
			SpatialColor: a.Spatial.Color(),
		}
		if a.TemporalCount.Valid {
			n := a.TemporalCount.Int64
			av.TemporalCount = &n
		}
		view.Annotation = av
	}
	for _, r := range result.Records {
		view.Records = append(view.Records, RecordView{
			Date:               r.Date.Format(time.DateOnly),
			TWSA:               nullable(r.TWSA),
			Predicted:          nullable(r.Predicted),
			PredictedConfident: nullable(r.PredictedConfident),
			Observed:           nullable(r.Observed),
			Pass:               r.Pass,
		})
	}
	return view
}

func newSiteFeature(site models.Site) SiteFeature {
	return SiteFeature{
		Type: "Feature",
		Geometry: SiteGeometry{
			Type:        "Point",
			Coordinates: [2]float64{site.Longitude, site.Latitude},
		},
		Properties: SiteProperties{
			SiteID:       site.SiteID,
			DrainageArea: nullable(site.DrainageArea),
			OverpassDays: site.OverpassDays,
		},
	}
}

func newTableData(req discharge.Request, resp discharge.Response) TableData {
	data := TableData{SiteID: req.SiteID}
	if resp.Empty() {
		data.Reason = resp.Reason
		return data
	}
	data.SiteID = resp.Result.Site.SiteID
	for _, r := range resp.Result.Records {
		data.Rows = append(data.Rows, TableRow{
			Date:               r.Date.Format(time.DateOnly),
			Predicted:          formatCell(r.Predicted),
			PredictedConfident: formatCell(r.PredictedConfident),
			Observed:           formatCell(r.Observed),
		})
	}
	return data
}
