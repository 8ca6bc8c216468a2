package discharge

import (
	"database/sql"
	"math"

	"github.com/lox/qtwsa/internal/dataset"
)

// SpatialClass is the spatial feasibility class of a gauge.
type SpatialClass string

const (
	SpatialPoor      SpatialClass = "Poor"
	SpatialGood      SpatialClass = "Good"
	SpatialVeryGood  SpatialClass = "VeryGood"
	SpatialExcellent SpatialClass = "Excellent"
	SpatialUnknown   SpatialClass = "Unknown"
)

var spatialByCode = [...]SpatialClass{SpatialPoor, SpatialGood, SpatialVeryGood, SpatialExcellent}

// ClassifySpatial maps a raw class code to its class. Codes 0-3 map to
// Poor..Excellent; anything else, including non-numeric text, is Unknown.
func ClassifySpatial(raw string) SpatialClass {
	v := dataset.ParseNullFloat(raw)
	if !v.Valid || v.Float64 != math.Trunc(v.Float64) {
		return SpatialUnknown
	}
	code := int(v.Float64)
	if code < 0 || code >= len(spatialByCode) {
		return SpatialUnknown
	}
	return spatialByCode[code]
}

// Label returns the display label.
func (c SpatialClass) Label() string {
	switch c {
	case SpatialVeryGood:
		return "Very Good"
	case SpatialPoor, SpatialGood, SpatialExcellent:
		return string(c)
	default:
		return "Unknown"
	}
}

// Color returns the badge colour used by the dashboard.
func (c SpatialClass) Color() string {
	switch c {
	case SpatialPoor:
		return "red"
	case SpatialGood:
		return "lightgreen"
	case SpatialVeryGood:
		return "green"
	case SpatialExcellent:
		return "darkgreen"
	default:
		return "black"
	}
}

// Annotation carries the quality indicators shown next to a hydrograph.
type Annotation struct {
	Spatial       SpatialClass
	SpatialRaw    string
	TemporalCount sql.NullInt64 // months with confident results
	TemporalRaw   string
}

// Annotator reads feasibility indicators from the parameter table.
type Annotator struct {
	engine *Engine
}

func NewAnnotator(engine *Engine) *Annotator {
	return &Annotator{engine: engine}
}

// Annotate returns the spatial class and temporal count for a gauge under the
// selected spatial and temporal models.
func (a *Annotator) Annotate(comid int64, spatialModel, temporalModel string) (Annotation, error) {
	sm, err := a.engine.spatial(spatialModel)
	if err != nil {
		return Annotation{}, err
	}
	tm, err := a.engine.temporal(temporalModel)
	if err != nil {
		return Annotation{}, err
	}

	params := a.engine.ds.Parameters()
	spatialRaw, err := params.Cell(comid, sm.Class)
	if err != nil {
		return Annotation{}, &MissingCoefficientError{Kind: "spatial", Model: sm.Name, Column: sm.Class, CorrelationID: comid}
	}
	temporalRaw, err := params.Cell(comid, tm.Count)
	if err != nil {
		return Annotation{}, &MissingCoefficientError{Kind: "temporal", Model: tm.Name, Column: tm.Count, CorrelationID: comid}
	}

	ann := Annotation{
		Spatial:     ClassifySpatial(spatialRaw),
		SpatialRaw:  spatialRaw,
		TemporalRaw: temporalRaw,
	}
	if n, ok := dataset.ParseID(temporalRaw); ok {
		ann.TemporalCount = sql.NullInt64{Int64: n, Valid: true}
	}
	return ann, nil
}
