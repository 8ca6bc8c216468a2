package models

import (
	"database/sql"
	"time"
)

type DateEntry struct {
	Seq  int64
	Date time.Time
}

// Site is a point feature on the dashboard map.
type Site struct {
	SiteID       string
	Latitude     float64
	Longitude    float64
	DrainageArea sql.NullFloat64
	OverpassDays []int // SWOT revisit days, from FIRST_DayT
}

type ObservedDischarge struct {
	SiteID    string
	Date      time.Time
	Year      int
	Month     time.Month
	Discharge sql.NullFloat64
}

// DischargeRecord is one output row of a derivation.
type DischargeRecord struct {
	Date               time.Time
	Month              time.Month
	Year               int
	TWSA               sql.NullFloat64
	Predicted          sql.NullFloat64
	PredictedConfident sql.NullFloat64
	Observed           sql.NullFloat64
	SiteID             string
	Pass               int // SWOT revisit day (legacy strategy only)
}
