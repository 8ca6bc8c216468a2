package discharge

import (
	"encoding/json"
	"fmt"
	"os"
)

// monthPrefixes are the month spellings used in the per-month confidence
// column names, e.g. "Sept_RF".
var monthPrefixes = [12]string{"Jan", "Feb", "March", "April", "May", "June", "July", "Aug", "Sept", "Oct", "Nov", "Dec"}

type RegionalizationModel struct {
	Name  string `json:"name"`
	Alpha string `json:"alpha"`
	Beta  string `json:"beta"`
}

type SpatialModel struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

type TemporalModel struct {
	Name   string     `json:"name"`
	Count  string     `json:"count"`
	Months [12]string `json:"months"`
}

// Catalog maps model names to parameter table columns.
type Catalog struct {
	Regionalization []RegionalizationModel `json:"regionalization"`
	Spatial         []SpatialModel         `json:"spatial"`
	Temporal        []TemporalModel        `json:"temporal"`
}

// DefaultCatalog returns the column layout of the published parameter table.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Regionalization: []RegionalizationModel{
			{Name: "NuSVR", Alpha: "NUSVR_alpha", Beta: "NUSVR_beta"},
			{Name: "GP", Alpha: "GP_alpha", Beta: "GP_beta"},
			{Name: "GB", Alpha: "GB_alpha", Beta: "GB_beta"},
		},
		Spatial: []SpatialModel{
			{Name: "XGB", Class: "xgb_sd"},
			{Name: "SVC", Class: "svc_sd"},
			// The published table stores the RF spatial class under rf_td.
			{Name: "RF", Class: "rf_td"},
		},
		Temporal: []TemporalModel{
			temporalModel("XT", "XT_td"),
			temporalModel("NN", "NN_td"),
			temporalModel("RF", "RF_td"),
		},
	}
}

func temporalModel(name, count string) TemporalModel {
	m := TemporalModel{Name: name, Count: count}
	for i, p := range monthPrefixes {
		m.Months[i] = p + "_" + name
	}
	return m
}

// LoadCatalog reads a JSON catalog. Temporal models without month columns get
// the default "<Month>_<name>" spelling.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, m := range c.Temporal {
		if m.Months == ([12]string{}) {
			c.Temporal[i].Months = temporalModel(m.Name, m.Count).Months
		}
	}
	return &c, nil
}

func (c *Catalog) RegionalizationModel(name string) (RegionalizationModel, bool) {
	for _, m := range c.Regionalization {
		if m.Name == name {
			return m, true
		}
	}
	return RegionalizationModel{}, false
}

func (c *Catalog) SpatialModel(name string) (SpatialModel, bool) {
	for _, m := range c.Spatial {
		if m.Name == name {
			return m, true
		}
	}
	return SpatialModel{}, false
}

func (c *Catalog) TemporalModel(name string) (TemporalModel, bool) {
	for _, m := range c.Temporal {
		if m.Name == name {
			return m, true
		}
	}
	return TemporalModel{}, false
}

// Names lists the model names per kind in catalog order.
func (c *Catalog) Names() (regionalization, spatial, temporal []string) {
	for _, m := range c.Regionalization {
		regionalization = append(regionalization, m.Name)
	}
	for _, m := range c.Spatial {
		spatial = append(spatial, m.Name)
	}
	for _, m := range c.Temporal {
		temporal = append(temporal, m.Name)
	}
	return regionalization, spatial, temporal
}

// columnSet is the part of the parameter table a catalog is checked against.
type columnSet interface {
	HasColumn(name string) bool
}

// Validate returns a copy of the catalog holding only models whose columns
// all exist, plus one error per dropped model.
func (c *Catalog) Validate(cols columnSet) (*Catalog, []error) {
	out := &Catalog{}
	var dropped []error

	for _, m := range c.Regionalization {
		if col := firstMissing(cols, m.Alpha, m.Beta); col != "" {
			dropped = append(dropped, &MissingCoefficientError{Kind: "regionalization", Model: m.Name, Column: col})
			continue
		}
		out.Regionalization = append(out.Regionalization, m)
	}
	for _, m := range c.Spatial {
		if col := firstMissing(cols, m.Class); col != "" {
			dropped = append(dropped, &MissingCoefficientError{Kind: "spatial", Model: m.Name, Column: col})
			continue
		}
		out.Spatial = append(out.Spatial, m)
	}
	for _, m := range c.Temporal {
		if col := firstMissing(cols, append([]string{m.Count}, m.Months[:]...)...); col != "" {
			dropped = append(dropped, &MissingCoefficientError{Kind: "temporal", Model: m.Name, Column: col})
			continue
		}
		out.Temporal = append(out.Temporal, m)
	}
	return out, dropped
}

func firstMissing(cols columnSet, names ...string) string {
	for _, n := range names {
		if n == "" {
			return "<unset>"
		}
		if !cols.HasColumn(n) {
			return n
		}
	}
	return ""
}
