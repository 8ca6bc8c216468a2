package dataset

import (
	"database/sql"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/models"
)

// loadSiteMap reads the point features shown on the dashboard map. A name
// ending in .shp is read as a shapefile (with its .dbf sidecar); anything
// else is read as CSV.
func loadSiteMap(src Source, name string, cols config.Columns) ([]models.Site, error) {
	if strings.EqualFold(path.Ext(name), ".shp") {
		return loadSiteShapefile(src, name, cols)
	}
	t, err := readTable(src, name)
	if err != nil {
		return nil, err
	}
	return sitesFromTable(t, cols)
}

func sitesFromTable(t *table, cols config.Columns) ([]models.Site, error) {
	idCol, err := t.column(cols.SiteID)
	if err != nil {
		return nil, err
	}
	latCol, err := t.column(cols.Latitude)
	if err != nil {
		return nil, err
	}
	lonCol, err := t.column(cols.Longitude)
	if err != nil {
		return nil, err
	}
	areaCol, hasArea := t.index[cols.Area]
	passCol, hasPass := t.index[cols.Overpass]

	b := newSiteBuilder()
	for _, row := range t.rows {
		lat := ParseNullFloat(cell(row, latCol))
		lon := ParseNullFloat(cell(row, lonCol))
		if !lat.Valid || !lon.Valid {
			continue
		}
		site := models.Site{
			SiteID:    CanonicalSiteID(cell(row, idCol)),
			Latitude:  lat.Float64,
			Longitude: lon.Float64,
		}
		if hasArea {
			site.DrainageArea = ParseNullFloat(cell(row, areaCol))
		}
		var pass sql.NullFloat64
		if hasPass {
			pass = ParseNullFloat(cell(row, passCol))
		}
		b.add(site, pass)
	}
	return b.sites, nil
}

func loadSiteShapefile(src Source, name string, cols config.Columns) ([]models.Site, error) {
	shpFile, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	dbfFile, err := src.Open(strings.TrimSuffix(name, path.Ext(name)) + ".dbf")
	if err != nil {
		shpFile.Close()
		return nil, err
	}

	r := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer r.Close()

	fieldIndex := make(map[string]int)
	for i, f := range r.Fields() {
		fieldIndex[strings.TrimSpace(f.String())] = i
	}
	idField, ok := fieldIndex[cols.SiteID]
	if !ok {
		return nil, fmt.Errorf("%s: missing attribute %q", name, cols.SiteID)
	}
	latField, hasLat := fieldIndex[cols.Latitude]
	lonField, hasLon := fieldIndex[cols.Longitude]
	areaField, hasArea := fieldIndex[cols.Area]
	passField, hasPass := fieldIndex[cols.Overpass]

	b := newSiteBuilder()
	for r.Next() {
		_, shape := r.Shape()
		site := models.Site{SiteID: CanonicalSiteID(attr(r, idField))}

		lat, lon := sql.NullFloat64{}, sql.NullFloat64{}
		if hasLat && hasLon {
			lat = ParseNullFloat(attr(r, latField))
			lon = ParseNullFloat(attr(r, lonField))
		}
		if !lat.Valid || !lon.Valid {
			p, ok := shape.(*shp.Point)
			if !ok {
				continue
			}
			lat = sql.NullFloat64{Float64: p.Y, Valid: true}
			lon = sql.NullFloat64{Float64: p.X, Valid: true}
		}
		site.Latitude, site.Longitude = lat.Float64, lon.Float64

		if hasArea {
			site.DrainageArea = ParseNullFloat(attr(r, areaField))
		}
		var pass sql.NullFloat64
		if hasPass {
			pass = ParseNullFloat(attr(r, passField))
		}
		b.add(site, pass)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b.sites, nil
}

// siteBuilder merges repeated features for the same gauge. The orbit join in
// the source data yields one row per intersecting swath, each with its own
// overpass day.
type siteBuilder struct {
	sites []models.Site
	index map[string]int
}

func newSiteBuilder() *siteBuilder {
	return &siteBuilder{index: make(map[string]int)}
}

func (b *siteBuilder) add(site models.Site, pass sql.NullFloat64) {
	if site.SiteID == "" {
		return
	}
	i, ok := b.index[site.SiteID]
	if !ok {
		b.index[site.SiteID] = len(b.sites)
		b.sites = append(b.sites, site)
		i = len(b.sites) - 1
	}
	if pass.Valid {
		day := int(math.Floor(pass.Float64))
		for _, d := range b.sites[i].OverpassDays {
			if d == day {
				return
			}
		}
		b.sites[i].OverpassDays = append(b.sites[i].OverpassDays, day)
	}
}

func attr(r shp.SequentialReader, field int) string {
	return strings.Trim(r.Attribute(field), "\x00 ")
}
