package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/mirror"
	"github.com/lox/qtwsa/internal/store"
)

type SitesCmd struct {
	Dataset config.Dataset `embed:""`
}

func (c *SitesCmd) Run(rc *runContext) error {
	ds, err := loadDataset(c.Dataset, rc.logger)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(true)
	table.SetHeader([]string{"site", "comid", "lat", "lon", "area", "overpass"})
	for _, site := range ds.SiteMap() {
		comid := "-"
		if id, ok := ds.Sites().Lookup(site.SiteID); ok {
			comid = dataset.FormatID(id)
		}
		area := "-"
		if site.DrainageArea.Valid {
			area = fmt.Sprintf("%g", site.DrainageArea.Float64)
		}
		table.Append([]string{
			site.SiteID,
			comid,
			fmt.Sprintf("%.4f", site.Latitude),
			fmt.Sprintf("%.4f", site.Longitude),
			area,
			fmt.Sprint(site.OverpassDays),
		})
	}
	table.Render()
	return nil
}

type ImportCmd struct {
	Dataset config.Dataset `embed:""`
}

func (c *ImportCmd) Run(rc *runContext) error {
	if c.Dataset.Bundle == "" {
		return fmt.Errorf("--bundle is required")
	}
	st, err := store.Open(c.Dataset.Bundle, rc.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Import(dataset.DirSource{Dir: c.Dataset.DataDir}, c.Dataset.DataDir, dataset.AssetNames(c.Dataset))
	if err != nil {
		return fmt.Errorf("import into %s: %w", c.Dataset.Bundle, err)
	}
	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	rc.logger.Info("bundle import complete",
		"bundle", c.Dataset.Bundle,
		"schema", version,
		"imported", run.AssetsImported.Int64,
		"unchanged", run.AssetsUnchanged.Int64,
	)

	// Load from the bundle to prove it is complete.
	_, err = load(st, c.Dataset, rc.logger)
	return err
}

type FetchCmd struct {
	Dataset config.Dataset `embed:""`
	Mirror  config.Mirror  `embed:"" prefix:"mirror-"`
}

func (c *FetchCmd) Run(rc *runContext) error {
	if err := os.MkdirAll(c.Dataset.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fetched, err := mirror.New(c.Mirror, rc.logger).Fetch(rc.ctx, dataset.AssetNames(c.Dataset), c.Dataset.DataDir)
	if err != nil {
		return err
	}
	var total int64
	for _, f := range fetched {
		total += f.Bytes
	}
	rc.logger.Info("mirror complete", "files", len(fetched), "bytes", total, "dir", c.Dataset.DataDir)
	return nil
}
