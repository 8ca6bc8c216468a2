package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/discharge"
)

type DeriveCmd struct {
	Site string `arg:"" help:"Gauge site id."`
	JSON bool   `name:"json" help:"Print JSON instead of a table."`

	Dataset   config.Dataset   `embed:""`
	Strategy  config.Strategy  `embed:""`
	Selection config.Selection `embed:""`
}

func (c *DeriveCmd) Run(rc *runContext) error {
	p, err := buildPipeline(c.Dataset, c.Strategy, rc.logger)
	if err != nil {
		return err
	}

	req := discharge.Request{
		SiteID: c.Site,
		Selection: discharge.Selection{
			Regionalization: c.Selection.Regionalization,
			Spatial:         c.Selection.Spatial,
			Temporal:        c.Selection.Temporal,
		},
		Cutoff: c.Strategy.Cutoff,
	}
	resp := p.service.Handle(rc.ctx, req)
	if resp.Empty() {
		return fmt.Errorf("no discharge for %s: %s", c.Site, resp.Reason)
	}

	if c.JSON {
		return writeResultJSON(os.Stdout, resp.Result)
	}
	return writeResultTable(os.Stdout, resp.Result)
}

type recordJSON struct {
	Date               string   `json:"date"`
	TWSA               *float64 `json:"twsa"`
	Predicted          *float64 `json:"predicted"`
	PredictedConfident *float64 `json:"predicted_confident"`
	Observed           *float64 `json:"observed"`
	Pass               int      `json:"pass,omitempty"`
}

func writeResultJSON(w io.Writer, result *discharge.Result) error {
	out := struct {
		Site     string       `json:"site"`
		Strategy string       `json:"strategy"`
		Spatial  string       `json:"spatial_class,omitempty"`
		Records  []recordJSON `json:"records"`
	}{
		Site:     result.Site.SiteID,
		Strategy: result.Strategy,
		Records:  make([]recordJSON, 0, len(result.Records)),
	}
	if result.Annotation != nil {
		out.Spatial = result.Annotation.Spatial.Label()
	}
	for _, r := range result.Records {
		out.Records = append(out.Records, recordJSON{
			Date:               r.Date.Format(time.DateOnly),
			TWSA:               ptr(r.TWSA.Float64, r.TWSA.Valid),
			Predicted:          ptr(r.Predicted.Float64, r.Predicted.Valid),
			PredictedConfident: ptr(r.PredictedConfident.Float64, r.PredictedConfident.Valid),
			Observed:           ptr(r.Observed.Float64, r.Observed.Valid),
			Pass:               r.Pass,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeResultTable(w io.Writer, result *discharge.Result) error {
	fmt.Fprintf(w, "site %s (%s)", result.Site.SiteID, result.Strategy)
	if a := result.Annotation; a != nil {
		fmt.Fprintf(w, ", spatial %s", a.Spatial.Label())
		if a.TemporalCount.Valid {
			fmt.Fprintf(w, ", %d confident months", a.TemporalCount.Int64)
		}
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetHeader([]string{"date", "twsa", "predicted", "confident", "observed"})
	for _, r := range result.Records {
		table.Append([]string{
			r.Date.Format(time.DateOnly),
			cell(r.TWSA.Float64, r.TWSA.Valid),
			cell(r.Predicted.Float64, r.Predicted.Valid),
			cell(r.PredictedConfident.Float64, r.PredictedConfident.Valid),
			cell(r.Observed.Float64, r.Observed.Valid),
		})
	}
	table.Render()
	return nil
}

// ptr drops values JSON cannot carry.
func ptr(v float64, valid bool) *float64 {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func cell(v float64, valid bool) string {
	if !valid {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
