// Package chart renders discharge hydrographs as PNG images for clients that
// cannot run the interactive dashboard chart.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/lox/qtwsa/internal/models"
)

const (
	Width  = 1000
	Height = 480
)

var (
	colorGrid      = color.RGBA{225, 225, 225, 255}
	colorMuted     = color.RGBA{110, 110, 110, 255}
	colorPredicted = color.RGBA{70, 130, 180, 255}
	colorConfident = color.RGBA{0, 128, 0, 255}
	colorObserved  = color.RGBA{0, 0, 0, 255}
)

// Hydrograph is the input to Render.
type Hydrograph struct {
	Title    string
	Subtitle string
	Records  []models.DischargeRecord
}

// Render draws predicted discharge as a line, confident months as a heavier
// line and observed discharge as points.
func Render(h Hydrograph) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	p := newPlot(h)

	predicted := segments(h.Records, func(r models.DischargeRecord) (float64, bool) {
		return r.Predicted.Float64, r.Predicted.Valid
	})
	confident := segments(h.Records, func(r models.DischargeRecord) (float64, bool) {
		return r.PredictedConfident.Float64, r.PredictedConfident.Valid
	})
	observed := points(h.Records, func(r models.DischargeRecord) (float64, bool) {
		return r.Observed.Float64, r.Observed.Valid
	})

	if len(predicted) == 0 && len(confident) == 0 && len(observed) == 0 {
		if err := drawEmpty(p); err != nil {
			return nil, err
		}
		return encode(p)
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = colorGrid
	grid.Horizontal.Color = colorGrid
	p.Add(grid)

	if err := addLines(p, "Predicted", predicted, colorPredicted, vg.Points(1)); err != nil {
		return nil, err
	}
	if err := addLines(p, "Confident", confident, colorConfident, vg.Points(2)); err != nil {
		return nil, err
	}
	if len(observed) > 0 {
		s, err := plotter.NewScatter(observed)
		if err != nil {
			return nil, fmt.Errorf("observed series: %w", err)
		}
		s.GlyphStyle.Color = colorObserved
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("Observed", s)
	}

	p.Y.Min = math.Min(0, p.Y.Min)
	p.Y.Max *= 1.05
	if p.X.Min == p.X.Max {
		pad := (15 * 24 * time.Hour).Seconds()
		p.X.Min -= pad
		p.X.Max += pad
	}
	if years := (p.X.Max - p.X.Min) / (365 * 24 * time.Hour).Seconds(); years < 1 {
		p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2006"}
	}

	return encode(p)
}

func newPlot(h Hydrograph) *plot.Plot {
	p := plot.New()

	label := font.From(goFont, 13)
	p.Title.Text = h.Title
	if h.Subtitle != "" {
		p.Title.Text += "\n" + h.Subtitle
	}
	p.Title.TextStyle.Font = font.From(goFont, 18)
	p.X.Tick.Label.Font = label
	p.Y.Tick.Label.Font = label
	p.Y.Label.Text = "m³/s"
	p.Y.Label.TextStyle.Font = label
	p.Y.Label.TextStyle.Color = colorMuted
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	p.Legend.TextStyle.Font = label
	p.Legend.Top = true
	return p
}

// segments splits a series into runs of consecutive valid values so a null
// breaks the line.
func segments(records []models.DischargeRecord, value func(models.DischargeRecord) (float64, bool)) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for _, r := range records {
		v, ok := value(r)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: unix(r.Date), Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func points(records []models.DischargeRecord, value func(models.DischargeRecord) (float64, bool)) plotter.XYs {
	var out plotter.XYs
	for _, seg := range segments(records, value) {
		out = append(out, seg...)
	}
	return out
}

func addLines(p *plot.Plot, name string, segs []plotter.XYs, c color.Color, width vg.Length) error {
	for i, seg := range segs {
		l, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("%s series: %w", name, err)
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = width
		p.Add(l)
		if i == 0 {
			p.Legend.Add(name, l)
		}
	}
	return nil
}

func drawEmpty(p *plot.Plot) error {
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0, Y: 0}},
		Labels: []string{"No discharge data"},
	})
	if err != nil {
		return fmt.Errorf("empty label: %w", err)
	}
	labels.TextStyle[0] = text.Style{
		Color:   colorMuted,
		Font:    font.From(goFont, 13),
		XAlign:  text.XCenter,
		YAlign:  text.YCenter,
		Handler: labels.TextStyle[0].Handler,
	}
	p.Add(labels)
	p.HideAxes()
	return nil
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

func encode(p *plot.Plot) ([]byte, error) {
	c := vgimg.PngCanvas{Canvas: vgimg.NewWith(
		vgimg.UseWH(vg.Length(Width), vg.Length(Height)),
		vgimg.UseDPI(72),
	)}
	p.Draw(draw.New(c))

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode hydrograph: %w", err)
	}
	return buf.Bytes(), nil
}
