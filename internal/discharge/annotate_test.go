package discharge

import (
	"errors"
	"testing"

	"github.com/lox/qtwsa/internal/logging"
)

func TestClassifySpatial(t *testing.T) {
	tests := []struct {
		raw   string
		want  SpatialClass
		label string
		color string
	}{
		{"0", SpatialPoor, "Poor", "red"},
		{"1", SpatialGood, "Good", "lightgreen"},
		{"2", SpatialVeryGood, "Very Good", "green"},
		{"3", SpatialExcellent, "Excellent", "darkgreen"},
		{"3.0", SpatialExcellent, "Excellent", "darkgreen"},
		{"4", SpatialUnknown, "Unknown", "black"},
		{"-1", SpatialUnknown, "Unknown", "black"},
		{"1.5", SpatialUnknown, "Unknown", "black"},
		{"abc", SpatialUnknown, "Unknown", "black"},
		{"", SpatialUnknown, "Unknown", "black"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ClassifySpatial(tt.raw)
			if got != tt.want {
				t.Errorf("ClassifySpatial(%q) = %s, want %s", tt.raw, got, tt.want)
			}
			if got.Label() != tt.label {
				t.Errorf("Label() = %q, want %q", got.Label(), tt.label)
			}
			if got.Color() != tt.color {
				t.Errorf("Color() = %q, want %q", got.Color(), tt.color)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	ds := loadFixture(t, buildSource(monthlyDates(3), []testGauge{
		{comid: 1, site: "1001", twsa: constSeries(3, 1)},
		{comid: 2, site: "1002", twsa: constSeries(3, 1), params: map[string]string{"RF_td": "n/a"}},
	}))
	annotator := NewAnnotator(NewEngine(ds, DefaultCatalog(), logging.Discard()))

	ann, err := annotator.Annotate(1, "XGB", "RF")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if ann.Spatial != SpatialVeryGood {
		t.Errorf("Spatial = %s, want VeryGood", ann.Spatial)
	}
	if !ann.TemporalCount.Valid || ann.TemporalCount.Int64 != 4 {
		t.Errorf("TemporalCount = %v, want 4", ann.TemporalCount)
	}

	ann, err = annotator.Annotate(1, "SVC", "XT")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if ann.Spatial != SpatialUnknown || ann.SpatialRaw != "abc" {
		t.Errorf("Spatial = %s (%q), want Unknown (abc)", ann.Spatial, ann.SpatialRaw)
	}
	if ann.TemporalCount.Int64 != 12 {
		t.Errorf("TemporalCount = %v, want 12", ann.TemporalCount)
	}

	// The RF spatial class column is empty in the published table.
	ann, err = annotator.Annotate(2, "RF", "RF")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if ann.Spatial != SpatialUnknown {
		t.Errorf("Spatial = %s, want Unknown", ann.Spatial)
	}
	if ann.TemporalCount.Valid {
		t.Errorf("TemporalCount = %v, want null", ann.TemporalCount)
	}

	_, err = annotator.Annotate(1, "CNN", "RF")
	var missing *MissingCoefficientError
	if !errors.As(err, &missing) || missing.Kind != "spatial" {
		t.Errorf("err = %v, want spatial MissingCoefficientError", err)
	}
}
