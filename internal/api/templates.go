package api

import (
	"database/sql"
	"embed"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"reasonText": reasonText,
		"upper":      strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// formatCell renders a table value rounded to 4 decimals, blank when missing.
func formatCell(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', 4, 64)
}

func reasonText(reason string) string {
	switch reason {
	case "site_not_found":
		return "This gauge is not in the dataset."
	case "missing_twsa":
		return "No TWSA series is available for this gauge."
	case "missing_coefficient":
		return "The selected model has no coefficients for this gauge."
	case "empty_after_merge":
		return "No dates remain on or before the cutoff."
	case "no_observations":
		return "No gauge observations are available."
	case "swot_pass_unavailable":
		return "No SWOT overpass falls on an observed day."
	case "upstream_timeout":
		return "The streamflow service did not respond in time."
	case "upstream_error":
		return "The streamflow service returned an error."
	default:
		return "Discharge could not be derived for this gauge."
	}
}
