package discharge

import (
	"errors"
	"fmt"
)

// SiteNotFoundError reports a site id that matches no gauge by string or by
// integer form.
type SiteNotFoundError struct {
	SiteID string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site %q not found", e.SiteID)
}

// NoDataReason says why a derivation produced no records.
type NoDataReason string

const (
	ReasonMissingTWSA         NoDataReason = "missing_twsa"
	ReasonEmptyAfterMerge     NoDataReason = "empty_after_merge"
	ReasonSWOTPassUnavailable NoDataReason = "swot_pass_unavailable"
	ReasonNoObservations      NoDataReason = "no_observations"
	ReasonUpstreamTimeout     NoDataReason = "upstream_timeout"
)

type NoDataError struct {
	Reason NoDataReason
	Detail string
}

func (e *NoDataError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("no data: %s", e.Reason)
	}
	return fmt.Sprintf("no data: %s: %s", e.Reason, e.Detail)
}

// MissingCoefficientError reports an unknown model name, or a model whose
// columns are absent or empty for the requested gauge.
type MissingCoefficientError struct {
	Kind          string // regionalization, spatial or temporal
	Model         string
	Column        string
	CorrelationID int64
}

func (e *MissingCoefficientError) Error() string {
	switch {
	case e.Column == "":
		return fmt.Sprintf("unknown %s model %q", e.Kind, e.Model)
	case e.CorrelationID == 0:
		return fmt.Sprintf("%s model %q: column %q not available", e.Kind, e.Model, e.Column)
	default:
		return fmt.Sprintf("%s model %q: no value in column %q for comid %d", e.Kind, e.Model, e.Column, e.CorrelationID)
	}
}

// UpstreamServiceError wraps a failure of the external streamflow service.
type UpstreamServiceError struct {
	SiteID string
	Err    error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("streamflow service for %s: %v", e.SiteID, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}

// Reason maps a derivation error to the short code shown to the UI.
func Reason(err error) string {
	var (
		notFound *SiteNotFoundError
		noData   *NoDataError
		missing  *MissingCoefficientError
		upstream *UpstreamServiceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return "site_not_found"
	case errors.As(err, &noData):
		return string(noData.Reason)
	case errors.As(err, &missing):
		return "missing_coefficient"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "internal"
	}
}
