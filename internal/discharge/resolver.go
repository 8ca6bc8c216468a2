package discharge

import (
	"github.com/lox/qtwsa/internal/dataset"
)

// SiteKey identifies a gauge by its external site id and the correlation id
// (COMID) that indexes the per-gauge tables.
type SiteKey struct {
	SiteID        string
	CorrelationID int64
}

type Resolver struct {
	sites *dataset.SiteKeyMap
}

func NewResolver(sites *dataset.SiteKeyMap) *Resolver {
	return &Resolver{sites: sites}
}

// Resolve maps a site id to its correlation id.
func (r *Resolver) Resolve(siteID string) (SiteKey, error) {
	canonical := dataset.CanonicalSiteID(siteID)
	comid, ok := r.sites.Lookup(canonical)
	if !ok {
		return SiteKey{}, &SiteNotFoundError{SiteID: siteID}
	}
	return SiteKey{SiteID: canonical, CorrelationID: comid}, nil
}
