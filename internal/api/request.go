package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lox/qtwsa/internal/discharge"
)

// parseRequest reads site, model and cutoff parameters. Missing models fall
// back to the dashboard defaults.
func (s *Server) parseRequest(r *http.Request) (discharge.Request, error) {
	q := r.URL.Query()
	req := discharge.Request{
		SiteID:    strings.TrimSpace(q.Get("site")),
		Selection: s.defaults,
	}
	if req.SiteID == "" {
		return req, fmt.Errorf("missing site parameter")
	}
	if v := q.Get("regionalization"); v != "" {
		req.Selection.Regionalization = v
	}
	if v := q.Get("spatial"); v != "" {
		req.Selection.Spatial = v
	}
	if v := q.Get("temporal"); v != "" {
		req.Selection.Temporal = v
	}
	if v := q.Get("cutoff"); v != "" {
		cutoff, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return req, fmt.Errorf("invalid cutoff %q: want YYYY-MM-DD", v)
		}
		req.Cutoff = cutoff
	}
	return req, nil
}

func requestKey(req discharge.Request) string {
	key := strings.Join([]string{req.SiteID, req.Selection.Regionalization, req.Selection.Spatial, req.Selection.Temporal}, "|")
	if !req.Cutoff.IsZero() {
		key += "|" + req.Cutoff.Format(time.DateOnly)
	}
	return key
}
