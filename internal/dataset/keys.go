package dataset

import (
	"strconv"
	"strings"
)

// SiteKeyMap maps external site identifiers to correlation ids and back.
// Ids are indexed in their trimmed string form and, when numeric, in their
// integer form so "01013500" and 1013500 resolve to the same gauge.
type SiteKeyMap struct {
	byString   map[string]int64
	byInt      map[int64]int64
	siteOf     map[int64]string
	order      []string
	duplicates []string
}

func newSiteKeyMap() *SiteKeyMap {
	return &SiteKeyMap{
		byString: make(map[string]int64),
		byInt:    make(map[int64]int64),
		siteOf:   make(map[int64]string),
	}
}

// add registers a site id. The first registration of a key wins; later ones
// are recorded as duplicates.
func (m *SiteKeyMap) add(siteID string, comid int64) {
	siteID = CanonicalSiteID(siteID)
	if siteID == "" {
		return
	}
	if _, ok := m.byString[siteID]; ok {
		m.duplicates = append(m.duplicates, siteID)
		return
	}
	m.byString[siteID] = comid
	m.order = append(m.order, siteID)
	if n, ok := numericSiteID(siteID); ok {
		if _, taken := m.byInt[n]; !taken {
			m.byInt[n] = comid
		}
	}
	if _, ok := m.siteOf[comid]; !ok {
		m.siteOf[comid] = siteID
	}
}

// Lookup resolves a site id to its correlation id: exact string match first,
// then integer match.
func (m *SiteKeyMap) Lookup(siteID string) (int64, bool) {
	siteID = CanonicalSiteID(siteID)
	if comid, ok := m.byString[siteID]; ok {
		return comid, true
	}
	if n, ok := numericSiteID(siteID); ok {
		if comid, ok := m.byInt[n]; ok {
			return comid, true
		}
	}
	return 0, false
}

// SiteFor returns the first site id registered for a correlation id.
func (m *SiteKeyMap) SiteFor(comid int64) (string, bool) {
	s, ok := m.siteOf[comid]
	return s, ok
}

// SiteIDs returns site ids in file order.
func (m *SiteKeyMap) SiteIDs() []string {
	return append([]string(nil), m.order...)
}

// Duplicates lists site ids that appeared more than once.
func (m *SiteKeyMap) Duplicates() []string {
	return append([]string(nil), m.duplicates...)
}

func (m *SiteKeyMap) Len() int {
	return len(m.byString)
}

// CanonicalSiteID trims whitespace and a trailing ".0" left behind when a
// numeric id column was stored as floats.
func CanonicalSiteID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(s[:len(s)-2], 10, 64); err == nil {
			s = s[:len(s)-2]
		}
	}
	return s
}

func numericSiteID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
