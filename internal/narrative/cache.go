package narrative

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/qtwsa/internal/discharge"
)

// Cache stores narratives as text files, one per request key.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates the cache directory if needed. Entries older than maxAge
// are regenerated.
func NewCache(dir string, maxAge time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create narrative cache dir: %w", err)
	}
	return &Cache{dir: dir, maxAge: maxAge}, nil
}

// CacheKey identifies a narrative by strategy, site, models and cutoff. The
// readable prefix is sanitized for use in a file name; the hash suffix keeps
// keys distinct when sanitizing maps two inputs to the same prefix.
func CacheKey(strategy string, req discharge.Request) string {
	parts := []string{
		strategy,
		req.SiteID,
		req.Selection.Regionalization,
		req.Selection.Spatial,
		req.Selection.Temporal,
	}
	if !req.Cutoff.IsZero() {
		parts = append(parts, req.Cutoff.Format("20060102"))
	}
	raw := strings.Join(parts, "_")
	sum := sha256.Sum256([]byte(raw))
	return sanitize(raw) + "_" + hex.EncodeToString(sum[:4])
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, "narrative_"+key+".txt")
}

func (c *Cache) Get(key string) (string, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (c *Cache) Set(key, text string) error {
	return os.WriteFile(c.path(key), []byte(text), 0o644)
}
