package dataset

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lox/qtwsa/internal/config"
)

// Source opens named dataset assets. The directory source reads the
// deployment's static files; store.Store serves the same names from a SQLite
// bundle.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// DirSource reads assets relative to a directory.
type DirSource struct {
	Dir string
}

func (d DirSource) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Dir, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// AssetNames lists every file a dataset load reads, including the sidecars of
// a shapefile site map.
func AssetNames(cfg config.Dataset) []string {
	var names []string
	for _, name := range cfg.Files() {
		names = append(names, name)
		if ext := path.Ext(name); strings.EqualFold(ext, ".shp") {
			base := strings.TrimSuffix(name, ext)
			names = append(names, base+".dbf", base+".shx")
		}
	}
	return names
}
