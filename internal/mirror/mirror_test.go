package mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/logging"
)

type fakeRemote struct {
	files  map[string]string
	closed bool
}

func (f *fakeRemote) Get(p string) (io.ReadCloser, error) {
	content, ok := f.files[p]
	if !ok {
		return nil, errors.New("550 file not found")
	}
	return io.NopCloser(bytes.NewReader([]byte(content))), nil
}

func (f *fakeRemote) Close() error {
	f.closed = true
	return nil
}

func newTestMirror(r *fakeRemote) *Mirror {
	m := New(config.Mirror{Host: "ftp.example.com:21", RemoteDir: "/pub/qtwsa"}, logging.Discard())
	m.dial = func(context.Context) (remote, error) { return r, nil }
	return m
}

func TestFetch(t *testing.T) {
	r := &fakeRemote{files: map[string]string{
		"/pub/qtwsa/dates.csv":                     ",datetime\n0,2002-04-15\n",
		"/pub/qtwsa/usgs-gauges/gauges_global.shp": "shp",
	}}
	dest := t.TempDir()

	fetched, err := newTestMirror(r).Fetch(context.Background(), []string{"dates.csv", "usgs-gauges/gauges_global.shp"}, dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("len(fetched) = %d, want 2", len(fetched))
	}
	if fetched[1].Bytes != 3 {
		t.Errorf("fetched[1].Bytes = %d, want 3", fetched[1].Bytes)
	}
	if !r.closed {
		t.Error("remote not closed")
	}

	got, err := os.ReadFile(filepath.Join(dest, "usgs-gauges", "gauges_global.shp"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "shp" {
		t.Errorf("content = %q, want shp", got)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name()[0] == '.' {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFetch_MissingFile(t *testing.T) {
	r := &fakeRemote{files: map[string]string{}}

	fetched, err := newTestMirror(r).Fetch(context.Background(), []string{"missing.csv"}, t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fetched) != 0 {
		t.Errorf("fetched = %v, want none", fetched)
	}
}

func TestFetch_Cancelled(t *testing.T) {
	r := &fakeRemote{files: map[string]string{"/pub/qtwsa/a.csv": "a"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestMirror(r).Fetch(ctx, []string{"a.csv"}, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
