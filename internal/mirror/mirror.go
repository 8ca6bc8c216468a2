// Package mirror downloads the published dataset files from an FTP server
// into a local data directory.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/qtwsa/internal/config"
)

// Fetched describes one downloaded file.
type Fetched struct {
	Name  string
	Bytes int64
}

// remote is the subset of an FTP session the mirror needs.
type remote interface {
	Get(path string) (io.ReadCloser, error)
	Close() error
}

type Mirror struct {
	cfg    config.Mirror
	logger *slog.Logger
	dial   func(ctx context.Context) (remote, error)
}

func New(cfg config.Mirror, logger *slog.Logger) *Mirror {
	m := &Mirror{cfg: cfg, logger: logger}
	m.dial = m.dialFTP
	return m
}

type ftpRemote struct {
	conn *ftp.ServerConn
}

func (r ftpRemote) Get(p string) (io.ReadCloser, error) {
	resp, err := r.conn.Retr(p)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r ftpRemote) Close() error {
	return r.conn.Quit()
}

func (m *Mirror) dialFTP(ctx context.Context) (remote, error) {
	conn, err := ftp.Dial(m.cfg.Host, ftp.DialWithTimeout(m.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	if err := conn.Login(m.cfg.User, m.cfg.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return ftpRemote{conn: conn}, nil
}

// Fetch downloads each named file into destDir, preserving relative paths.
// Files are written to a temporary name and renamed once complete.
func (m *Mirror) Fetch(ctx context.Context, names []string, destDir string) ([]Fetched, error) {
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var fetched []Fetched
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		start := time.Now()
		n, err := m.fetchOne(conn, name, destDir)
		if err != nil {
			return fetched, err
		}
		m.logger.Info("mirrored asset", "name", name, "bytes", n, "elapsed", time.Since(start).Round(time.Millisecond))
		fetched = append(fetched, Fetched{Name: name, Bytes: n})
	}
	return fetched, nil
}

func (m *Mirror) fetchOne(conn remote, name, destDir string) (int64, error) {
	body, err := conn.Get(path.Join(m.cfg.RemoteDir, name))
	if err != nil {
		return 0, fmt.Errorf("ftp retr %s: %w", name, err)
	}
	defer body.Close()

	dest := filepath.Join(destDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create dir for %s: %w", name, err)
	}
	return writeAtomic(dest, body)
}

func writeAtomic(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename %s: %w", dest, err)
	}
	return n, nil
}
