package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrAssetNotFound is returned by Open for names not in the bundle.
var ErrAssetNotFound = errors.New("asset not found")

// Asset describes a stored file without its content.
type Asset struct {
	Name           string
	SHA256         string
	Size           int64
	CompressedSize int64
	ImportedAt     time.Time
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// PutAsset stores content under name, gzip-compressed. It reports false when
// the bundle already holds identical content for the name.
func (s *Store) PutAsset(name string, content []byte) (bool, error) {
	return putAsset(s.db, name, content)
}

func putAsset(q execQuerier, name string, content []byte) (bool, error) {
	hash := sha256.Sum256(content)
	hashHex := hex.EncodeToString(hash[:])

	var existing string
	err := q.QueryRow(`SELECT sha256 FROM assets WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil && existing == hashHex:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("check asset %s: %w", name, err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		return false, fmt.Errorf("compress %s: %w", name, err)
	}
	if err := gz.Close(); err != nil {
		return false, fmt.Errorf("close gzip: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO assets (name, sha256, size, content_compressed, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			sha256 = excluded.sha256,
			size = excluded.size,
			content_compressed = excluded.content_compressed,
			imported_at = excluded.imported_at
	`, name, hashHex, len(content), buf.Bytes(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert asset %s: %w", name, err)
	}
	return true, nil
}

// Open returns the decompressed content of an asset. Store satisfies
// dataset.Source.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT content_compressed FROM assets WHERE name = ?`, name).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open %s: %w", name, ErrAssetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	content, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// ListAssets returns every asset ordered by name.
func (s *Store) ListAssets() ([]Asset, error) {
	rows, err := s.db.Query(`
		SELECT name, sha256, size, LENGTH(content_compressed), imported_at
		FROM assets ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Name, &a.SHA256, &a.Size, &a.CompressedSize, &a.ImportedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
