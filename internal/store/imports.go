package store

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/lox/qtwsa/internal/dataset"
)

var _ dataset.Source = (*Store)(nil)

// ImportRun records one refresh of the bundle.
type ImportRun struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	Source          string // data directory or mirror host
	AssetsImported  sql.NullInt64
	AssetsUnchanged sql.NullInt64
	Success         bool
	ErrorMessage    sql.NullString
}

func (s *Store) StartImportRun(source string) (*ImportRun, error) {
	run := &ImportRun{StartedAt: time.Now().UTC(), Source: source}
	result, err := s.db.Exec(`
		INSERT INTO import_runs (started_at, source, success) VALUES (?, ?, FALSE)
	`, run.StartedAt, run.Source)
	if err != nil {
		return nil, err
	}
	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) CompleteImportRun(run *ImportRun) error {
	if run == nil {
		return nil
	}
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	_, err := s.db.Exec(`
		UPDATE import_runs SET
			finished_at = ?,
			assets_imported = ?,
			assets_unchanged = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.AssetsImported, run.AssetsUnchanged, run.Success, run.ErrorMessage, run.ID)
	return err
}

// LatestImportRun returns the most recent run, or nil when none exist.
func (s *Store) LatestImportRun() (*ImportRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, source, assets_imported, assets_unchanged, success, error_message
		FROM import_runs ORDER BY started_at DESC, id DESC LIMIT 1
	`)
	var r ImportRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.AssetsImported, &r.AssetsUnchanged, &r.Success, &r.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Import copies the named assets from src into the bundle inside an audited
// import run. All assets are written in one transaction: a missing or
// unreadable asset fails the run and leaves the bundle unchanged.
func (s *Store) Import(src dataset.Source, sourceName string, names []string) (*ImportRun, error) {
	run, err := s.StartImportRun(sourceName)
	if err != nil {
		return nil, fmt.Errorf("start import run: %w", err)
	}

	var imported, unchanged int64
	importErr := func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin import: %w", err)
		}
		for _, name := range names {
			content, err := readAll(src, name)
			if err != nil {
				tx.Rollback()
				return err
			}
			changed, err := putAsset(tx, name, content)
			if err != nil {
				tx.Rollback()
				return err
			}
			if changed {
				imported++
				s.logger.Info("asset imported", "name", name, "bytes", len(content))
			} else {
				unchanged++
				s.logger.Debug("asset unchanged", "name", name)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit import: %w", err)
		}
		return nil
	}()
	if importErr != nil {
		imported, unchanged = 0, 0
	}

	run.AssetsImported = sql.NullInt64{Int64: imported, Valid: true}
	run.AssetsUnchanged = sql.NullInt64{Int64: unchanged, Valid: true}
	run.Success = importErr == nil
	if importErr != nil {
		run.ErrorMessage = sql.NullString{String: importErr.Error(), Valid: true}
	}
	if err := s.CompleteImportRun(run); err != nil {
		return run, fmt.Errorf("complete import run: %w", err)
	}
	return run, importErr
}

func readAll(src dataset.Source, name string) ([]byte, error) {
	rc, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}
