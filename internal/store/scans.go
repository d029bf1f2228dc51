package store

import (
	"database/sql"
	"fmt"
)

// InsertScan records a scan run.
func (s *Store) InsertScan(sc *Scan) error {
	_, err := s.db.Exec(
		`INSERT INTO scans (id, root, started_at, finished_at, files_scanned, files_skipped, bytes_scanned, imports, resolved, unresolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Root, sc.StartedAt, sc.FinishedAt, sc.FilesScanned, sc.FilesSkipped, sc.BytesScanned,
		sc.Imports, sc.Resolved, sc.Unresolved,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// LatestScan returns the most recently started scan, or nil if none.
func (s *Store) LatestScan() (*Scan, error) {
	sc := &Scan{}
	var finished sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, root, started_at, finished_at, files_scanned, files_skipped, bytes_scanned, imports, resolved, unresolved
		 FROM scans ORDER BY started_at DESC LIMIT 1`,
	).Scan(&sc.ID, &sc.Root, &sc.StartedAt, &finished, &sc.FilesScanned, &sc.FilesSkipped, &sc.BytesScanned,
		&sc.Imports, &sc.Resolved, &sc.Unresolved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest scan: %w", err)
	}
	sc.FinishedAt = finished.Time
	return sc, nil
}
