package store

import (
	"database/sql"
	"fmt"
)

const fileColumns = "id, path, language, hash, config_path, size, last_indexed"

func scanFile(row interface{ Scan(...any) error }, f *File) error {
	var hash, cfg sql.NullString
	var indexed sql.NullTime
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &hash, &cfg, &f.Size, &indexed); err != nil {
		return err
	}
	f.Hash = hash.String
	f.ConfigPath = cfg.String
	f.LastIndexed = indexed.Time
	return nil
}

// UpsertFile inserts f or updates the row with the same path, and sets f.ID.
func (s *Store) UpsertFile(f *File) (int64, error) {
	return upsertFileTx(s.db, f)
}

type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertFileTx(q execQuerier, f *File) (int64, error) {
	_, err := q.Exec(
		`INSERT INTO files (path, language, hash, config_path, size, last_indexed) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET language = excluded.language, hash = excluded.hash,
		   config_path = excluded.config_path, size = excluded.size, last_indexed = excluded.last_indexed`,
		f.Path, f.Language, f.Hash, f.ConfigPath, f.Size, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	// LastInsertId is unreliable for the update branch of an upsert.
	var id int64
	if err := q.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert file id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file with the given path, or nil if none.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path), f)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT " + fileColumns + " FROM files ORDER BY path")
}

// FilesByConfig returns the files whose nearest config is cfgPath.
func (s *Store) FilesByConfig(cfgPath string) ([]*File, error) {
	return s.queryFiles("SELECT "+fileColumns+" FROM files WHERE config_path = ? ORDER BY path", cfgPath)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := scanFile(rows, f); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
