package store

import (
	"database/sql"
	"fmt"
)

// ImportColumns is the column list scanImport and ScanImportSite expect,
// qualified with the alias "i" for the imports table.
const ImportColumns = "i.id, i.file_id, i.specifier, i.kind, i.line, i.col, i.outcome, i.alias, i.resolved_path"

func scanImport(row interface{ Scan(...any) error }, imp *Import, extra ...any) error {
	var alias, resolved sql.NullString
	dest := []any{&imp.ID, &imp.FileID, &imp.Specifier, &imp.Kind, &imp.Line, &imp.Col, &imp.Outcome, &alias, &resolved}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	imp.Alias = alias.String
	imp.ResolvedPath = resolved.String
	return nil
}

// ScanImportSite scans a row of ImportColumns followed by the file path.
func ScanImportSite(row interface{ Scan(...any) error }) (*ImportSite, error) {
	site := &ImportSite{}
	if err := scanImport(row, &site.Import, &site.FilePath); err != nil {
		return nil, err
	}
	return site, nil
}

func insertImportTx(tx *sql.Tx, imp *Import) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO imports (file_id, specifier, kind, line, col, outcome, alias, resolved_path) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		imp.FileID, imp.Specifier, imp.Kind, imp.Line, imp.Col, imp.Outcome, nullIfEmpty(imp.Alias), nullIfEmpty(imp.ResolvedPath),
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	imp.ID = id
	return id, nil
}

// CommitFile upserts f and replaces all of its imports within a single
// transaction. Each import's FileID is set to f's ID.
func (s *Store) CommitFile(f *File, imports []*Import) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit file: begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFileTx(tx, f)
	if err != nil {
		return fmt.Errorf("commit file %s: %w", f.Path, err)
	}
	if _, err := tx.Exec("DELETE FROM imports WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("commit file %s: delete imports: %w", f.Path, err)
	}
	for _, imp := range imports {
		imp.FileID = fileID
		if _, err := insertImportTx(tx, imp); err != nil {
			return fmt.Errorf("commit file %s: import %q: %w", f.Path, imp.Specifier, err)
		}
	}
	return tx.Commit()
}

// ImportsByFile returns the imports of one file in source order.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT "+ImportColumns+" FROM imports i WHERE i.file_id = ? ORDER BY i.line, i.col", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var out []*Import
	for rows.Next() {
		imp := &Import{}
		if err := scanImport(rows, imp); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// ImportsByOutcome returns every import with the given outcome, joined with
// the importing file's path.
func (s *Store) ImportsByOutcome(outcome string) ([]*ImportSite, error) {
	return s.querySites(
		"SELECT "+ImportColumns+", f.path FROM imports i JOIN files f ON f.id = i.file_id WHERE i.outcome = ? ORDER BY f.path, i.line, i.col",
		outcome,
	)
}

// Dependents returns the imports that resolved to resolvedPath.
func (s *Store) Dependents(resolvedPath string) ([]*ImportSite, error) {
	return s.querySites(
		"SELECT "+ImportColumns+", f.path FROM imports i JOIN files f ON f.id = i.file_id WHERE i.resolved_path = ? ORDER BY f.path, i.line, i.col",
		resolvedPath,
	)
}

// OutcomeCounts returns the number of imports per outcome.
func (s *Store) OutcomeCounts() ([]OutcomeCount, error) {
	rows, err := s.db.Query("SELECT outcome, COUNT(*) FROM imports GROUP BY outcome ORDER BY outcome")
	if err != nil {
		return nil, fmt.Errorf("outcome counts: %w", err)
	}
	defer rows.Close()
	var out []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Outcome, &oc.Count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

func (s *Store) querySites(query string, args ...any) ([]*ImportSite, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()
	var out []*ImportSite
	for rows.Next() {
		site, err := ScanImportSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, site)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
