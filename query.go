package tspaths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/tspaths/internal/store"
)

// QueryBuilder reads the scan index.
type QueryBuilder struct {
	store *store.Store
}

// Query returns a QueryBuilder over the Engine's index, or nil without a
// database.
func (e *Engine) Query() *QueryBuilder {
	if e.store == nil {
		return nil
	}
	return &QueryBuilder{store: e.store}
}

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with the total match count.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
}

// ImportFilter selects imports. Zero fields match everything.
type ImportFilter struct {
	Outcomes   []string // match any of these outcomes
	Kind       string
	Alias      string
	PathPrefix string // importing file lies under this directory; made absolute
}

// Imports lists import sites matching filter, ordered by file and position.
func (q *QueryBuilder) Imports(filter ImportFilter, page Pagination) (*PagedResult[*ImportSite], error) {
	page = page.normalize()

	var where []string
	var args []any
	if len(filter.Outcomes) > 0 {
		where = append(where, "i.outcome IN ("+strings.Repeat("?,", len(filter.Outcomes)-1)+"?)")
		for _, o := range filter.Outcomes {
			args = append(args, o)
		}
	}
	if filter.Kind != "" {
		where = append(where, "i.kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Alias != "" {
		where = append(where, "i.alias = ?")
		args = append(args, filter.Alias)
	}
	if filter.PathPrefix != "" {
		abs, err := filepath.Abs(filter.PathPrefix)
		if err != nil {
			return nil, fmt.Errorf("imports: path prefix: %w", err)
		}
		where = append(where, "f.path LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(normalizePathPrefix(abs))+"%")
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM imports i JOIN files f ON f.id = i.file_id " + whereClause
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("imports: count: %w", err)
	}

	dataSQL := "SELECT " + store.ImportColumns + ", f.path FROM imports i JOIN files f ON f.id = i.file_id " +
		whereClause + " ORDER BY f.path, i.line, i.col LIMIT ? OFFSET ?"
	rows, err := q.store.DB().Query(dataSQL, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("imports: query: %w", err)
	}
	defer rows.Close()

	items := []*ImportSite{}
	for rows.Next() {
		site, err := store.ScanImportSite(rows)
		if err != nil {
			return nil, fmt.Errorf("imports: scan: %w", err)
		}
		items = append(items, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("imports: rows: %w", err)
	}
	return &PagedResult[*ImportSite]{Items: items, TotalCount: total}, nil
}

// Unresolved returns every import that matched an alias but resolved to no
// file.
func (q *QueryBuilder) Unresolved() ([]*ImportSite, error) {
	return q.store.ImportsByOutcome(AliasUnresolved.String())
}

// ImportsOf returns the imports recorded for one file in source order, or
// nil if the file is not indexed.
func (q *QueryBuilder) ImportsOf(path string) ([]*Import, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("imports of %s: %w", path, err)
	}
	f, err := q.store.FileByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("imports of %s: %w", path, err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ImportsByFile(f.ID)
}

// Dependents returns the import sites whose alias resolved to path.
func (q *QueryBuilder) Dependents(path string) ([]*ImportSite, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("dependents of %s: %w", path, err)
	}
	return q.store.Dependents(abs)
}

// AliasUsage counts how often one alias pattern was used.
type AliasUsage struct {
	Alias      string
	Imports    int
	Unresolved int
}

// IndexSummary is a high-level overview of the index.
type IndexSummary struct {
	Files      int
	Configs    int
	Imports    int
	Outcomes   []OutcomeCount
	TopAliases []AliasUsage
	LastScan   *Scan
}

// Summary reports file and import counts, the outcome histogram, the topN
// most used aliases, and the latest scan.
func (q *QueryBuilder) Summary(topN int) (*IndexSummary, error) {
	summary := &IndexSummary{}

	db := q.store.DB()
	if err := db.QueryRow(
		"SELECT COUNT(*), COUNT(DISTINCT NULLIF(config_path, '')) FROM files",
	).Scan(&summary.Files, &summary.Configs); err != nil {
		return nil, fmt.Errorf("summary: files: %w", err)
	}

	outcomes, err := q.store.OutcomeCounts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	summary.Outcomes = outcomes
	if summary.Outcomes == nil {
		summary.Outcomes = []OutcomeCount{}
	}
	for _, oc := range outcomes {
		summary.Imports += oc.Count
	}

	summary.TopAliases = []AliasUsage{}
	if topN > 0 {
		rows, err := db.Query(
			`SELECT alias, COUNT(*) AS uses, SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END)
			 FROM imports WHERE alias IS NOT NULL
			 GROUP BY alias ORDER BY uses DESC, alias LIMIT ?`,
			AliasUnresolved.String(), topN,
		)
		if err != nil {
			return nil, fmt.Errorf("summary: aliases: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var u AliasUsage
			if err := rows.Scan(&u.Alias, &u.Imports, &u.Unresolved); err != nil {
				return nil, fmt.Errorf("summary: scan alias: %w", err)
			}
			summary.TopAliases = append(summary.TopAliases, u)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("summary: alias rows: %w", err)
		}
	}

	if summary.LastScan, err = q.store.LatestScan(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return summary, nil
}

// normalizePathPrefix ensures a path prefix ends with "/" so "src/app"
// does not match "src/application".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
