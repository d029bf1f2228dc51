package tspaths

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-zglob"
	"github.com/sirupsen/logrus"

	"github.com/jward/tspaths/internal/extract"
	"github.com/jward/tspaths/internal/store"
)

// OutcomeUnsupported is the stored outcome for specifiers rejected with
// ErrLoaderSyntax.
const OutcomeUnsupported = "unsupported"

// ErrNoDatabase is returned by scan and query operations on an Engine
// created without WithDatabase.
var ErrNoDatabase = errors.New("tspaths: engine has no database")

// ScanSummary reports one ScanDirectory run.
type ScanSummary struct {
	ID     string
	Root   string
	Config string
	// FilesScanned counts every file whose imports were resolved;
	// FilesSkipped counts the subset whose content was unchanged, so their
	// stored specifiers were reused instead of reparsing.
	FilesScanned int
	FilesSkipped int
	BytesScanned int64
	Imports      int
	Resolved     int
	Unresolved   int
	NotAliased   int
	Unsupported  int
	// Pruned counts indexed files under Root that no longer exist.
	Pruned   int
	Duration time.Duration
}

// ScanOption configures one ScanDirectory call.
type ScanOption func(*scanConfig)

type scanConfig struct {
	force bool
}

// ScanForce reparses every file even when its content hash is unchanged.
func ScanForce() ScanOption {
	return func(c *scanConfig) {
		c.force = true
	}
}

// workItem holds everything a scan worker needs for one file.
type workItem struct {
	path    string
	lang    string
	content []byte
	hash    string
	cfgPath string

	// imports is pre-filled from the index when the file is unchanged.
	imports []extract.Import
	reused  bool
}

// scanResult is a worker's output for one file.
type scanResult struct {
	item    workItem
	file    *store.File
	imports []*store.Import
	err     error
}

// ScanDirectory finds the TypeScript and JavaScript sources under root
// selected by the nearest config's include and exclude globs, extracts
// their import specifiers, resolves each one, and records the results.
//
// Parsing is skipped for files whose content hash is unchanged since the
// last scan, but every specifier is resolved again: files on disk may have
// appeared or disappeared since.
func (e *Engine) ScanDirectory(ctx context.Context, root string, opts ...ScanOption) (*ScanSummary, error) {
	if e.store == nil {
		return nil, ErrNoDatabase
	}
	var cfg scanConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	start := time.Now()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("tspaths: resolve %s: %w", root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tspaths: scan %s: %w", abs, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("tspaths: scan %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tspaths: scan %s: not a directory", abs)
	}

	summary := &ScanSummary{ID: uuid.NewString(), Root: abs}

	var include, exclude []string
	cfgPath, err := e.cache.ConfigForDir(abs)
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		ct, err := e.cache.GetConfig(ctx, cfgPath)
		if err != nil {
			return nil, err
		}
		summary.Config = cfgPath
		include, exclude = ct.Config.Include, ct.Config.Exclude
	}

	paths, err := listSourceFiles(abs, include, exclude)
	if err != nil {
		return nil, err
	}
	log := e.log.WithFields(logrus.Fields{"scan": summary.ID, "root": abs})
	log.WithField("files", len(paths)).Debug("Scanning sources.")

	var items []workItem
	for _, path := range paths {
		item, err := e.prepareFile(path, cfg.force)
		if err != nil {
			return nil, fmt.Errorf("tspaths: prepare %s: %w", path, err)
		}
		items = append(items, item)
	}

	var results []scanResult
	if e.useParallel {
		results = e.processParallel(ctx, items)
	} else {
		results = e.processSerial(ctx, items)
	}
	// A cancelled scan leaves the index as it was.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tspaths: scan %s: %w", abs, err)
	}

	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.store.CommitFile(res.file, res.imports); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		summary.add(res)
	}

	pruned, err := e.pruneMissing(abs, paths)
	if err != nil {
		errs = append(errs, err)
	}
	summary.Pruned = pruned

	summary.Duration = time.Since(start)
	if err := e.store.InsertScan(&store.Scan{
		ID:           summary.ID,
		Root:         abs,
		StartedAt:    start,
		FinishedAt:   time.Now(),
		FilesScanned: summary.FilesScanned,
		FilesSkipped: summary.FilesSkipped,
		BytesScanned: summary.BytesScanned,
		Imports:      summary.Imports,
		Resolved:     summary.Resolved,
		Unresolved:   summary.Unresolved,
	}); err != nil {
		return summary, fmt.Errorf("tspaths: record scan: %w", err)
	}

	if len(errs) > 0 {
		return summary, fmt.Errorf("tspaths: scan had %d error(s): %w", len(errs), errs[0])
	}
	log.WithFields(logrus.Fields{
		"files":      summary.FilesScanned,
		"imports":    summary.Imports,
		"unresolved": summary.Unresolved,
	}).Info("Scan complete.")
	return summary, nil
}

func (s *ScanSummary) add(res scanResult) {
	s.FilesScanned++
	if res.item.reused {
		s.FilesSkipped++
	}
	s.BytesScanned += int64(len(res.item.content))
	for _, imp := range res.imports {
		s.Imports++
		switch imp.Outcome {
		case Resolved.String():
			s.Resolved++
		case AliasUnresolved.String():
			s.Unresolved++
		case OutcomeUnsupported:
			s.Unsupported++
		default:
			s.NotAliased++
		}
	}
}

// prepareFile reads a file and, when its content is unchanged since the
// last scan and force is off, loads its stored specifiers so the worker can
// skip parsing.
func (e *Engine) prepareFile(path string, force bool) (workItem, error) {
	lang, _ := extract.LanguageForFile(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, fmt.Errorf("read file: %w", err)
	}
	item := workItem{
		path:    path,
		lang:    lang,
		content: content,
		hash:    store.ComputeContentHash(content),
	}
	if item.cfgPath, err = e.cache.ConfigFor(path); err != nil {
		return workItem{}, err
	}

	if force {
		return item, nil
	}
	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, fmt.Errorf("lookup file: %w", err)
	}
	if existing == nil || existing.Hash != item.hash {
		return item, nil
	}

	stored, err := e.store.ImportsByFile(existing.ID)
	if err != nil {
		return workItem{}, fmt.Errorf("load stored imports: %w", err)
	}
	item.imports = make([]extract.Import, len(stored))
	for i, imp := range stored {
		item.imports[i] = extract.Import{Specifier: imp.Specifier, Kind: imp.Kind, Line: imp.Line, Col: imp.Col}
	}
	item.reused = true
	return item, nil
}

// processFile extracts (unless reused) and resolves one file's imports.
func (e *Engine) processFile(ctx context.Context, item workItem) scanResult {
	res := scanResult{item: item}

	specs := item.imports
	if !item.reused {
		var err error
		specs, err = extract.Extract(ctx, item.lang, item.content)
		if err != nil {
			res.err = err
			return res
		}
	}

	res.file = &store.File{
		Path:        item.path,
		Language:    item.lang,
		Hash:        item.hash,
		ConfigPath:  item.cfgPath,
		Size:        int64(len(item.content)),
		LastIndexed: time.Now(),
	}
	for _, spec := range specs {
		r, err := e.ResolveImport(ctx, item.path, spec.Specifier)
		outcome := r.Outcome.String()
		if err != nil {
			if !errors.Is(err, ErrLoaderSyntax) {
				res.err = err
				return res
			}
			outcome = OutcomeUnsupported
		}
		res.imports = append(res.imports, &store.Import{
			Specifier:    spec.Specifier,
			Kind:         spec.Kind,
			Line:         spec.Line,
			Col:          spec.Col,
			Outcome:      outcome,
			Alias:        string(r.Alias),
			ResolvedPath: r.AbsPath,
		})
	}
	return res
}

// pruneMissing drops index rows for files under root that the scan did
// not list.
func (e *Engine) pruneMissing(root string, listed []string) (int, error) {
	keep := make(map[string]bool, len(listed))
	for _, p := range listed {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n := 0
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, root+string(filepath.Separator)) {
			continue
		}
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return n, fmt.Errorf("prune %s: %w", f.Path, err)
		}
		n++
	}
	return n, nil
}

func (e *Engine) processSerial(ctx context.Context, items []workItem) []scanResult {
	results := make([]scanResult, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, scanResult{item: item, err: err})
			continue
		}
		results = append(results, e.processFile(ctx, item))
	}
	return results
}

// listSourceFiles expands include globs (default: everything under root),
// keeps files with a known source extension inside root, and drops
// node_modules and anything matching an exclude glob. The result is sorted.
func listSourceFiles(root string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = []string{filepath.Join(root, "**", "*")}
	}

	seen := map[string]bool{}
	var out []string
	for _, pattern := range include {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			pattern = filepath.Join(pattern, "**", "*")
		}
		matches, err := zglob.Glob(pattern)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("tspaths: glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !isSourceFile(root, m) {
				continue
			}
			excluded, err := matchesAny(exclude, m)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func isSourceFile(root, path string) bool {
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return false
	}
	if _, ok := extract.LanguageForFile(path); !ok {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "node_modules" || (strings.HasPrefix(part, ".") && part != "." && part != "..") {
			return false
		}
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, p := range patterns {
		if strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true, nil
		}
		ok, err := zglob.Match(p, path)
		if err != nil {
			return false, fmt.Errorf("tspaths: exclude pattern %s: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
