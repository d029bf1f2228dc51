package tspaths

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/tspaths/internal/runtime"
	"github.com/jward/tspaths/internal/store"
	"github.com/jward/tspaths/internal/tsconfig"
	"github.com/jward/tspaths/scripts"
)

// DefaultImporterExtensions limits alias resolution to imports written in
// TypeScript files; imports from other files get NotAnAlias.
var DefaultImporterExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// Engine is the host side of alias resolution: it discovers the config that
// applies to an importing file, builds and caches its alias table, and
// resolves specifiers against it. With a database it also scans projects
// and records every import and its resolution.
type Engine struct {
	resolver *Resolver
	cache    *TableCache
	store    *store.Store
	runtime  *runtime.Runtime
	log      *logrus.Entry

	dbPath          string
	configNames     []string
	defaultBaseURL  string
	importerExts    map[string]bool
	generators      []string
	generatorPrefix string
	resolverOpts    []ResolverOption
	scriptsDir      string
	scriptsFS       fs.FS

	// useParallel enables the worker pool in ScanDirectory.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDatabase backs the Engine with a SQLite scan index at path.
func WithDatabase(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithResolverOptions passes options through to the Resolver.
func WithResolverOptions(opts ...ResolverOption) Option {
	return func(e *Engine) {
		e.resolverOpts = append(e.resolverOpts, opts...)
	}
}

// WithConfigNames sets the config file names searched for, in priority order.
func WithConfigNames(names ...string) Option {
	return func(e *Engine) {
		e.configNames = append([]string(nil), names...)
	}
}

// WithDefaultBaseURL sets the base directory used when no config in a
// chain declares baseUrl.
func WithDefaultBaseURL(base string) Option {
	return func(e *Engine) {
		e.defaultBaseURL = base
	}
}

// WithImporterExtensions restricts which importing files get alias
// resolution. An empty list accepts every importer.
func WithImporterExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.importerExts = make(map[string]bool, len(exts))
		for _, ext := range normalizeExtensions(exts) {
			e.importerExts[ext] = true
		}
	}
}

// WithGenerators enables alias generator scripts by name (e.g. "dirs").
func WithGenerators(names ...string) Option {
	return func(e *Engine) {
		e.generators = append([]string(nil), names...)
	}
}

// WithGeneratorPrefix sets the alias prefix passed to generator scripts.
func WithGeneratorPrefix(prefix string) Option {
	return func(e *Engine) {
		e.generatorPrefix = prefix
	}
}

// WithScriptsFS loads generator scripts from fsys instead of the embedded set.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads generator scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithLogger sets the diagnostics sink.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithParallel controls the scan worker pool. When true (default),
// ScanDirectory extracts and resolves files on a worker pool with a single
// goroutine committing to SQLite.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// New creates an Engine. Without WithDatabase the Engine resolves imports
// but cannot scan or query.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		configNames:     tsconfig.DefaultNames,
		defaultBaseURL:  tsconfig.DefaultBaseURL,
		generatorPrefix: "@",
		useParallel:     true,
		log:             discardLogger(),
	}
	WithImporterExtensions(DefaultImporterExtensions...)(e)
	for _, opt := range opts {
		opt(e)
	}

	resolverOpts := append([]ResolverOption{WithResolverLogger(e.log)}, e.resolverOpts...)
	e.resolver = NewResolver(resolverOpts...)
	e.cache = NewTableCache(e.configNames, e.loadTable, e.log)

	var rtOpts []runtime.RuntimeOption
	switch {
	case e.scriptsFS != nil:
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	case e.scriptsDir == "":
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(scripts.FS))
	}
	rtOpts = append(rtOpts, runtime.WithRuntimeLogger(e.log.WithField("component", "generator")))
	e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("tspaths: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("tspaths: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil without a database.
func (e *Engine) Store() *Store {
	return e.store
}

// Resolver returns the Engine's Resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Cache returns the Engine's table cache.
func (e *Engine) Cache() *TableCache {
	return e.cache
}

// ResolveImport resolves specifier as imported from the file importer. A
// specifier that matches no alias but uses bundler loader syntax is
// rejected with ErrLoaderSyntax; every other unmatched specifier yields a
// NotAnAlias result and a nil error.
func (e *Engine) ResolveImport(ctx context.Context, importer, specifier string) (Result, error) {
	notAlias := func() (Result, error) {
		return Result{Specifier: specifier, Outcome: NotAnAlias}, CheckLoaderSyntax(specifier)
	}
	if !e.AcceptsImporter(importer) {
		return notAlias()
	}

	abs, err := filepath.Abs(importer)
	if err != nil {
		return Result{}, fmt.Errorf("tspaths: resolve importer %s: %w", importer, err)
	}

	ct, err := e.cache.Get(ctx, abs)
	if err != nil {
		return Result{Specifier: specifier}, err
	}
	if ct == nil {
		e.log.WithField("importer", abs).Debug("No config applies to importer.")
		return notAlias()
	}

	e.log.WithFields(logrus.Fields{"importer": abs, "config": ct.Config.Path}).Debug("Resolving TypeScript import.")
	res := e.resolver.Resolve(ct.Table, specifier)
	if res.Outcome == NotAnAlias {
		return res, CheckLoaderSyntax(specifier)
	}
	return res, nil
}

// Table returns the alias table that applies to importer, or nil when no
// config exists above it.
func (e *Engine) Table(ctx context.Context, importer string) (*CachedTable, error) {
	abs, err := filepath.Abs(importer)
	if err != nil {
		return nil, fmt.Errorf("tspaths: resolve importer %s: %w", importer, err)
	}
	return e.cache.Get(ctx, abs)
}

// AcceptsImporter reports whether imports from path are alias-resolved.
func (e *Engine) AcceptsImporter(path string) bool {
	if len(e.importerExts) == 0 {
		return true
	}
	return e.importerExts[strings.ToLower(filepath.Ext(path))]
}

// Watch evicts cached tables as their configs change. It blocks until ctx
// is done. onChange may be nil.
func (e *Engine) Watch(ctx context.Context, onChange func(path string, evicted []string)) error {
	return e.cache.Watch(ctx, onChange)
}

// loadTable is the TableCache loader: parse the config chain, append
// generated aliases, and build the table.
func (e *Engine) loadTable(ctx context.Context, cfgPath string) (*CachedTable, error) {
	cfg, err := tsconfig.Load(cfgPath, tsconfig.Options{DefaultBaseURL: e.defaultBaseURL})
	if err != nil {
		return nil, fmt.Errorf("tspaths: load config: %w", err)
	}

	raw := make([]RawPath, 0, len(cfg.Paths))
	declared := make(map[string]bool, len(cfg.Paths))
	for _, p := range cfg.Paths {
		raw = append(raw, RawPath{Alias: p.Alias, Value: p.Value})
		declared[p.Alias] = true
	}

	for _, name := range e.generators {
		generated, err := e.runtime.RunGenerator(ctx, name, runtime.GeneratorInput{
			BaseDir:   cfg.BaseDir,
			ConfigDir: cfg.Dir,
			Prefix:    e.generatorPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("tspaths: generator %s for %s: %w", name, cfgPath, err)
		}
		for _, g := range generated {
			if declared[g.Alias] {
				continue
			}
			raw = append(raw, RawPath{Alias: g.Alias, Value: g.Value})
			declared[g.Alias] = true
		}
	}

	t, err := Build(cfg.BaseDir, raw)
	if err != nil {
		return nil, fmt.Errorf("tspaths: build table for %s: %w", cfgPath, err)
	}
	return &CachedTable{Table: t, Config: cfg}, nil
}

// CheckLoaderSyntax rejects bundler loader syntax that path aliases cannot
// express: webpack's "~pkg" module prefix and "!"-separated loader chains.
// "~/x" is left alone since it is a common alias spelling.
func CheckLoaderSyntax(specifier string) error {
	if strings.HasPrefix(specifier, "~") && !strings.HasPrefix(specifier, "~/") {
		return fmt.Errorf("%w: %q uses the webpack ~ prefix; import the path without it", ErrLoaderSyntax, specifier)
	}
	if strings.Contains(specifier, "!") {
		return fmt.Errorf("%w: %q uses a loader chain", ErrLoaderSyntax, specifier)
	}
	return nil
}
