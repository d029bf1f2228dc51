// Package tsconfig locates and parses tsconfig.json / jsconfig.json files,
// following "extends" chains, and yields the alias entries of
// compilerOptions.paths in declaration order.
package tsconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

// DefaultNames are the config file names looked for, in priority order.
var DefaultNames = []string{"tsconfig.json", "jsconfig.json"}

// DefaultBaseURL is used when no config in the chain sets baseUrl.
const DefaultBaseURL = "src"

var (
	// ErrNotFound is returned by Find when no config exists up to the root.
	ErrNotFound = errors.New("tsconfig: no config file found")
	// ErrExtendsCycle is returned when a config extends itself transitively.
	ErrExtendsCycle = errors.New("tsconfig: extends cycle")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PathEntry is one compilerOptions.paths entry. Value is a string, a []any,
// or whatever malformed value the file contained.
type PathEntry struct {
	Alias string
	Value any
}

// Config is a fully loaded config with its extends chain applied.
type Config struct {
	// Path is the absolute path of the loaded file.
	Path string
	// Dir is the directory containing Path.
	Dir string
	// BaseURL is the baseUrl as written, or the default when unset.
	BaseURL string
	// BaseDir is BaseURL resolved against the config that declared it.
	BaseDir string
	// Paths are the alias entries of the nearest config that declares paths.
	Paths []PathEntry
	// Include and Exclude are glob patterns made absolute against the config
	// that declared them.
	Include []string
	Exclude []string
	// CompilerOptions is the merged compilerOptions map, child values winning.
	CompilerOptions map[string]any
	// Chain lists every file read, the loaded file first.
	Chain []string
}

// Options controls loading.
type Options struct {
	// DefaultBaseURL replaces DefaultBaseURL when non-empty.
	DefaultBaseURL string
}

// Find walks up from startDir and returns the first file named one of names.
func Find(startDir string, names []string) (string, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrapf(err, "tsconfig: resolve %s", startDir)
	}
	for {
		for _, name := range names {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Wrapf(ErrNotFound, "searching from %s", startDir)
		}
		dir = parent
	}
}

// layer is one file of an extends chain before merging.
type layer struct {
	path       string
	dir        string
	compiler   map[string]any
	paths      []PathEntry
	hasPaths   bool
	baseURL    string
	hasBaseURL bool
	include    []string
	hasInclude bool
	exclude    []string
	hasExclude bool
	extends    []string
}

// Load reads the config at path and applies its extends chain.
func Load(path string, opts Options) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "tsconfig: resolve %s", path)
	}

	// Layers are collected child first; parents are appended after the
	// child that extends them.
	var layers []*layer
	if err := collect(abs, map[string]bool{}, &layers); err != nil {
		return nil, err
	}

	cfg := &Config{
		Path:            abs,
		Dir:             filepath.Dir(abs),
		CompilerOptions: map[string]any{},
	}
	for _, l := range layers {
		cfg.Chain = append(cfg.Chain, l.path)
		if err := mergo.Merge(&cfg.CompilerOptions, l.compiler); err != nil {
			return nil, errors.Wrapf(err, "tsconfig: merge compilerOptions from %s", l.path)
		}
	}

	base := opts.DefaultBaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	cfg.BaseURL = base
	cfg.BaseDir = filepath.Join(cfg.Dir, base)
	for _, l := range layers {
		if l.hasBaseURL {
			cfg.BaseURL = l.baseURL
			cfg.BaseDir = absJoin(l.dir, l.baseURL)
			break
		}
	}
	for _, l := range layers {
		if l.hasPaths {
			cfg.Paths = l.paths
			break
		}
	}
	for _, l := range layers {
		if l.hasInclude {
			cfg.Include = absPatterns(l.dir, l.include)
			break
		}
	}
	for _, l := range layers {
		if l.hasExclude {
			cfg.Exclude = absPatterns(l.dir, l.exclude)
			break
		}
	}
	return cfg, nil
}

func collect(path string, visiting map[string]bool, out *[]*layer) error {
	if visiting[path] {
		return errors.Wrapf(ErrExtendsCycle, "at %s", path)
	}
	visiting[path] = true
	defer delete(visiting, path)

	l, err := parseFile(path)
	if err != nil {
		return err
	}
	*out = append(*out, l)

	// Later entries of an extends array take precedence over earlier ones,
	// so they are visited first.
	for i := len(l.extends) - 1; i >= 0; i-- {
		parent, err := resolveExtends(l.dir, l.extends[i])
		if err != nil {
			return errors.Wrapf(err, "tsconfig: %s", path)
		}
		if err := collect(parent, visiting, out); err != nil {
			return err
		}
	}
	return nil
}

func parseFile(path string) (*layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "tsconfig: read %s", path)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.Wrapf(err, "tsconfig: parse %s", path)
	}

	var doc map[string]any
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, errors.Wrapf(err, "tsconfig: decode %s", path)
	}

	l := &layer{path: path, dir: filepath.Dir(path), compiler: map[string]any{}}

	if co, ok := doc["compilerOptions"].(map[string]any); ok {
		l.compiler = co
		if v, ok := co["baseUrl"].(string); ok {
			l.baseURL, l.hasBaseURL = v, true
		}
		if _, ok := co["paths"]; ok {
			l.paths, err = orderedPaths(std)
			if err != nil {
				return nil, errors.Wrapf(err, "tsconfig: read paths in %s", path)
			}
			l.hasPaths = true
		}
	}
	// A top-level baseUrl is accepted for compatibility with older configs.
	if v, ok := doc["baseUrl"].(string); ok && !l.hasBaseURL {
		l.baseURL, l.hasBaseURL = v, true
	}

	switch ext := doc["extends"].(type) {
	case string:
		l.extends = []string{ext}
	case []any:
		for _, e := range ext {
			s, ok := e.(string)
			if !ok {
				return nil, errors.Errorf("tsconfig: %s: extends entry has type %T", path, e)
			}
			l.extends = append(l.extends, s)
		}
	case nil:
	default:
		return nil, errors.Errorf("tsconfig: %s: extends has type %T", path, ext)
	}

	if l.include, l.hasInclude, err = stringList(doc, "include"); err != nil {
		return nil, errors.Wrapf(err, "tsconfig: %s", path)
	}
	if l.exclude, l.hasExclude, err = stringList(doc, "exclude"); err != nil {
		return nil, errors.Wrapf(err, "tsconfig: %s", path)
	}
	return l, nil
}

// orderedPaths streams compilerOptions.paths so that entries keep the order
// they were written in; map decoding would lose it.
func orderedPaths(std []byte) ([]PathEntry, error) {
	iter := json.BorrowIterator(std)
	defer json.ReturnIterator(iter)

	var entries []PathEntry
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if field != "compilerOptions" {
			it.Skip()
			return true
		}
		it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			if field != "paths" {
				it.Skip()
				return true
			}
			if it.WhatIsNext() != jsoniter.ObjectValue {
				it.ReportError("paths", "expected an object")
				return false
			}
			it.ReadObjectCB(func(it *jsoniter.Iterator, alias string) bool {
				entries = append(entries, PathEntry{Alias: alias, Value: it.Read()})
				return true
			})
			return true
		})
		return true
	})
	if iter.Error != nil {
		return nil, iter.Error
	}
	return entries, nil
}

func resolveExtends(dir, spec string) (string, error) {
	if spec == "" {
		return "", errors.New("empty extends")
	}
	if filepath.IsAbs(spec) || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		p := absJoin(dir, spec)
		return withJSONExt(p)
	}

	// Bare specifiers name a package config under node_modules.
	for d := dir; ; {
		p := filepath.Join(d, "node_modules", filepath.FromSlash(spec))
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			p = filepath.Join(p, "tsconfig.json")
		}
		if found, err := withJSONExt(p); err == nil {
			return found, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", errors.Errorf("extends %q not found", spec)
		}
		d = parent
	}
}

func withJSONExt(p string) (string, error) {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, nil
	}
	if !strings.HasSuffix(p, ".json") {
		if info, err := os.Stat(p + ".json"); err == nil && !info.IsDir() {
			return p + ".json", nil
		}
	}
	return "", errors.Errorf("extends target %s not found", p)
}

func stringList(doc map[string]any, key string) ([]string, bool, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false, errors.Errorf("%s has type %T, expected array", key, raw)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false, errors.Errorf("%s entry has type %T, expected string", key, v)
		}
		out = append(out, s)
	}
	return out, true, nil
}

func absJoin(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}

func absPatterns(dir string, patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = absJoin(dir, p)
	}
	return out
}
