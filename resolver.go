package tspaths

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultExtensions is the extension priority used for extension and index
// inference when none is configured. Declaration files come last so a
// runtime module next to its hand-written types wins.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts", ".mjs", ".cjs", ".json", ".d.ts"}

// DefaultIndexNames are the file stems tried inside a directory.
var DefaultIndexNames = []string{"index"}

// FileSystem is the filesystem accessor used for probing.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
}

// OSFileSystem reads the host filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

// Outcome classifies a resolution.
type Outcome int

const (
	// NotAnAlias means no alias pattern matched the specifier.
	NotAnAlias Outcome = iota
	// Resolved means a candidate exists on disk.
	Resolved
	// AliasUnresolved means an alias matched but every candidate failed.
	AliasUnresolved
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case AliasUnresolved:
		return "alias_unresolved"
	default:
		return "not_an_alias"
	}
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "resolved":
		return Resolved, true
	case "alias_unresolved":
		return AliasUnresolved, true
	case "not_an_alias":
		return NotAnAlias, true
	}
	return NotAnAlias, false
}

// Result is the outcome of resolving one specifier.
type Result struct {
	Specifier string
	Outcome   Outcome
	// Path is relative to the resolver's project root. Files outside the root
	// get a "../" path; Path is absolute only when no relative form exists,
	// such as a file on another volume.
	Path    string
	AbsPath string
	Alias   Pattern
	Capture string
	// Tried lists the expanded candidate paths in the order they were checked.
	Tried []string
}

// OK reports whether the specifier resolved to a file.
func (r Result) OK() bool { return r.Outcome == Resolved }

// Err converts an unsuccessful outcome to an error for callers that want one.
func (r Result) Err() error {
	switch r.Outcome {
	case Resolved:
		return nil
	case AliasUnresolved:
		return &UnresolvedError{Specifier: r.Specifier, Alias: r.Alias, Tried: r.Tried}
	default:
		return ErrNotAnAlias
	}
}

// UnresolvedError carries the candidates that were checked for an alias.
type UnresolvedError struct {
	Specifier string
	Alias     Pattern
	Tried     []string
}

func (e *UnresolvedError) Error() string {
	return "tspaths: " + e.Specifier + ": no file found for alias " + string(e.Alias) +
		" (tried " + strings.Join(e.Tried, ", ") + ")"
}

func (e *UnresolvedError) Unwrap() error { return ErrAliasUnresolved }

// Resolver searches the filesystem for alias candidates. It holds no mutable
// state, so one Resolver may serve concurrent resolutions.
type Resolver struct {
	fsys        FileSystem
	extensions  []string
	indexNames  []string
	projectRoot string
	log         *logrus.Entry
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithExtensions sets the extension priority for inference.
func WithExtensions(exts ...string) ResolverOption {
	return func(r *Resolver) {
		r.extensions = normalizeExtensions(exts)
	}
}

// WithIndexNames sets the file stems tried inside a directory.
func WithIndexNames(names ...string) ResolverOption {
	return func(r *Resolver) {
		r.indexNames = append([]string(nil), names...)
	}
}

// WithProjectRoot sets the directory results are made relative to.
func WithProjectRoot(dir string) ResolverOption {
	return func(r *Resolver) {
		r.projectRoot = dir
	}
}

// WithFileSystem replaces the filesystem accessor.
func WithFileSystem(fsys FileSystem) ResolverOption {
	return func(r *Resolver) {
		r.fsys = fsys
	}
}

// WithResolverLogger sets the diagnostics sink.
func WithResolverLogger(log *logrus.Entry) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver returns a Resolver using the host filesystem, the default
// extension priority, and the working directory as project root.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fsys:       OSFileSystem{},
		extensions: append([]string(nil), DefaultExtensions...),
		indexNames: append([]string(nil), DefaultIndexNames...),
		log:        discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.projectRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			r.projectRoot = wd
		}
	}
	return r
}

// ProjectRoot returns the directory results are relative to.
func (r *Resolver) ProjectRoot() string { return r.projectRoot }

// Extensions returns the extension priority list.
func (r *Resolver) Extensions() []string { return append([]string(nil), r.extensions...) }

// Resolve maps specifier through t to a file on disk. It never fails: an
// unmatched specifier yields NotAnAlias and an alias without any existing
// candidate yields AliasUnresolved.
func (r *Resolver) Resolve(t *Table, specifier string) Result {
	res := Result{Specifier: specifier, Outcome: NotAnAlias}
	if t == nil {
		return res
	}

	alias, capture, targets, ok := t.match(specifier)
	if !ok {
		return res
	}
	res.Alias = alias
	res.Capture = capture
	res.Outcome = AliasUnresolved

	log := r.log.WithFields(logrus.Fields{"specifier": specifier, "alias": string(alias)})
	log.Debug("Alias matched.")

	for _, target := range targets.Patterns() {
		candidate := r.absolute(target.Expand(capture))
		res.Tried = append(res.Tried, candidate)

		found, ok := r.locate(candidate)
		if !ok {
			log.WithField("candidate", candidate).Debug("Candidate not found.")
			continue
		}
		res.Outcome = Resolved
		res.AbsPath = found
		res.Path = r.relative(found)
		log.WithField("path", res.Path).Debug("Alias resolved.")
		return res
	}

	log.WithField("tried", res.Tried).Debug("No candidate exists for alias.")
	return res
}

// locate applies extension and index inference to one candidate path.
func (r *Resolver) locate(candidate string) (string, bool) {
	path := candidate
	info, err := r.fsys.Stat(path)
	if err != nil {
		var found bool
		path, found = r.findInDir(filepath.Dir(candidate), filepath.Base(candidate), true)
		if !found {
			return "", false
		}
		if info, err = r.fsys.Stat(path); err != nil {
			return "", false
		}
	}

	if info.IsDir() {
		for _, name := range r.indexNames {
			if index, ok := r.findInDir(path, name, false); ok {
				return index, true
			}
		}
		return "", false
	}
	return path, true
}

// findInDir looks in dir for a file named base plus a known extension, in
// priority order. With anyExt set it falls back to any file whose name minus
// its final extension equals base.
func (r *Resolver) findInDir(dir, base string, anyExt bool) (string, bool) {
	for _, ext := range r.extensions {
		p := filepath.Join(dir, base+ext)
		if info, err := r.fsys.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	if !anyExt {
		return "", false
	}

	entries, err := r.fsys.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != "" && strings.TrimSuffix(name, ext) == base {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

func (r *Resolver) absolute(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if r.projectRoot != "" {
		return filepath.Join(r.projectRoot, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (r *Resolver) relative(abs string) string {
	if r.projectRoot == "" {
		return abs
	}
	rel, err := filepath.Rel(r.projectRoot, abs)
	if err != nil {
		return abs
	}
	return rel
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
