package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"
)

// scriptExt is the extension of generator scripts and the modules they import.
const scriptExt = ".risor"

// Runtime evaluates alias generator scripts in a Risor VM. Scripts, and any
// modules they import, come from a single fs.FS: a directory on disk or an
// embedded tree.
type Runtime struct {
	src fs.FS
	log *logrus.Entry
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts from fsys instead of a directory.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.src = fsys
	}
}

// WithRuntimeLogger routes the scripts' log object to log.
func WithRuntimeLogger(log *logrus.Entry) RuntimeOption {
	return func(r *Runtime) {
		r.log = log
	}
}

// NewRuntime creates a Runtime that loads scripts from scriptsDir unless
// WithRuntimeFS is given. With neither, only RunSource works.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{log: logrus.NewEntry(logrus.StandardLogger())}
	if scriptsDir != "" {
		r.src = os.DirFS(scriptsDir)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript evaluates the script at scriptPath, relative to the script
// source, and returns the value of its last expression.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (object.Object, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource evaluates Risor source directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (object.Object, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// LoadScript returns the source of the script at scriptPath. A leading
// slash is ignored.
func (r *Runtime) LoadScript(scriptPath string) (string, error) {
	if r.src == nil {
		return "", fmt.Errorf("runtime: no script source configured for %s", scriptPath)
	}
	name := strings.TrimPrefix(path.Clean(filepath.ToSlash(scriptPath)), "/")
	data, err := fs.ReadFile(r.src, name)
	if err != nil {
		return "", fmt.Errorf("runtime: load script %s: %w", name, err)
	}
	return string(data), nil
}

// GeneratorScriptPath returns the path to a named generator script.
func GeneratorScriptPath(name string) string {
	return filepath.Join("generate", name+scriptExt)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := map[string]any{
		"list_dirs": makeListDirsFn(),
		"exists":    makeExistsFn(),
		"log":       mustProxy(&logObject{log: r.log.WithField("script", label)}),
	}
	for k, v := range extraGlobals {
		globals[k] = v
	}

	names := make([]string, 0, len(globals))
	opts := make([]risor.Option, 0, len(globals)+1)
	for name, val := range globals {
		names = append(names, name)
		opts = append(opts, risor.WithGlobal(name, val))
	}
	sort.Strings(names)

	if r.src != nil {
		opts = append(opts, risor.WithImporter(importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    r.src,
			Extensions:  []string{scriptExt},
		})))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
