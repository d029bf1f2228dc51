package tspaths

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

// newProject lays out a temp project with a src/ base directory.
func newProject(t *testing.T, ops ...fs.PathOp) (*fs.Dir, *Resolver) {
	t.Helper()
	dir := fs.NewDir(t, "tspaths", fs.WithDir("src", ops...))
	return dir, NewResolver(WithProjectRoot(dir.Path()))
}

func mustBuild(t *testing.T, baseDir string, raw ...RawPath) *Table {
	t.Helper()
	tbl, err := Build(baseDir, raw)
	require.NoError(t, err)
	return tbl
}

func TestResolve_WildcardSubstitution(t *testing.T) {
	dir, r := newProject(t,
		fs.WithDir("app", fs.WithDir("util", fs.WithFile("strings.ts", "export {}"))),
	)
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@app/*", Value: "app/*"})

	res := r.Resolve(tbl, "@app/util/strings")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, filepath.Join("src", "app", "util", "strings.ts"), res.Path)
	assert.Equal(t, dir.Join("src", "app", "util", "strings.ts"), res.AbsPath)
	assert.Equal(t, Pattern("@app/*"), res.Alias)
	assert.Equal(t, "util/strings", res.Capture)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
}

func TestResolve_ExactAliasOnlyOnEquality(t *testing.T) {
	dir, r := newProject(t, fs.WithFile("env.ts", ""))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@env", Value: "env.ts"})

	assert.Equal(t, Resolved, r.Resolve(tbl, "@env").Outcome)
	for _, spec := range []string{"@env/x", "x@env", "@environment"} {
		res := r.Resolve(tbl, spec)
		assert.Equal(t, NotAnAlias, res.Outcome, spec)
		assert.Empty(t, res.Tried, spec)
	}
}

func TestResolve_SuffixWildcard(t *testing.T) {
	dir, r := newProject(t, fs.WithDir("assets", fs.WithFile("logo.svg.ts", "")))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "*.svg", Value: "assets/*.svg.ts"})

	res := r.Resolve(tbl, "logo.svg")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "assets", "logo.svg.ts"), res.AbsPath)

	assert.Equal(t, NotAnAlias, r.Resolve(tbl, "logo.png").Outcome)
}

func TestResolve_CandidateFallback(t *testing.T) {
	dir, r := newProject(t, fs.WithDir("b", fs.WithFile("x.ts", "")))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@lib/*", Value: []any{"a/*", "b/*"}})

	res := r.Resolve(tbl, "@lib/x")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "b", "x.ts"), res.AbsPath)
	assert.Equal(t, []string{dir.Join("src", "a", "x"), dir.Join("src", "b", "x")}, res.Tried)
}

func TestResolve_ExactPrecedence(t *testing.T) {
	dir, r := newProject(t,
		fs.WithDir("exact", fs.WithFile("index.ts", "")),
		fs.WithDir("wild", fs.WithFile("index.ts", "")),
	)
	tbl := mustBuild(t, dir.Join("src"),
		RawPath{Alias: "@x*", Value: "wild/index.ts"},
		RawPath{Alias: "@x", Value: "exact"},
	)

	res := r.Resolve(tbl, "@x")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, Pattern("@x"), res.Alias)
	assert.Equal(t, dir.Join("src", "exact", "index.ts"), res.AbsPath)
}

func TestResolve_ExtensionInference(t *testing.T) {
	dir, r := newProject(t, fs.WithFile("foo.ts", ""), fs.WithFile("foo.js", ""))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: "*"})

	res := r.Resolve(tbl, "@/foo")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "foo.ts"), res.AbsPath)
}

func TestResolve_ExtensionPriority(t *testing.T) {
	dir := fs.NewDir(t, "tspaths", fs.WithDir("src", fs.WithFile("foo.ts", ""), fs.WithFile("foo.js", "")))
	r := NewResolver(WithProjectRoot(dir.Path()), WithExtensions("js", ".ts"))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: "*"})

	res := r.Resolve(tbl, "@/foo")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "foo.js"), res.AbsPath)
}

func TestResolve_RuntimeFileBeatsDeclaration(t *testing.T) {
	dir, r := newProject(t, fs.WithDir("lib", fs.WithFile("foo.js", ""), fs.WithFile("foo.d.ts", "")))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@lib/*", Value: "lib/*"})

	res := r.Resolve(tbl, "@lib/foo")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "lib", "foo.js"), res.AbsPath)
}

func TestResolve_DeclarationOnly(t *testing.T) {
	dir, r := newProject(t, fs.WithDir("lib", fs.WithFile("types.d.ts", "")))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@lib/*", Value: "lib/*"})

	res := r.Resolve(tbl, "@lib/types")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "lib", "types.d.ts"), res.AbsPath)
}

func TestResolve_AnyExtensionFallback(t *testing.T) {
	dir, r := newProject(t, fs.WithFile("styles.css", ""))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: "*"})

	res := r.Resolve(tbl, "@/styles")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "styles.css"), res.AbsPath)
}

func TestResolve_DirectoryIndex(t *testing.T) {
	dir, r := newProject(t, fs.WithDir("widgets", fs.WithFile("index.tsx", "")))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: "*"})

	res := r.Resolve(tbl, "@/widgets")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "widgets", "index.tsx"), res.AbsPath)
}

func TestResolve_DirectoryWithoutIndexFallsThrough(t *testing.T) {
	dir, r := newProject(t,
		fs.WithDir("a", fs.WithDir("pkg", fs.WithFile("main.ts", ""))),
		fs.WithDir("b", fs.WithFile("pkg.ts", "")),
	)
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: []string{"a/*", "b/*"}})

	res := r.Resolve(tbl, "@/pkg")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "b", "pkg.ts"), res.AbsPath)
}

func TestResolve_CustomIndexNames(t *testing.T) {
	dir := fs.NewDir(t, "tspaths", fs.WithDir("src", fs.WithDir("lib", fs.WithFile("main.ts", ""))))
	r := NewResolver(WithProjectRoot(dir.Path()), WithIndexNames("index", "main"))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: "*"})

	res := r.Resolve(tbl, "@/lib")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, dir.Join("src", "lib", "main.ts"), res.AbsPath)
}

func TestResolve_AliasUnresolved(t *testing.T) {
	dir, r := newProject(t)
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: []any{"a/*", "b/*"}})

	res := r.Resolve(tbl, "@/missing")
	assert.Equal(t, AliasUnresolved, res.Outcome)
	assert.Empty(t, res.Path)
	assert.Len(t, res.Tried, 2)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAliasUnresolved))
	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "@/missing", unresolved.Specifier)
}

func TestResolve_NotAnAlias(t *testing.T) {
	dir, r := newProject(t)
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@app/*", Value: "app/*"})

	for _, spec := range []string{"react", "./local", "../up", "@scope/pkg"} {
		res := r.Resolve(tbl, spec)
		assert.Equal(t, NotAnAlias, res.Outcome, spec)
		assert.True(t, errors.Is(res.Err(), ErrNotAnAlias), spec)
	}
	assert.Equal(t, NotAnAlias, r.Resolve(nil, "@app/x").Outcome)
}

func TestResolve_Idempotent(t *testing.T) {
	dir, r := newProject(t, fs.WithFile("a.ts", ""))
	tbl := mustBuild(t, dir.Join("src"), RawPath{Alias: "@/*", Value: []any{"missing/*", "*"}})

	first := r.Resolve(tbl, "@/a")
	second := r.Resolve(tbl, "@/a")
	assert.Equal(t, first, second)
}

func TestResolve_PathOutsideProjectRoot(t *testing.T) {
	lib := fs.NewDir(t, "shared", fs.WithFile("x.ts", ""))
	root := fs.NewDir(t, "root")
	r := NewResolver(WithProjectRoot(root.Path()))
	tbl := mustBuild(t, lib.Path(), RawPath{Alias: "@shared/*", Value: "*"})

	res := r.Resolve(tbl, "@shared/x")
	require.Equal(t, Resolved, res.Outcome)
	rel, err := filepath.Rel(root.Path(), lib.Join("x.ts"))
	require.NoError(t, err)
	assert.Equal(t, rel, res.Path)
	assert.True(t, strings.HasPrefix(res.Path, ".."+string(filepath.Separator)), res.Path)
	assert.Equal(t, lib.Join("x.ts"), res.AbsPath)
}

func TestOutcome_StringRoundTrip(t *testing.T) {
	for _, o := range []Outcome{NotAnAlias, Resolved, AliasUnresolved} {
		got, ok := ParseOutcome(o.String())
		require.True(t, ok)
		assert.Equal(t, o, got)
	}
	_, ok := ParseOutcome("bogus")
	assert.False(t, ok)
}
