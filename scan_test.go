package tspaths

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func TestScanDirectory(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "serial"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			dir := newAppProject(t)
			e := newTestEngine(t, dir, WithParallel(parallel))

			sum, err := e.ScanDirectory(context.Background(), dir.Path())
			require.NoError(t, err)
			assert.NotEmpty(t, sum.ID)
			assert.Equal(t, dir.Join("tsconfig.json"), sum.Config)
			assert.Equal(t, 6, sum.FilesScanned)
			assert.Equal(t, 0, sum.FilesSkipped)
			assert.Equal(t, 8, sum.Imports)
			assert.Equal(t, 5, sum.Resolved)
			assert.Equal(t, 1, sum.Unresolved)
			assert.Equal(t, 2, sum.NotAliased)
			assert.Positive(t, sum.BytesScanned)

			files, err := e.Store().Files()
			require.NoError(t, err)
			require.Len(t, files, 6)
			for _, f := range files {
				assert.NotContains(t, f.Path, "node_modules")
				assert.Equal(t, dir.Join("tsconfig.json"), f.ConfigPath)
			}
		})
	}
}

func TestScanDirectory_RescanReusesParsesButReresolves(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)
	ctx := context.Background()

	_, err := e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)

	sum, err := e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.FilesSkipped)
	assert.Equal(t, 8, sum.Imports)
	assert.Equal(t, 1, sum.Unresolved)

	// main.ts is unchanged, but two of its imports now point at nothing.
	require.NoError(t, os.Remove(dir.Join("src", "app", "util.ts")))
	sum, err = e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.FilesScanned)
	assert.Equal(t, 5, sum.FilesSkipped)
	assert.Equal(t, 3, sum.Unresolved)
	assert.Equal(t, 1, sum.Pruned)

	f, err := e.Store().FileByPath(dir.Join("src", "app", "util.ts"))
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestScanDirectory_ChangedFileIsReparsed(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)
	ctx := context.Background()

	_, err := e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dir.Join("src", "main.ts"), []byte(`import "@env";`), 0o644))
	sum, err := e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.FilesSkipped)
	assert.Equal(t, 2, sum.Imports)

	imports, err := e.Query().ImportsOf(dir.Join("src", "main.ts"))
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "@env", imports[0].Specifier)
}

func TestScanDirectory_Force(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)
	ctx := context.Background()

	_, err := e.ScanDirectory(ctx, dir.Path())
	require.NoError(t, err)
	sum, err := e.ScanDirectory(ctx, dir.Path(), ScanForce())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.FilesSkipped)
	assert.Equal(t, 8, sum.Imports)
}

func TestScanDirectory_IncludeExclude(t *testing.T) {
	dir := fs.NewDir(t, "scan",
		fs.WithFile("tsconfig.json", `{
			"compilerOptions": {"baseUrl": "src", "paths": {"@/*": ["*"]}},
			"include": ["src"],
			"exclude": ["src/**/*.test.ts", "src/generated"]
		}`),
		fs.WithDir("src",
			fs.WithFile("a.ts", `import "@/b";`),
			fs.WithFile("b.ts", ""),
			fs.WithFile("a.test.ts", `import "@/a";`),
			fs.WithDir("generated", fs.WithFile("api.ts", `import "@/a";`)),
			fs.WithDir(".cache", fs.WithFile("x.ts", "")),
		),
		fs.WithDir("scripts", fs.WithFile("build.ts", `import "@/a";`)),
	)
	e := newTestEngine(t, dir)

	sum, err := e.ScanDirectory(context.Background(), dir.Path())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.FilesScanned)
	assert.Equal(t, 1, sum.Resolved)

	files, err := e.Store().Files()
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{dir.Join("src", "a.ts"), dir.Join("src", "b.ts")}, paths)
}

func TestScanDirectory_RecordsLoaderSyntax(t *testing.T) {
	dir := fs.NewDir(t, "scan",
		fs.WithFile("tsconfig.json", `{}`),
		fs.WithFile("main.ts", `import "~bootstrap/dist/css";`),
	)
	e := newTestEngine(t, dir)

	sum, err := e.ScanDirectory(context.Background(), dir.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unsupported)

	page, err := e.Query().Imports(ImportFilter{Outcomes: []string{OutcomeUnsupported}}, Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "~bootstrap/dist/css", page.Items[0].Specifier)
}

func TestScanDirectory_NotADirectory(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)

	_, err := e.ScanDirectory(context.Background(), dir.Join("src", "main.ts"))
	assert.Error(t, err)
	_, err = e.ScanDirectory(context.Background(), filepath.Join(dir.Path(), "missing"))
	assert.Error(t, err)
}

func TestScanDirectory_Cancelled(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := e.ScanDirectory(ctx, dir.Path())
	assert.Nil(t, sum)
	assert.ErrorIs(t, err, context.Canceled)

	files, err := e.Store().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestProcess_StopsWhenCancelled(t *testing.T) {
	dir := newAppProject(t)
	e := newTestEngine(t, dir)

	var items []workItem
	for _, p := range []string{dir.Join("src", "main.ts"), dir.Join("src", "app", "util.ts"), dir.Join("src", "legacy.js")} {
		item, err := e.prepareFile(p, false)
		require.NoError(t, err)
		items = append(items, item)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, process := range map[string]func(context.Context, []workItem) []scanResult{
		"serial":   e.processSerial,
		"parallel": e.processParallel,
	} {
		t.Run(name, func(t *testing.T) {
			results := process(ctx, items)
			require.Len(t, results, len(items))
			for i, res := range results {
				assert.Equal(t, items[i].path, res.item.path)
				assert.ErrorIs(t, res.err, context.Canceled)
				assert.Nil(t, res.file)
			}
		})
	}
}
