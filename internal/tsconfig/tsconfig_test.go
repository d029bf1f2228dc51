package tsconfig

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func aliases(entries []PathEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Alias
	}
	return out
}

func TestLoad_PathsKeepDeclarationOrder(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", `{
		"compilerOptions": {
			"baseUrl": ".",
			"paths": {
				"@z/*": ["z/*"],
				"@a/*": ["a/*", "a2/*"],
				"@m": "m.ts"
			}
		}
	}`))

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"@z/*", "@a/*", "@m"}, aliases(cfg.Paths))
	assert.Equal(t, []any{"a/*", "a2/*"}, cfg.Paths[1].Value)
	assert.Equal(t, "m.ts", cfg.Paths[2].Value)
	assert.Equal(t, dir.Path(), cfg.BaseDir)
	assert.Equal(t, []string{dir.Join("tsconfig.json")}, cfg.Chain)
}

func TestLoad_JSONC(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", `{
		// line comment
		"compilerOptions": {
			/* block comment */
			"baseUrl": "./lib",
			"paths": {
				"@/*": ["*"],
			},
		},
	}`))

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "./lib", cfg.BaseURL)
	assert.Equal(t, dir.Join("lib"), cfg.BaseDir)
	assert.Equal(t, []string{"@/*"}, aliases(cfg.Paths))
}

func TestLoad_DefaultBaseURL(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", `{"compilerOptions": {}}`))

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, dir.Join("src"), cfg.BaseDir)
	assert.Empty(t, cfg.Paths)

	cfg, err = Load(dir.Join("tsconfig.json"), Options{DefaultBaseURL: "app"})
	require.NoError(t, err)
	assert.Equal(t, dir.Join("app"), cfg.BaseDir)
}

func TestLoad_TopLevelBaseURL(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", `{"baseUrl": "web"}`))

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, dir.Join("web"), cfg.BaseDir)
}

func TestLoad_ExtendsInheritsPathsAndBaseURL(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithFile("tsconfig.base.json", `{
			"compilerOptions": {
				"baseUrl": "./shared",
				"strict": true,
				"target": "es2017",
				"paths": {"@shared/*": ["*"]}
			},
			"exclude": ["dist"]
		}`),
		fs.WithDir("app", fs.WithFile("tsconfig.json", `{
			"extends": "../tsconfig.base",
			"compilerOptions": {"target": "es2022"}
		}`)),
	)

	cfg, err := Load(dir.Join("app", "tsconfig.json"), Options{})
	require.NoError(t, err)
	// baseUrl resolves against the file that declared it.
	assert.Equal(t, dir.Join("shared"), cfg.BaseDir)
	assert.Equal(t, []string{"@shared/*"}, aliases(cfg.Paths))
	assert.Equal(t, "es2022", cfg.CompilerOptions["target"])
	assert.Equal(t, true, cfg.CompilerOptions["strict"])
	assert.Equal(t, []string{dir.Join("dist")}, cfg.Exclude)
	assert.Equal(t, []string{dir.Join("app", "tsconfig.json"), dir.Join("tsconfig.base.json")}, cfg.Chain)
}

func TestLoad_ChildPathsReplaceParent(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithFile("base.json", `{"compilerOptions": {"paths": {"@p/*": ["p/*"], "@q/*": ["q/*"]}}}`),
		fs.WithFile("tsconfig.json", `{"extends": "./base.json", "compilerOptions": {"paths": {"@c/*": ["c/*"]}}}`),
	)

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"@c/*"}, aliases(cfg.Paths))
}

func TestLoad_ExtendsArrayLaterWins(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithFile("a.json", `{"compilerOptions": {"baseUrl": "a"}}`),
		fs.WithFile("b.json", `{"compilerOptions": {"baseUrl": "b"}}`),
		fs.WithFile("tsconfig.json", `{"extends": ["./a.json", "./b.json"]}`),
	)

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, dir.Join("b"), cfg.BaseDir)
}

func TestLoad_ExtendsPackage(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithDir("node_modules",
			fs.WithDir("@tsconfig", fs.WithDir("strictest", fs.WithFile("tsconfig.json", `{
				"compilerOptions": {"strict": true, "baseUrl": "."}
			}`))),
		),
		fs.WithDir("pkg", fs.WithFile("tsconfig.json", `{"extends": "@tsconfig/strictest"}`)),
	)

	cfg, err := Load(dir.Join("pkg", "tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, true, cfg.CompilerOptions["strict"])
	assert.Equal(t, dir.Join("node_modules", "@tsconfig", "strictest"), cfg.BaseDir)
}

func TestLoad_ExtendsCycle(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithFile("a.json", `{"extends": "./b.json"}`),
		fs.WithFile("b.json", `{"extends": "./a.json"}`),
	)

	_, err := Load(dir.Join("a.json"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtendsCycle))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{"compilerOptions": `},
		{"missing extends", `{"extends": "./nope.json"}`},
		{"bad extends type", `{"extends": 3}`},
		{"bad include type", `{"include": "src"}`},
		{"paths not object", `{"compilerOptions": {"paths": ["@/*"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", tt.content))
			_, err := Load(dir.Join("tsconfig.json"), Options{})
			assert.Error(t, err)
		})
	}
}

func TestLoad_IncludeMadeAbsolute(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig", fs.WithFile("tsconfig.json", `{"include": ["src/**/*", "types"]}`))

	cfg, err := Load(dir.Join("tsconfig.json"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{dir.Join("src", "**", "*"), dir.Join("types")}, cfg.Include)
}

func TestFind_WalksUp(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig",
		fs.WithFile("jsconfig.json", `{}`),
		fs.WithDir("web",
			fs.WithFile("tsconfig.json", `{}`),
			fs.WithDir("src", fs.WithDir("deep")),
		),
		fs.WithDir("other"),
	)

	got, err := Find(dir.Join("web", "src", "deep"), nil)
	require.NoError(t, err)
	assert.Equal(t, dir.Join("web", "tsconfig.json"), got)

	got, err = Find(dir.Join("other"), nil)
	require.NoError(t, err)
	assert.Equal(t, dir.Join("jsconfig.json"), got)

	got, err = Find(dir.Join("web"), []string{"jsconfig.json"})
	require.NoError(t, err)
	assert.Equal(t, dir.Join("jsconfig.json"), got)
}

func TestFind_NotFound(t *testing.T) {
	dir := fs.NewDir(t, "tsconfig")
	_, err := Find(dir.Path(), []string{"tspaths-never-exists.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), filepath.Base(dir.Path()))
}
