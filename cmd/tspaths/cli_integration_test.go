package main_test

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gotest.tools/v3/fs"
)

// buildBinary compiles the tspaths binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "tspaths"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "tspaths")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture lays out a small aliased TypeScript project in a git root.
func createFixture(t *testing.T) *fs.Dir {
	t.Helper()
	return fs.NewDir(t, "cli",
		fs.WithDir(".git"),
		fs.WithFile("tsconfig.json", `{
			"compilerOptions": {
				"baseUrl": "src",
				"paths": {"@app/*": ["app/*"]}
			}
		}`),
		fs.WithDir("src",
			fs.WithFile("main.ts", "import { util } from \"@app/util\";\nimport \"@app/gone\";\nimport \"react\";\n"),
			fs.WithDir("app", fs.WithFile("util.ts", "export const util = 1;")),
		),
	)
}

type envelope struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Error      string          `json:"error"`
}

func run(t *testing.T, bin, dir string, args ...string) (envelope, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else {
		require.NoError(t, err)
	}
	var env envelope
	require.NoError(t, json.Unmarshal(out, &env), "output: %s", out)
	return env, code
}

func TestCLI_ScanAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	env, code := run(t, bin, fixture.Path(), "scan", "--format", "json")
	require.Equal(t, 0, code)
	var sum struct {
		FilesScanned int    `json:"files_scanned"`
		Imports      int    `json:"imports"`
		Resolved     int    `json:"resolved"`
		Unresolved   int    `json:"unresolved"`
		Database     string `json:"database"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &sum))
	assert.Equal(t, 2, sum.FilesScanned)
	assert.Equal(t, 3, sum.Imports)
	assert.Equal(t, 1, sum.Resolved)
	assert.Equal(t, 1, sum.Unresolved)
	assert.Equal(t, fixture.Join(".tspaths", "index.db"), sum.Database)

	env, code = run(t, bin, fixture.Path(), "query", "unresolved", "--format", "json")
	require.Equal(t, 0, code)
	var sites []struct {
		File      string `json:"file"`
		Line      int    `json:"line"`
		Specifier string `json:"specifier"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, "@app/gone", sites[0].Specifier)
	assert.Equal(t, 2, sites[0].Line)
	require.NotNil(t, env.TotalCount)
	assert.Equal(t, 1, *env.TotalCount)

	env, code = run(t, bin, fixture.Path(), "query", "dependents", "src/app/util.ts", "--format", "json")
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal(env.Results, &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, fixture.Join("src", "main.ts"), sites[0].File)
}

func TestCLI_Resolve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	env, code := run(t, bin, fixture.Path(), "resolve", "@app/util", "--from", "src/main.ts", "--format", "json")
	require.Equal(t, 0, code)
	var res struct {
		Outcome string `json:"outcome"`
		Path    string `json:"path"`
		Config  string `json:"config"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &res))
	assert.Equal(t, "resolved", res.Outcome)
	assert.Equal(t, filepath.Join("src", "app", "util.ts"), res.Path)
	assert.Equal(t, fixture.Join("tsconfig.json"), res.Config)

	env, code = run(t, bin, fixture.Path(), "resolve", "@app/gone", "--from", "src/main.ts", "--format", "json")
	assert.Equal(t, 2, code)
	require.NoError(t, json.Unmarshal(env.Results, &res))
	assert.Equal(t, "alias_unresolved", res.Outcome)

	_, code = run(t, bin, fixture.Path(), "resolve", "react", "--from", "src/main.ts", "--format", "json")
	assert.Equal(t, 2, code)
}

func TestCLI_QueryWithoutIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	env, code := run(t, bin, fixture.Path(), "query", "summary", "--format", "json")
	assert.Equal(t, 1, code)
	assert.Contains(t, env.Error, "run 'tspaths scan' first")
}

func TestCLI_TableYAML(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	cmd := exec.Command(bin, "table", "src", "--format", "yaml")
	cmd.Dir = fixture.Path()
	out, err := cmd.Output()
	require.NoError(t, err)

	var got struct {
		Results struct {
			Config  string `yaml:"config"`
			Aliases []struct {
				Alias   string   `yaml:"alias"`
				Targets []string `yaml:"targets"`
			} `yaml:"aliases"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, fixture.Join("tsconfig.json"), got.Results.Config)
	require.Len(t, got.Results.Aliases, 1)
	assert.Equal(t, "@app/*", got.Results.Aliases[0].Alias)
	assert.Equal(t, []string{fixture.Join("src", "app", "*")}, got.Results.Aliases[0].Targets)
}
