package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jward/tspaths"
)

// settings merges, from highest precedence: flags, TSPATHS_* environment
// variables (a .env file in the repo root is loaded first), and the
// .tspaths.yaml settings file.
var settings = viper.New()

func loadSettings(flags *pflag.FlagSet) error {
	repoRoot, err := currentRepoRoot()
	if err != nil {
		return err
	}
	return readSettings(settings, flags, repoRoot)
}

func readSettings(v *viper.Viper, flags *pflag.FlagSet, repoRoot string) error {
	if err := godotenv.Load(filepath.Join(repoRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	v.SetEnvPrefix("TSPATHS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}
	}
	v.SetDefault("format", "auto")
	v.SetDefault("parallel", true)

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".tspaths")
		v.SetConfigType("yaml")
		v.AddConfigPath(repoRoot)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading settings: %w", err)
		}
	}
	return nil
}

// engineOptions translates settings into Engine options. Relative paths
// in settings are taken from repoRoot.
func engineOptions(v *viper.Viper, repoRoot string, log *logrus.Logger) []tspaths.Option {
	opts := []tspaths.Option{
		tspaths.WithLogger(logrus.NewEntry(log)),
		tspaths.WithParallel(v.GetBool("parallel")),
	}

	root := v.GetString("project_root")
	if root == "" {
		root = repoRoot
	}
	ropts := []tspaths.ResolverOption{tspaths.WithProjectRoot(inRepo(repoRoot, root))}
	if exts := v.GetStringSlice("extensions"); len(exts) > 0 {
		ropts = append(ropts, tspaths.WithExtensions(exts...))
	}
	if names := v.GetStringSlice("index_names"); len(names) > 0 {
		ropts = append(ropts, tspaths.WithIndexNames(names...))
	}
	opts = append(opts, tspaths.WithResolverOptions(ropts...))

	// An explicit empty list accepts importers of every type.
	if v.IsSet("importer_extensions") {
		opts = append(opts, tspaths.WithImporterExtensions(v.GetStringSlice("importer_extensions")...))
	}
	if names := v.GetStringSlice("config_names"); len(names) > 0 {
		opts = append(opts, tspaths.WithConfigNames(names...))
	}
	if base := v.GetString("default_base_url"); base != "" {
		opts = append(opts, tspaths.WithDefaultBaseURL(base))
	}
	if gens := v.GetStringSlice("generators"); len(gens) > 0 {
		opts = append(opts, tspaths.WithGenerators(gens...))
	}
	if prefix := v.GetString("generator_prefix"); prefix != "" {
		opts = append(opts, tspaths.WithGeneratorPrefix(prefix))
	}
	if dir := v.GetString("scripts_dir"); dir != "" {
		opts = append(opts, tspaths.WithScriptsDir(inRepo(repoRoot, dir)))
	}
	return opts
}

func inRepo(repoRoot, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

// newEngine creates an Engine without a database, for commands that only
// resolve.
func newEngine() (*tspaths.Engine, error) {
	repoRoot, err := currentRepoRoot()
	if err != nil {
		return nil, err
	}
	e, err := tspaths.New(engineOptions(settings, repoRoot, logger)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// openIndex creates an Engine backed by the scan index for repoRoot. With
// create unset, a missing database is an error.
func openIndex(repoRoot string, create bool) (*tspaths.Engine, string, error) {
	dbPath := resolveDBPath(repoRoot, settings.GetString("db"))
	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("database not found: %s (run 'tspaths scan' first)", dbPath)
	}

	opts := append(engineOptions(settings, repoRoot, logger), tspaths.WithDatabase(dbPath))
	e, err := tspaths.New(opts...)
	if err != nil {
		return nil, "", fmt.Errorf("creating engine: %w", err)
	}
	return e, dbPath, nil
}
