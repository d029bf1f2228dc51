package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// exitStatus ends the process with a specific code after a command has
// already written its result.
type exitStatus int

func (s exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(s)) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var status exitStatus
		if errors.As(err, &status) {
			os.Exit(int(status))
		}
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tspaths",
	Short: "Resolve TypeScript path aliases",
	Long: "tspaths resolves import specifiers against the compilerOptions.paths aliases of the nearest " +
		"tsconfig.json, and can scan a project into a SQLite index of every import and how it resolved.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(cmd.Flags()); err != nil {
			return err
		}
		if err := validateFormat(settings.GetString("format")); err != nil {
			return err
		}
		logger = newLogger(settings.GetBool("verbose"), settings.GetString("log-file"))
		logger.WithField("file", settings.ConfigFileUsed()).Debug("Settings loaded.")
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "database path (default: .tspaths/index.db relative to repo root)")
	rootCmd.PersistentFlags().String("format", "auto", "output format: json|text|yaml|auto")
	rootCmd.PersistentFlags().String("config", "", "settings file (default: .tspaths.yaml in the repo root)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotated file instead of stderr")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
}

var logger = logrus.New()

// newLogger builds the process logger. Logs go to stderr unless logFile is
// set, in which case they go to a size-rotated file.
func newLogger(verbose bool, logFile string) *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = logrus.WarnLevel
	if verbose {
		l.Level = logrus.DebugLevel
	}
	var out io.Writer = os.Stderr
	if logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	l.Out = out
	return l
}

// resolveTargetDir returns the absolute path of the directory to scan.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the db setting or the default.
func resolveDBPath(repoRoot, db string) string {
	if db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".tspaths", "index.db")
}

// currentRepoRoot is the repo root above the working directory.
func currentRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return findRepoRoot(cwd), nil
}
