package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/tspaths"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <specifier>",
	Short: "Resolve one import specifier",
	Long: "Resolves a specifier as if imported from --from, using the nearest tsconfig.json. " +
		"Exits with status 2 when the specifier is not an alias or its alias matched no file.",
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var tableCmd = &cobra.Command{
	Use:   "table [path]",
	Short: "Show the alias table that applies to a file or directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTable,
}

func init() {
	resolveCmd.Flags().String("from", "", "importing file (required)")
	_ = resolveCmd.MarkFlagRequired("from")
}

func runResolve(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	importer, err := resolveFilePath(from)
	if err != nil {
		return outputError("resolve", err)
	}

	e, err := newEngine()
	if err != nil {
		return outputError("resolve", err)
	}
	defer e.Close()

	ctx := context.Background()
	res, err := e.ResolveImport(ctx, importer, args[0])
	if err != nil {
		if errors.Is(err, tspaths.ErrLoaderSyntax) {
			return outputError("resolve", fmt.Errorf("%s: %w", args[0], err))
		}
		return outputError("resolve", err)
	}

	var cfgPath string
	if e.AcceptsImporter(importer) {
		if cfgPath, err = e.Cache().ConfigFor(importer); err != nil {
			return outputError("resolve", err)
		}
	}
	logger.WithFields(logrus.Fields{
		"specifier": args[0],
		"outcome":   res.Outcome.String(),
		"tried":     len(res.Tried),
	}).Debug("Resolved specifier.")

	if err := outputResult(CLIResult{Command: "resolve", Results: resolutionToCLI(importer, cfgPath, res)}); err != nil {
		return err
	}
	if !res.OK() {
		return exitStatus(2)
	}
	return nil
}

func runTable(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := resolveFilePath(target)
	if err != nil {
		return outputError("table", err)
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	e, err := newEngine()
	if err != nil {
		return outputError("table", err)
	}
	defer e.Close()

	cfgPath, err := e.Cache().ConfigForDir(dir)
	if err != nil {
		return outputError("table", err)
	}
	if cfgPath == "" {
		return outputError("table", fmt.Errorf("no config found at or above %s", dir))
	}
	ct, err := e.Cache().GetConfig(context.Background(), cfgPath)
	if err != nil {
		return outputError("table", err)
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("Alias table for %s:\n%s", cfgPath, spew.Sdump(ct.Table.Entries()))
	}

	return outputResult(CLIResult{Command: "table", Results: tableToCLI(ct)})
}
