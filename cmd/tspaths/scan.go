package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/tspaths"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Index every import under a directory",
	Long: "Parses source files with tree-sitter, resolves each import against its tsconfig.json aliases, " +
		"and records the results in the SQLite index. Unchanged files are not reparsed but their imports " +
		"are always resolved again.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Scan a directory, then rescan whenever a tsconfig changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	scanCmd.Flags().Bool("force", false, "reparse every file even when unchanged")
}

func runScan(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("scan", err)
	}

	e, dbPath, err := openIndex(findRepoRoot(targetDir), true)
	if err != nil {
		return outputError("scan", err)
	}
	defer e.Close()

	var opts []tspaths.ScanOption
	if force, _ := cmd.Flags().GetBool("force"); force {
		opts = append(opts, tspaths.ScanForce())
	}
	sum, err := e.ScanDirectory(context.Background(), targetDir, opts...)
	if sum == nil {
		return outputError("scan", fmt.Errorf("scanning: %w", err))
	}
	if oerr := outputResult(CLIResult{Command: "scan", Results: scanSummaryToCLI(sum, dbPath)}); oerr != nil {
		return oerr
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}

	e, dbPath, err := openIndex(findRepoRoot(targetDir), true)
	if err != nil {
		return outputError("watch", err)
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scan := func() {
		sum, err := e.ScanDirectory(ctx, targetDir)
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Scan failed.")
		}
		if sum != nil {
			if err := outputResult(CLIResult{Command: "watch", Results: scanSummaryToCLI(sum, dbPath)}); err != nil {
				logger.WithError(err).Error("Writing scan summary.")
			}
		}
	}

	scan()
	logger.WithField("dir", targetDir).Info("Watching for config changes.")
	err = e.Watch(ctx, func(path string, evicted []string) {
		logger.WithFields(logrus.Fields{"config": path, "evicted": len(evicted)}).Info("Config changed, rescanning.")
		scan()
	})
	if err != nil {
		return outputError("watch", err)
	}
	return nil
}
