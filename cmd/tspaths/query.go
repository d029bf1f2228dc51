package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/tspaths"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the scan index",
	Long:  "Run queries against a scanned project. Lines and columns are 1-based.",
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List imports whose alias matched but no file exists",
	Args:  cobra.NoArgs,
	RunE:  runUnresolved,
}

var importsCmd = &cobra.Command{
	Use:   "imports [file]",
	Short: "List the imports of one file, or filter every indexed import",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImports,
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <file>",
	Short: "List the imports that resolved to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDependents,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show index counts and the most used aliases",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	queryCmd.PersistentFlags().Int("limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().Int("offset", 0, "pagination offset")

	importsCmd.Flags().StringSlice("outcome", nil, "only imports with these outcomes")
	importsCmd.Flags().String("kind", "", "only imports of this kind (import, export, require, dynamic)")
	importsCmd.Flags().String("alias", "", "only imports that matched this alias pattern")
	importsCmd.Flags().String("under", "", "only imports in files under this directory")
	summaryCmd.Flags().Int("top", 10, "number of aliases to list")

	queryCmd.AddCommand(unresolvedCmd)
	queryCmd.AddCommand(importsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(summaryCmd)
}

// openQuery opens the index for the repo above the working directory.
func openQuery() (*tspaths.Engine, *tspaths.QueryBuilder, error) {
	repoRoot, err := currentRepoRoot()
	if err != nil {
		return nil, nil, err
	}
	e, _, err := openIndex(repoRoot, false)
	if err != nil {
		return nil, nil, err
	}
	return e, e.Query(), nil
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination(cmd *cobra.Command) tspaths.Pagination {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	return tspaths.Pagination{Limit: limit, Offset: offset}
}

func runUnresolved(cmd *cobra.Command, args []string) error {
	e, q, err := openQuery()
	if err != nil {
		return outputError("unresolved", err)
	}
	defer e.Close()

	filter := tspaths.ImportFilter{Outcomes: []string{tspaths.AliasUnresolved.String()}}
	return outputPage("unresolved", q, filter, buildPagination(cmd))
}

func runImports(cmd *cobra.Command, args []string) error {
	e, q, err := openQuery()
	if err != nil {
		return outputError("imports", err)
	}
	defer e.Close()

	if len(args) == 1 {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("imports", err)
		}
		imports, err := q.ImportsOf(file)
		if err != nil {
			return outputError("imports", err)
		}
		out := make([]CLIImport, 0, len(imports))
		for _, imp := range imports {
			out = append(out, importToCLI(file, imp))
		}
		return outputResult(CLIResult{Command: "imports", Results: out})
	}

	var filter tspaths.ImportFilter
	filter.Outcomes, _ = cmd.Flags().GetStringSlice("outcome")
	filter.Kind, _ = cmd.Flags().GetString("kind")
	filter.Alias, _ = cmd.Flags().GetString("alias")
	if under, _ := cmd.Flags().GetString("under"); under != "" {
		if filter.PathPrefix, err = resolveFilePath(under); err != nil {
			return outputError("imports", err)
		}
	}
	return outputPage("imports", q, filter, buildPagination(cmd))
}

func runDependents(cmd *cobra.Command, args []string) error {
	e, q, err := openQuery()
	if err != nil {
		return outputError("dependents", err)
	}
	defer e.Close()

	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("dependents", err)
	}
	sites, err := q.Dependents(file)
	if err != nil {
		return outputError("dependents", err)
	}
	return outputResult(CLIResult{Command: "dependents", Results: sitesToCLI(sites)})
}

func runSummary(cmd *cobra.Command, args []string) error {
	e, q, err := openQuery()
	if err != nil {
		return outputError("summary", err)
	}
	defer e.Close()

	top, _ := cmd.Flags().GetInt("top")
	sum, err := q.Summary(top)
	if err != nil {
		return outputError("summary", err)
	}
	return outputResult(CLIResult{Command: "summary", Results: indexSummaryToCLI(sum)})
}

func outputPage(command string, q *tspaths.QueryBuilder, filter tspaths.ImportFilter, page tspaths.Pagination) error {
	res, err := q.Imports(filter, page)
	if err != nil {
		return outputError(command, err)
	}
	total := res.TotalCount
	return outputResult(CLIResult{Command: command, Results: sitesToCLI(res.Items), TotalCount: &total})
}

func sitesToCLI(sites []*tspaths.ImportSite) []CLIImport {
	out := make([]CLIImport, 0, len(sites))
	for _, s := range sites {
		out = append(out, siteToCLI(s))
	}
	return out
}
