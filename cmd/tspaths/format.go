package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/jward/tspaths"
)

// stdout is where results are written.
var stdout io.Writer = os.Stdout

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml", "auto"}

// validateFormat checks that the --format value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

// outputFormat resolves "auto" to text on a terminal and json otherwise.
func outputFormat() string {
	format := settings.GetString("format")
	if format != "auto" {
		return format
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "text"
	}
	return "json"
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(stdout, outputFormat(), result)
}

func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return writeResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. Structured formats write a CLIResult envelope
// to stdout; text goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	format := outputFormat()
	if format == "text" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		return err
	}
	_ = writeResult(stdout, format, CLIResult{Command: command, Error: err.Error()})
	return err
}

// newTable returns a tabby table writing to w.
func newTable(w io.Writer) *tabby.Tabby {
	return tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
}

// colorOutcome highlights an outcome name for terminals.
func colorOutcome(outcome string) string {
	switch outcome {
	case tspaths.Resolved.String():
		return color.GreenString(outcome)
	case tspaths.AliasUnresolved.String():
		return color.RedString(outcome)
	case tspaths.OutcomeUnsupported:
		return color.YellowString(outcome)
	default:
		return outcome
	}
}

func formatResolutionText(w io.Writer, r CLIResolution) {
	switch r.Outcome {
	case tspaths.Resolved.String():
		fmt.Fprintf(w, "%s -> %s\n", r.Specifier, color.GreenString(r.Path))
		fmt.Fprintf(w, "  alias: %s\n", r.Alias)
	case tspaths.AliasUnresolved.String():
		fmt.Fprintf(w, "%s: %s (alias %s)\n", r.Specifier, colorOutcome(r.Outcome), r.Alias)
		for _, c := range r.Tried {
			fmt.Fprintf(w, "  tried %s\n", c)
		}
	default:
		fmt.Fprintf(w, "%s: %s\n", r.Specifier, colorOutcome(r.Outcome))
	}
	if r.Config != "" {
		fmt.Fprintf(w, "  config: %s\n", r.Config)
	}
}

func formatTableText(w io.Writer, t CLITable) {
	fmt.Fprintf(w, "Config:   %s\n", t.Config)
	fmt.Fprintf(w, "Base dir: %s\n", t.BaseDir)
	if len(t.Chain) > 1 {
		fmt.Fprintf(w, "Extends:  %s\n", strings.Join(t.Chain[1:], ", "))
	}
	fmt.Fprintln(w)
	tab := newTable(w)
	tab.AddHeader("ALIAS", "TARGETS")
	for _, a := range t.Aliases {
		tab.AddLine(a.Alias, strings.Join(a.Targets, ", "))
	}
	tab.Print()
}

func formatImportsText(w io.Writer, imports []CLIImport) {
	tab := newTable(w)
	tab.AddHeader("FILE", "LINE", "COL", "SPECIFIER", "KIND", "OUTCOME", "RESOLVED")
	for _, imp := range imports {
		tab.AddLine(imp.File, imp.Line, imp.Col, imp.Specifier, imp.Kind, colorOutcome(imp.Outcome), imp.ResolvedPath)
	}
	tab.Print()
}

func formatScanSummaryText(w io.Writer, s CLIScanSummary) {
	fmt.Fprintf(w, "Scanned %s (%s files, %s) in %dms\n",
		s.Root, humanize.Comma(int64(s.FilesScanned)), humanize.Bytes(uint64(s.BytesScanned)), s.DurationMS)
	if s.Config != "" {
		fmt.Fprintf(w, "Config:     %s\n", s.Config)
	}
	fmt.Fprintf(w, "Database:   %s\n", s.Database)
	fmt.Fprintf(w, "Unchanged:  %d\n", s.FilesSkipped)
	fmt.Fprintf(w, "Imports:    %d\n", s.Imports)
	fmt.Fprintf(w, "  %s %d\n", colorOutcome(tspaths.Resolved.String())+":", s.Resolved)
	fmt.Fprintf(w, "  %s %d\n", colorOutcome(tspaths.AliasUnresolved.String())+":", s.Unresolved)
	fmt.Fprintf(w, "  %s %d\n", tspaths.NotAnAlias.String()+":", s.NotAliased)
	if s.Unsupported > 0 {
		fmt.Fprintf(w, "  %s %d\n", colorOutcome(tspaths.OutcomeUnsupported)+":", s.Unsupported)
	}
	if s.Pruned > 0 {
		fmt.Fprintf(w, "Pruned:     %d\n", s.Pruned)
	}
}

func formatIndexSummaryText(w io.Writer, s CLIIndexSummary) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files:   %s\n", humanize.Comma(int64(s.Files)))
	fmt.Fprintf(w, "Configs: %d\n", s.Configs)
	fmt.Fprintf(w, "Imports: %s\n", humanize.Comma(int64(s.Imports)))
	fmt.Fprintln(w)

	if len(s.Outcomes) > 0 {
		fmt.Fprintln(w, "Outcomes:")
		for _, oc := range s.Outcomes {
			fmt.Fprintf(w, "  %s: %d\n", colorOutcome(oc.Outcome), oc.Count)
		}
		fmt.Fprintln(w)
	}

	if len(s.TopAliases) > 0 {
		fmt.Fprintln(w, "Top Aliases:")
		tab := newTable(w)
		tab.AddHeader("ALIAS", "IMPORTS", "UNRESOLVED")
		for _, a := range s.TopAliases {
			tab.AddLine(a.Alias, a.Imports, a.Unresolved)
		}
		tab.Print()
		fmt.Fprintln(w)
	}

	if sc := s.LastScan; sc != nil {
		fmt.Fprintf(w, "Last scan: %s of %s (%s)\n", sc.ID, sc.Root, humanize.Time(sc.FinishedAt))
	}
}

// writeResultText dispatches to the text formatter for the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIResolution:
		formatResolutionText(w, v)
	case CLITable:
		formatTableText(w, v)
	case []CLIImport:
		formatImportsText(w, v)
	case CLIScanSummary:
		formatScanSummaryText(w, v)
	case CLIIndexSummary:
		formatIndexSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIImport:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}
