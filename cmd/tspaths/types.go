package main

import (
	"time"

	"github.com/jward/tspaths"
)

// CLIResult is the top-level envelope for every command's JSON and YAML
// output.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIResolution is the result of resolving one specifier.
type CLIResolution struct {
	Specifier string   `json:"specifier" yaml:"specifier"`
	Importer  string   `json:"importer" yaml:"importer"`
	Config    string   `json:"config,omitempty" yaml:"config,omitempty"`
	Outcome   string   `json:"outcome" yaml:"outcome"`
	Alias     string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Capture   string   `json:"capture,omitempty" yaml:"capture,omitempty"`
	Path      string   `json:"path,omitempty" yaml:"path,omitempty"`
	AbsPath   string   `json:"abs_path,omitempty" yaml:"abs_path,omitempty"`
	Tried     []string `json:"tried,omitempty" yaml:"tried,omitempty"`
}

// CLIAlias is one alias table entry.
type CLIAlias struct {
	Alias   string   `json:"alias" yaml:"alias"`
	Targets []string `json:"targets" yaml:"targets"`
}

// CLITable is the alias table for one config.
type CLITable struct {
	Config  string     `json:"config" yaml:"config"`
	BaseDir string     `json:"base_dir" yaml:"base_dir"`
	Chain   []string   `json:"chain" yaml:"chain"`
	Aliases []CLIAlias `json:"aliases" yaml:"aliases"`
}

// CLIImport is one indexed import site.
type CLIImport struct {
	File         string `json:"file" yaml:"file"`
	Line         int    `json:"line" yaml:"line"`
	Col          int    `json:"col" yaml:"col"`
	Specifier    string `json:"specifier" yaml:"specifier"`
	Kind         string `json:"kind" yaml:"kind"`
	Outcome      string `json:"outcome" yaml:"outcome"`
	Alias        string `json:"alias,omitempty" yaml:"alias,omitempty"`
	ResolvedPath string `json:"resolved_path,omitempty" yaml:"resolved_path,omitempty"`
}

// CLIScanSummary reports one scan.
type CLIScanSummary struct {
	ID           string `json:"id" yaml:"id"`
	Root         string `json:"root" yaml:"root"`
	Config       string `json:"config,omitempty" yaml:"config,omitempty"`
	Database     string `json:"database" yaml:"database"`
	FilesScanned int    `json:"files_scanned" yaml:"files_scanned"`
	FilesSkipped int    `json:"files_skipped" yaml:"files_skipped"`
	BytesScanned int64  `json:"bytes_scanned" yaml:"bytes_scanned"`
	Imports      int    `json:"imports" yaml:"imports"`
	Resolved     int    `json:"resolved" yaml:"resolved"`
	Unresolved   int    `json:"unresolved" yaml:"unresolved"`
	NotAliased   int    `json:"not_aliased" yaml:"not_aliased"`
	Unsupported  int    `json:"unsupported" yaml:"unsupported"`
	Pruned       int    `json:"pruned" yaml:"pruned"`
	DurationMS   int64  `json:"duration_ms" yaml:"duration_ms"`
}

// CLIOutcomeCount is one row of the outcome histogram.
type CLIOutcomeCount struct {
	Outcome string `json:"outcome" yaml:"outcome"`
	Count   int    `json:"count" yaml:"count"`
}

// CLIAliasUsage counts the imports that matched one alias.
type CLIAliasUsage struct {
	Alias      string `json:"alias" yaml:"alias"`
	Imports    int    `json:"imports" yaml:"imports"`
	Unresolved int    `json:"unresolved" yaml:"unresolved"`
}

// CLIScan is a recorded scan.
type CLIScan struct {
	ID           string    `json:"id" yaml:"id"`
	Root         string    `json:"root" yaml:"root"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	FilesScanned int       `json:"files_scanned" yaml:"files_scanned"`
	Imports      int       `json:"imports" yaml:"imports"`
	Unresolved   int       `json:"unresolved" yaml:"unresolved"`
}

// CLIIndexSummary is an overview of the scan index.
type CLIIndexSummary struct {
	Files      int               `json:"files" yaml:"files"`
	Configs    int               `json:"configs" yaml:"configs"`
	Imports    int               `json:"imports" yaml:"imports"`
	Outcomes   []CLIOutcomeCount `json:"outcomes" yaml:"outcomes"`
	TopAliases []CLIAliasUsage   `json:"top_aliases" yaml:"top_aliases"`
	LastScan   *CLIScan          `json:"last_scan,omitempty" yaml:"last_scan,omitempty"`
}

func resolutionToCLI(importer, config string, r tspaths.Result) CLIResolution {
	return CLIResolution{
		Specifier: r.Specifier,
		Importer:  importer,
		Config:    config,
		Outcome:   r.Outcome.String(),
		Alias:     string(r.Alias),
		Capture:   r.Capture,
		Path:      r.Path,
		AbsPath:   r.AbsPath,
		Tried:     r.Tried,
	}
}

func tableToCLI(ct *tspaths.CachedTable) CLITable {
	out := CLITable{
		Config:  ct.Config.Path,
		BaseDir: ct.Table.BaseDir(),
		Chain:   ct.Config.Chain,
		Aliases: make([]CLIAlias, 0, ct.Table.Len()),
	}
	for _, e := range ct.Table.Entries() {
		a := CLIAlias{Alias: string(e.Alias)}
		for _, p := range e.Targets.Patterns() {
			a.Targets = append(a.Targets, string(p))
		}
		out.Aliases = append(out.Aliases, a)
	}
	return out
}

func siteToCLI(s *tspaths.ImportSite) CLIImport {
	return importToCLI(s.FilePath, &s.Import)
}

func importToCLI(file string, imp *tspaths.Import) CLIImport {
	return CLIImport{
		File:         file,
		Line:         imp.Line,
		Col:          imp.Col,
		Specifier:    imp.Specifier,
		Kind:         imp.Kind,
		Outcome:      imp.Outcome,
		Alias:        imp.Alias,
		ResolvedPath: imp.ResolvedPath,
	}
}

func scanSummaryToCLI(s *tspaths.ScanSummary, dbPath string) CLIScanSummary {
	return CLIScanSummary{
		ID:           s.ID,
		Root:         s.Root,
		Config:       s.Config,
		Database:     dbPath,
		FilesScanned: s.FilesScanned,
		FilesSkipped: s.FilesSkipped,
		BytesScanned: s.BytesScanned,
		Imports:      s.Imports,
		Resolved:     s.Resolved,
		Unresolved:   s.Unresolved,
		NotAliased:   s.NotAliased,
		Unsupported:  s.Unsupported,
		Pruned:       s.Pruned,
		DurationMS:   s.Duration.Milliseconds(),
	}
}

func indexSummaryToCLI(s *tspaths.IndexSummary) CLIIndexSummary {
	out := CLIIndexSummary{
		Files:      s.Files,
		Configs:    s.Configs,
		Imports:    s.Imports,
		Outcomes:   make([]CLIOutcomeCount, 0, len(s.Outcomes)),
		TopAliases: make([]CLIAliasUsage, 0, len(s.TopAliases)),
	}
	for _, oc := range s.Outcomes {
		out.Outcomes = append(out.Outcomes, CLIOutcomeCount{Outcome: oc.Outcome, Count: oc.Count})
	}
	for _, au := range s.TopAliases {
		out.TopAliases = append(out.TopAliases, CLIAliasUsage{Alias: au.Alias, Imports: au.Imports, Unresolved: au.Unresolved})
	}
	if sc := s.LastScan; sc != nil {
		out.LastScan = &CLIScan{
			ID:           sc.ID,
			Root:         sc.Root,
			StartedAt:    sc.StartedAt,
			FinishedAt:   sc.FinishedAt,
			FilesScanned: sc.FilesScanned,
			Imports:      sc.Imports,
			Unresolved:   sc.Unresolved,
		}
	}
	return out
}
