// Package extract finds module specifiers in TypeScript and JavaScript
// sources using tree-sitter.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Import kinds.
const (
	KindImport        = "import"         // import ... from "x" and import "x"
	KindExport        = "export"         // export ... from "x"
	KindDynamic       = "dynamic"        // import("x")
	KindRequire       = "require"        // require("x")
	KindImportRequire = "import_require" // import x = require("x")
)

// Import is one specifier occurrence. Line and Col are 1-based.
type Import struct {
	Specifier string
	Kind      string
	Line      int
	Col       int
}

type pattern struct {
	kind  string
	query string
}

// Every pattern captures the specifier string as @source.
var commonPatterns = []pattern{
	{KindImport, `(import_statement source: (string) @source)`},
	{KindExport, `(export_statement source: (string) @source)`},
	{KindDynamic, `(call_expression function: (import) arguments: (arguments . (string) @source))`},
	{KindRequire, `(call_expression function: (identifier) @fn arguments: (arguments . (string) @source) (#eq? @fn "require"))`},
}

var typescriptPatterns = []pattern{
	{KindImportRequire, `(import_require_clause source: (string) @source)`},
}

func patternsFor(lang string) []pattern {
	if lang == "typescript" || lang == "tsx" {
		return append(append([]pattern(nil), commonPatterns...), typescriptPatterns...)
	}
	return commonPatterns
}

// Extract parses src as lang and returns every module specifier it
// references, ordered by position.
func Extract(ctx context.Context, lang string, src []byte) ([]Import, error) {
	grammar, ok := ParserForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var out []Import
	for _, p := range patternsFor(lang) {
		found, err := runQuery(p, grammar, root, src)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

func runQuery(p pattern, grammar *sitter.Language, root *sitter.Node, src []byte) ([]Import, error) {
	q, err := sitter.NewQuery([]byte(p.query), grammar)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid %s pattern: %w", p.kind, err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var out []Import
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, src)
		for _, capture := range match.Captures {
			if q.CaptureNameForId(capture.Index) != "source" {
				continue
			}
			spec := unquote(capture.Node.Content(src))
			if spec == "" {
				continue
			}
			pt := capture.Node.StartPoint()
			out = append(out, Import{
				Specifier: spec,
				Kind:      p.kind,
				Line:      int(pt.Row) + 1,
				Col:       int(pt.Column) + 1,
			})
		}
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
