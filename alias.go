package tspaths

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Wildcard is the marker that splits a pattern into a literal prefix and suffix.
const Wildcard = "*"

// Pattern is an alias or target pattern containing at most one wildcard.
type Pattern string

// HasWildcard reports whether the pattern contains the wildcard marker.
func (p Pattern) HasWildcard() bool {
	return strings.Contains(string(p), Wildcard)
}

// Split returns the literal text before and after the wildcard. For a
// pattern without a wildcard, prefix is the whole pattern and suffix is empty.
func (p Pattern) Split() (prefix, suffix string) {
	s := string(p)
	i := strings.Index(s, Wildcard)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(Wildcard):]
}

// Match tests specifier against the pattern. Wildcard patterns are anchored
// at both ends and capture zero or more characters; patterns without a
// wildcard match only on full equality.
func (p Pattern) Match(specifier string) (capture string, ok bool) {
	if !p.HasWildcard() {
		return "", string(p) == specifier
	}
	prefix, suffix := p.Split()
	if len(specifier) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}
	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}

// Expand substitutes capture for the wildcard. A pattern without a wildcard
// is returned unchanged.
func (p Pattern) Expand(capture string) string {
	if !p.HasWildcard() {
		return string(p)
	}
	prefix, suffix := p.Split()
	return prefix + capture + suffix
}

// Targets is the ordered candidate list for one alias. It is either a
// SingleTarget or a MultiTarget; the variant is fixed when the table is built.
type Targets interface {
	// Patterns returns the candidates in priority order.
	Patterns() []Pattern
	isTargets()
}

// SingleTarget is an alias configured with one target string.
type SingleTarget struct {
	Pattern Pattern
}

func (s SingleTarget) Patterns() []Pattern { return []Pattern{s.Pattern} }
func (SingleTarget) isTargets()            {}

// MultiTarget is an alias configured with an ordered list of targets.
type MultiTarget struct {
	List []Pattern
}

func (m MultiTarget) Patterns() []Pattern {
	out := make([]Pattern, len(m.List))
	copy(out, m.List)
	return out
}
func (MultiTarget) isTargets() {}

// RawPath is one decoded alias entry, in declaration order. Value is a string
// or a non-empty sequence of strings ([]string or []any).
type RawPath struct {
	Alias string
	Value any
}

// Entry pairs an alias with its built targets.
type Entry struct {
	Alias   Pattern
	Targets Targets
}

// Table maps alias patterns to target candidates prefixed with the base
// directory. A Table is immutable after Build and safe for concurrent use.
type Table struct {
	baseDir string
	order   []Pattern
	entries map[Pattern]Targets
}

// Build normalizes raw alias entries into a Table. Each target is joined
// with baseDir using the platform separator. A later entry for an alias
// already seen replaces its targets but keeps the first position. Build does
// not touch the filesystem.
func Build(baseDir string, raw []RawPath) (*Table, error) {
	t := &Table{
		baseDir: baseDir,
		entries: make(map[Pattern]Targets, len(raw)),
	}
	for _, rp := range raw {
		if rp.Alias == "" {
			return nil, &ConfigShapeError{Alias: rp.Alias, Reason: "empty alias"}
		}
		if strings.Count(rp.Alias, Wildcard) > 1 {
			return nil, &ConfigShapeError{Alias: rp.Alias, Reason: "alias has more than one wildcard"}
		}
		targets, err := buildTargets(baseDir, rp)
		if err != nil {
			return nil, err
		}
		alias := Pattern(rp.Alias)
		if _, seen := t.entries[alias]; !seen {
			t.order = append(t.order, alias)
		}
		t.entries[alias] = targets
	}
	return t, nil
}

func buildTargets(baseDir string, rp RawPath) (Targets, error) {
	switch v := rp.Value.(type) {
	case string:
		p, err := joinTarget(baseDir, rp.Alias, v)
		if err != nil {
			return nil, err
		}
		return SingleTarget{Pattern: p}, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return buildMulti(baseDir, rp.Alias, items)
	case []any:
		return buildMulti(baseDir, rp.Alias, v)
	default:
		return nil, &ConfigShapeError{
			Alias:  rp.Alias,
			Reason: fmt.Sprintf("bad path type %T, expected string or string[]", rp.Value),
		}
	}
}

func buildMulti(baseDir, alias string, items []any) (Targets, error) {
	if len(items) == 0 {
		return nil, &ConfigShapeError{Alias: alias, Reason: "empty target list"}
	}
	list := make([]Pattern, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &ConfigShapeError{
				Alias:  alias,
				Reason: fmt.Sprintf("target %d has type %T, expected string", i, item),
			}
		}
		p, err := joinTarget(baseDir, alias, s)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return MultiTarget{List: list}, nil
}

func joinTarget(baseDir, alias, target string) (Pattern, error) {
	if strings.Count(target, Wildcard) > 1 {
		return "", &ConfigShapeError{Alias: alias, Reason: fmt.Sprintf("target %q has more than one wildcard", target)}
	}
	prefix, suffix, wild := strings.Cut(target, Wildcard)
	if wild && slices.Contains(strings.Split(filepath.ToSlash(suffix), "/"), "..") {
		return "", &ConfigShapeError{Alias: alias, Reason: fmt.Sprintf("target %q steps out of its wildcard with ..", target)}
	}
	if baseDir == "" || filepath.IsAbs(target) {
		return Pattern(target), nil
	}
	if !wild {
		return Pattern(filepath.Join(baseDir, target)), nil
	}
	// Clean only the directory part of the prefix. Cleaning the whole
	// target could fold the wildcard into a neighbouring segment.
	cut := strings.LastIndexAny(prefix, `/\`) + 1
	head := filepath.Join(baseDir, prefix[:cut]) + string(filepath.Separator) + prefix[cut:]
	return Pattern(head + Wildcard + filepath.FromSlash(suffix)), nil
}

// BaseDir returns the directory every target was joined with.
func (t *Table) BaseDir() string { return t.baseDir }

// Len returns the number of aliases.
func (t *Table) Len() int { return len(t.order) }

// Lookup returns the targets for an alias pattern, matched verbatim.
func (t *Table) Lookup(alias string) (Targets, bool) {
	targets, ok := t.entries[Pattern(alias)]
	return targets, ok
}

// Aliases returns the alias patterns in declaration order.
func (t *Table) Aliases() []Pattern {
	out := make([]Pattern, len(t.order))
	copy(out, t.order)
	return out
}

// Entries returns every alias with its targets, in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, a := range t.order {
		out = append(out, Entry{Alias: a, Targets: t.entries[a]})
	}
	return out
}

// match finds the alias for specifier: an exact key wins over any wildcard,
// otherwise wildcard aliases are tried in declaration order.
func (t *Table) match(specifier string) (Pattern, string, Targets, bool) {
	if targets, ok := t.entries[Pattern(specifier)]; ok {
		return Pattern(specifier), "", targets, true
	}
	for _, alias := range t.order {
		if !alias.HasWildcard() {
			continue
		}
		if capture, ok := alias.Match(specifier); ok {
			return alias, capture, t.entries[alias], true
		}
	}
	return "", "", nil, false
}
