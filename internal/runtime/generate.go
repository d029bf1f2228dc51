package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
)

// GeneratedPath is one alias entry produced by a generator script. Value is
// a string or a []any of strings, the same shapes a tsconfig paths entry
// may take.
type GeneratedPath struct {
	Alias string
	Value any
}

// GeneratorInput carries the globals a generator script sees.
type GeneratorInput struct {
	BaseDir   string
	ConfigDir string
	Prefix    string
}

// RunGenerator runs the named generator script and converts its result,
// a list of [alias, target] or [alias, [targets...]] pairs, into entries.
func (r *Runtime) RunGenerator(ctx context.Context, name string, in GeneratorInput) ([]GeneratedPath, error) {
	globals := map[string]any{
		"base_dir":   object.NewString(in.BaseDir),
		"config_dir": object.NewString(in.ConfigDir),
		"prefix":     object.NewString(in.Prefix),
	}
	result, err := r.RunScript(ctx, GeneratorScriptPath(name), globals)
	if err != nil {
		return nil, err
	}
	paths, err := toGeneratedPaths(result)
	if err != nil {
		return nil, fmt.Errorf("runtime: generator %s: %w", name, err)
	}
	return paths, nil
}

func toGeneratedPaths(obj object.Object) ([]GeneratedPath, error) {
	if obj == nil || obj == object.Nil {
		return nil, nil
	}
	list, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected list result, got %s", obj.Type())
	}

	var out []GeneratedPath
	for i, item := range list.Value() {
		pair, ok := item.(*object.List)
		if !ok || len(pair.Value()) != 2 {
			return nil, fmt.Errorf("entry %d: expected [alias, target] pair", i)
		}
		alias, ok := pair.Value()[0].(*object.String)
		if !ok {
			return nil, fmt.Errorf("entry %d: alias must be a string, got %s", i, pair.Value()[0].Type())
		}

		switch v := pair.Value()[1].(type) {
		case *object.String:
			out = append(out, GeneratedPath{Alias: alias.Value(), Value: v.Value()})
		case *object.List:
			targets := make([]any, 0, len(v.Value()))
			for j, t := range v.Value() {
				s, ok := t.(*object.String)
				if !ok {
					return nil, fmt.Errorf("entry %d: target %d must be a string, got %s", i, j, t.Type())
				}
				targets = append(targets, s.Value())
			}
			out = append(out, GeneratedPath{Alias: alias.Value(), Value: targets})
		default:
			return nil, fmt.Errorf("entry %d: target must be a string or list, got %s", i, v.Type())
		}
	}
	return out, nil
}
