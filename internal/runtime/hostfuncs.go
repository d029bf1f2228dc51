package runtime

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"
)

// makeListDirsFn creates the "list_dirs" host function.
//
// list_dirs(dir) → []string
//
// Returns the names of the subdirectories of dir, sorted, skipping hidden
// directories and node_modules. A missing dir yields an empty list.
func makeListDirsFn() *object.Builtin {
	return object.NewBuiltin("list_dirs", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("list_dirs", 1, len(args))
		}

		dirStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("list_dirs: dir must be a string, got %s", args[0].Type())
		}

		entries, err := os.ReadDir(dirStr.Value())
		if err != nil {
			if os.IsNotExist(err) {
				return object.NewList([]object.Object{})
			}
			return object.Errorf("list_dirs: reading %s: %v", dirStr.Value(), err)
		}

		var names []string
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() || strings.HasPrefix(name, ".") || name == "node_modules" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		items := make([]object.Object, len(names))
		for i, n := range names {
			items[i] = object.NewString(n)
		}
		return object.NewList(items)
	})
}

// makeExistsFn creates the "exists" host function.
//
// exists(path) → bool
func makeExistsFn() *object.Builtin {
	return object.NewBuiltin("exists", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("exists", 1, len(args))
		}

		pathStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("exists: path must be a string, got %s", args[0].Type())
		}

		_, err := os.Stat(pathStr.Value())
		return object.NewBool(err == nil)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	log *logrus.Entry
}

func (l *logObject) Info(msg string) {
	l.log.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.log.Error(msg)
}
