package tspaths

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfigShape reports an alias entry whose value is neither a
	// string nor a non-empty sequence of strings.
	ErrInvalidConfigShape = errors.New("invalid paths config shape")

	// ErrNotAnAlias is returned by Result.Err when no alias matched.
	ErrNotAnAlias = errors.New("not an alias")

	// ErrAliasUnresolved is returned by Result.Err when an alias matched but
	// no candidate exists on disk.
	ErrAliasUnresolved = errors.New("no file found for alias")

	// ErrLoaderSyntax reports bundler loader syntax (e.g. "~pkg" or
	// "style!./a.css") that path aliases do not handle.
	ErrLoaderSyntax = errors.New("unsupported loader syntax")
)

// ConfigShapeError describes a malformed alias entry.
type ConfigShapeError struct {
	Alias  string
	Reason string
}

func (e *ConfigShapeError) Error() string {
	return fmt.Sprintf("tspaths: alias %q: %s", e.Alias, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfigShape) succeed.
func (e *ConfigShapeError) Is(target error) bool {
	return target == ErrInvalidConfigShape
}
