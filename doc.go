// Package tspaths resolves TypeScript path-alias import specifiers, the
// "paths" and "baseUrl" entries of a tsconfig.json or jsconfig.json, to
// files on disk.
//
// # Resolution
//
// A [Table] is built from an ordered list of alias patterns, each holding at
// most one "*" wildcard, and their target patterns. [Resolver.Resolve]
// matches a specifier against the table (an exact key wins, then wildcard
// aliases in declared order) and checks each candidate target in turn:
//
//  1. the path as written
//  2. the path plus each known extension, in priority order
//  3. any file in the same directory with that stem
//  4. an index file inside the path as a directory
//
// The first existing file wins. Resolution never returns an error: the
// [Result] outcome is [Resolved], [NotAnAlias] when no alias matched, or
// [AliasUnresolved] when an alias matched but no candidate existed.
//
// # Engine
//
// [Engine] is the host side. It finds the config that applies to an
// importing file, follows its "extends" chain, builds and caches the alias
// table in a [TableCache], and resolves specifiers against it:
//
//	e, err := tspaths.New()
//	if err != nil { ... }
//	defer e.Close()
//
//	res, err := e.ResolveImport(ctx, "src/app/main.ts", "@app/util")
//	if res.OK() {
//		fmt.Println(res.Path)
//	}
//
// Only imports from TypeScript files are alias-resolved by default; see
// [WithImporterExtensions]. Specifiers that match no alias but use bundler
// loader syntax ("~pkg", "style!./x.css") are rejected with [ErrLoaderSyntax].
//
// # Scanning
//
// With [WithDatabase], [Engine.ScanDirectory] extracts every import from a
// project's sources with tree-sitter, resolves it, and records the outcome
// in SQLite. [Engine.Query] reads the index back: unresolved aliases, the
// imports of a file, and the files that import a given path.
//
// # Generators
//
// [WithGenerators] adds aliases produced by Risor scripts (embedded under
// scripts/generate, or loaded from [WithScriptsDir]) after the declared
// "paths". Declared entries win on key conflict.
package tspaths
