package store

import "time"

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	ConfigPath  string
	Size        int64
	LastIndexed time.Time
}

// Import is one specifier found in a file together with how it resolved.
// Outcome holds the string form of the resolver outcome; Alias and
// ResolvedPath are empty unless an alias matched.
type Import struct {
	ID           int64
	FileID       int64
	Specifier    string
	Kind         string
	Line         int
	Col          int
	Outcome      string
	Alias        string
	ResolvedPath string
}

// ImportSite is an Import joined with the path of the file containing it.
type ImportSite struct {
	Import
	FilePath string
}

type Scan struct {
	ID           string
	Root         string
	StartedAt    time.Time
	FinishedAt   time.Time
	FilesScanned int
	FilesSkipped int
	BytesScanned int64
	Imports      int
	Resolved     int
	Unresolved   int
}

// OutcomeCount is one row of an outcome histogram.
type OutcomeCount struct {
	Outcome string
	Count   int
}
