package tspaths

import (
	"github.com/jward/tspaths/internal/extract"
	"github.com/jward/tspaths/internal/store"
	"github.com/jward/tspaths/internal/tsconfig"
)

// Public type aliases for internal types that appear in the Engine and
// QueryBuilder APIs. These are Go type aliases (=), so no conversion is
// needed.

type Store = store.Store
type File = store.File
type Import = store.Import
type ImportSite = store.ImportSite
type Scan = store.Scan
type OutcomeCount = store.OutcomeCount
type Config = tsconfig.Config
type ExtractedImport = extract.Import
