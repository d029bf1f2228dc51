// Package scripts embeds the Risor alias generator scripts.
package scripts

import "embed"

// FS holds generate/*.risor.
//
//go:embed generate/*.risor
var FS embed.FS
