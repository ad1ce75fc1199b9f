// Package config holds build metadata and a small Run struct of
// per-invocation knobs (stack size, history DSN, debug server address,
// verbosity); there is no config file. cmd/kano parses its own flags and
// uses only the build metadata from this package.
//
// Grounded on the teacher's cmd/sentra/main.go ldflags-style BuildDate/
// GitCommit var block: build metadata is a package-level var set at link
// time, not something a config struct carries at runtime.
package config

import "time"

// Build metadata, set via -ldflags "-X kano/internal/config.Version=...".
var (
	Version   = "dev"
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

// Run holds the knobs a single `kano run`/`kano repl`/`kano debug` invocation
// needs.
type Run struct {
	StackSize uint64 // bytes; 0 means interp.DefaultStackSize
	HistoryDSN string // empty disables run-history recording
	DebugAddr  string // empty disables the live debug server
	Verbose    bool
}

// Default returns the zero-value configuration (default stack size, history
// and debug server disabled).
func Default() Run { return Run{} }
