package tilestream

import (
	"log/slog"

	"github.com/gogpu/tilestream/internal/tile"
)

// SetLogger configures the logger used by the coordinator and all of its
// internal components (source, cache, worker pool, texture pool,
// indirection table). By default tilestream produces no log output.
// Every component reads the same atomic pointer held in internal/tile,
// so a single call here reaches all of them without an import cycle
// back to this package.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// tilestream logs only at [slog.LevelWarn]: source/decode failures,
// rejected or failed uploads, disk spill write failures, and disk-tier
// read failures (cache corruption).
//
// Example:
//
//	tilestream.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//		Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	tile.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return tile.Logger()
}
