// Package sysmem estimates how much memory the byte cache's memory tier
// may use before it should prefer spilling to disk.
package sysmem

import (
	"log/slog"
	"runtime"

	"github.com/gogpu/tilestream/internal/tile"
)

// DefaultPressureFraction is a fraction of total RAM for use with
// ComputeLimit. Nothing in this module applies it automatically.
const DefaultPressureFraction = 0.90

// ComputeLimit returns the byte budget for the memory tier: fraction of
// total system RAM, minus current Go runtime overhead plus a fixed
// headroom reserve. Returns 0 if RAM detection fails or the computed
// budget is under 64 MiB; Config.Options then derives no capacity from
// the fraction and, with no explicit Capacity, builds no cache.
func ComputeLimit(fraction float64) int64 {
	total, err := totalSystemRAM()
	if err != nil {
		tile.Logger().Warn("sysmem: cannot detect system RAM, no memory limit computed", "error", err)
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const headroom = 512 * 1024 * 1024
	overhead := int64(m.Sys) + headroom

	limit := int64(float64(total)*fraction) - overhead
	const minLimit = 64 * 1024 * 1024
	if limit < minLimit {
		tile.Logger().Warn("sysmem: computed memory limit too small, returning 0",
			slog.Int64("limit_bytes", limit))
		return 0
	}
	return limit
}
