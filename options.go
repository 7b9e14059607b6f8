package tilestream

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilestream/internal/bytecache"
)

// Option configures a Coordinator during construction.
// Use functional options to customize worker, pool, and indirection sizing.
//
// Example:
//
//	c, err := tilestream.NewCoordinator(src,
//		tilestream.WithWorkerCount(4),
//		tilestream.WithMaxPoolLayers(256),
//	)
type Option func(*coordinatorOptions)

// coordinatorOptions holds the tunables a Coordinator is built from.
// Construction starts from defaultOptions and applies each Option in
// turn, so a field no Option sets keeps its default; an Option given a
// zero value stores that zero.
type coordinatorOptions struct {
	tileSize               uint32
	maxPoolLayers          uint32
	workerCount            uint32
	maxUploadsPerFrame     uint32
	maxFullIndirectionZoom uint8
	indirectionWindowSize  uint32
	maxPendingLoads        uint32
	defaultMaxAgeSeconds   uint64
	cache                  *bytecache.Cache
	device                 hal.Device
	queue                  hal.Queue
}

// defaultOptions returns the option set a Coordinator uses for any field
// left unset, matching the defaults in the configuration table.
func defaultOptions() coordinatorOptions {
	return coordinatorOptions{
		tileSize:              256,
		maxPoolLayers:          512,
		workerCount:            4,
		maxUploadsPerFrame:     5,
		maxFullIndirectionZoom: 12,
		indirectionWindowSize:  512,
		maxPendingLoads:        256,
		defaultMaxAgeSeconds:   300,
	}
}

// WithTileSize sets the edge length, in pixels, that every tile must
// decode to. The pool and the upload path reject any tile that decodes
// to a different size.
func WithTileSize(px uint32) Option {
	return func(o *coordinatorOptions) {
		o.tileSize = px
	}
}

// WithMaxPoolLayers sets the depth of the GPU texture array backing the
// tile pool. This is also the pool's LRU capacity: once full, loading a
// new tile requires evicting the least-recently-used resident layer.
func WithMaxPoolLayers(n uint32) Option {
	return func(o *coordinatorOptions) {
		o.maxPoolLayers = n
	}
}

// WithWorkerCount sets the number of worker goroutines fetching and
// decoding tiles concurrently.
func WithWorkerCount(n uint32) Option {
	return func(o *coordinatorOptions) {
		o.workerCount = n
	}
}

// WithMaxUploadsPerFrame caps how many decoded tiles ProcessUploads will
// hand to the GPU in a single call, bounding per-frame upload cost.
func WithMaxUploadsPerFrame(n uint32) Option {
	return func(o *coordinatorOptions) {
		o.maxUploadsPerFrame = n
	}
}

// WithMaxFullIndirectionZoom sets the zoom level above which the
// indirection table switches from a full 2^zoom grid to a recentering
// window.
func WithMaxFullIndirectionZoom(z uint8) Option {
	return func(o *coordinatorOptions) {
		o.maxFullIndirectionZoom = z
	}
}

// WithIndirectionWindowSize sets the side length of a windowed
// indirection slice, used above MaxFullIndirectionZoom.
func WithIndirectionWindowSize(n uint32) Option {
	return func(o *coordinatorOptions) {
		o.indirectionWindowSize = n
	}
}

// WithMaxPendingLoads records the soft cap on in-flight tiles. The
// coordinator neither enforces nor reports this value; the renderer
// compares GetPendingLoadCount, the current count, against its own cap.
func WithMaxPendingLoads(n uint32) Option {
	return func(o *coordinatorOptions) {
		o.maxPendingLoads = n
	}
}

// WithDefaultMaxAge sets the age, in seconds, EvictUnusedTiles uses when
// called without an explicit threshold.
func WithDefaultMaxAge(seconds uint64) Option {
	return func(o *coordinatorOptions) {
		o.defaultMaxAgeSeconds = seconds
	}
}

// WithCache overrides the tile-byte cache the coordinator's source
// fetch path reads and writes. If unset, a Coordinator runs without a
// byte cache and every cache miss falls straight through to the source.
func WithCache(c *bytecache.Cache) Option {
	return func(o *coordinatorOptions) {
		o.cache = c
	}
}

// WithDevice attaches the GPU device the pool and indirection table
// allocate their textures from. If unset, the Coordinator runs in
// logical-only mode: layer and indirection bookkeeping still work, but
// no GPU resources are created and ProcessUploads skips the texture
// copy. Useful for tests and for any headless tile-prefetch scenario.
func WithDevice(d hal.Device) Option {
	return func(o *coordinatorOptions) {
		o.device = d
	}
}

// WithGPUQueue sets the queue ProcessUploads submits texture writes to.
// Required alongside WithDevice for uploads to actually reach the GPU.
func WithGPUQueue(q hal.Queue) Option {
	return func(o *coordinatorOptions) {
		o.queue = q
	}
}
