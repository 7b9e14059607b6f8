// Package tilestream streams map tiles from a byte source into GPU
// texture memory while the camera moves. It owns the worker pool that
// fetches and decodes tile bytes, the handoff queue that carries
// decoded pixels to the render thread, the fixed-capacity texture pool
// those pixels land in, and the per-zoom indirection table a shader
// uses to resolve a tile coordinate to a pool layer in one fetch.
package tilestream

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilestream/internal/indirection"
	"github.com/gogpu/tilestream/internal/source"
	"github.com/gogpu/tilestream/internal/texpool"
	"github.com/gogpu/tilestream/internal/uploadqueue"
	"github.com/gogpu/tilestream/internal/worker"
)

// Coordinator is the public façade (C7): the only component the
// renderer interacts with directly. It composes the worker pool (C4),
// the upload queue (C3), the texture pool (C5), and the indirection
// table (C6) behind a per-tile state map.
//
// Every exported method is safe for concurrent use except ProcessUploads,
// EvictUnusedTiles and UpdateIndirectionWindowCenter, which are reserved
// for the rendering thread because they are the callers that upload to
// or reshape C5 and C6.
type Coordinator struct {
	opts coordinatorOptions

	pool     *texpool.Pool
	table    *indirection.Table
	queue    *uploadqueue.Queue
	buffers  *uploadqueue.BufferPool
	workers  *worker.Pool
	gpuQueue hal.Queue

	mu    sync.RWMutex
	state map[TileCoordinate]*TileState

	pendingLoadCount atomic.Int64
	closed           atomic.Bool
}

// NewCoordinator builds a Coordinator: it owns C3-C6 and a pool of
// worker goroutines reading from src. Construction fails if src is nil
// (ErrNilSource), or if the texture pool cannot be built (a zero
// max-pool-layers value, or a texture-creation error from the Device).
func NewCoordinator(src source.Source, opts ...Option) (*Coordinator, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	pool, err := texpool.New(texpool.Config{
		MaxLayers: o.maxPoolLayers,
		TileSize:  o.tileSize,
		Device:    o.device,
	})
	if err != nil {
		return nil, err
	}

	table := indirection.New(indirection.Config{
		MaxFullZoom: o.maxFullIndirectionZoom,
		WindowSize:  o.indirectionWindowSize,
		Device:      o.device,
	})

	q := uploadqueue.New()
	buffers := uploadqueue.NewBufferPool(o.tileSize)

	decoder := &worker.TileDecoder{
		Cache:    o.cache,
		Source:   src,
		TileSize: o.tileSize,
		Buffers:  buffers,
	}
	workers := worker.New(int(o.workerCount), decoder, q)

	c := &Coordinator{
		opts:     o,
		pool:     pool,
		table:    table,
		queue:    q,
		buffers:  buffers,
		workers:  workers,
		gpuQueue: o.queue,
		state:    make(map[TileCoordinate]*TileState),
	}
	return c, nil
}

// RequestTiles admits tiles whose state is absent or NotLoaded into the
// worker pool at the given priority (lower numeric value ranks higher).
// Already-Loading or Loaded coordinates are skipped, making repeated
// calls for the same coordinate idempotent with respect to
// PendingLoadCount (spec.md §8's round-trip property).
func (c *Coordinator) RequestTiles(tiles []TileCoordinate, priority int) {
	if c.closed.Load() || len(tiles) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, coord := range tiles {
		if st, ok := c.state[coord]; ok && st.Status != StatusNotLoaded {
			continue
		}
		c.state[coord] = &TileState{Status: StatusLoading, RequestTime: time.Now()}
		c.pendingLoadCount.Add(1)

		coord := coord
		c.workers.Submit(coord, priority, func(TileCoordinate) {})
	}
}

// ProcessUploads drains up to maxUploads decoded tiles from the upload
// queue (C3), uploading each to the texture pool (C5) and writing the
// indirection table (C6) before flipping its state to Loaded. Must only
// be called from the rendering thread. maxUploads <= 0 falls back to the
// configured per-frame budget (WithMaxUploadsPerFrame, default 5).
func (c *Coordinator) ProcessUploads(maxUploads int) {
	if c.closed.Load() {
		return
	}
	if maxUploads <= 0 {
		maxUploads = int(c.opts.maxUploadsPerFrame)
	}

	didWork := false
	for i := 0; i < maxUploads; i++ {
		dt, ok := c.queue.TryPop()
		if !ok {
			break
		}
		c.processOne(dt)
		didWork = true
	}

	if didWork && c.gpuQueue != nil {
		c.table.Upload(c.gpuQueue)
	}
}

func (c *Coordinator) processOne(dt *DecodedTile) {
	if dt.Width != c.opts.tileSize || dt.Height != c.opts.tileSize {
		Logger().Warn("coordinator: rejecting upload with wrong tile size",
			"zoom", dt.Coord.Zoom, "x", dt.Coord.X, "y", dt.Coord.Y,
			"width", dt.Width, "height", dt.Height, "want", c.opts.tileSize)
		return
	}

	layer, evicted, didEvict, err := c.pool.Acquire(dt.Coord)
	if err != nil {
		Logger().Warn("coordinator: pool exhausted, dropping upload",
			"zoom", dt.Coord.Zoom, "x", dt.Coord.X, "y", dt.Coord.Y, "error", err)
		return
	}
	if didEvict {
		c.table.ClearTile(evicted)
		c.mu.Lock()
		delete(c.state, evicted)
		c.mu.Unlock()
	}

	if err := c.pool.Upload(c.gpuQueue, layer, dt.Pixels); err != nil {
		Logger().Warn("coordinator: texture upload failed",
			"zoom", dt.Coord.Zoom, "x", dt.Coord.X, "y", dt.Coord.Y, "error", err)
		return
	}

	if err := c.table.SetTileLayer(dt.Coord, layer); err != nil && !errors.Is(err, ErrOutOfWindow) {
		Logger().Warn("coordinator: indirection write failed",
			"zoom", dt.Coord.Zoom, "x", dt.Coord.X, "y", dt.Coord.Y, "error", err)
	}

	c.mu.Lock()
	if st, ok := c.state[dt.Coord]; ok {
		st.Status = StatusLoaded
		st.PoolLayer = layer
		c.pendingLoadCount.Add(-1)
	}
	c.mu.Unlock()

	onComplete := dt.OnComplete
	c.buffers.Release(dt)
	if onComplete != nil {
		onComplete(dt.Coord)
	}
}

// EvictUnusedTiles scans the state map for Loaded tiles whose request
// time is older than maxAge (0 uses the configured default) and evicts
// them from the pool and indirection table. Returns the number evicted.
// Must only be called from the rendering thread.
func (c *Coordinator) EvictUnusedTiles(maxAge time.Duration) int {
	if c.closed.Load() {
		return 0
	}
	if maxAge <= 0 {
		maxAge = time.Duration(c.opts.defaultMaxAgeSeconds) * time.Second
	}
	cutoff := time.Now().Add(-maxAge)

	c.mu.RLock()
	victims := make([]TileCoordinate, 0)
	for coord, st := range c.state {
		if st.Status == StatusLoaded && st.RequestTime.Before(cutoff) {
			victims = append(victims, coord)
		}
	}
	c.mu.RUnlock()

	evicted := 0
	for _, coord := range victims {
		c.mu.Lock()
		st, ok := c.state[coord]
		if !ok || st.Status != StatusLoaded {
			c.mu.Unlock()
			continue
		}
		delete(c.state, coord)
		c.mu.Unlock()

		c.table.ClearTile(coord)
		c.pool.Release(coord)
		evicted++
	}

	if evicted > 0 && c.gpuQueue != nil {
		c.table.Upload(c.gpuQueue)
	}
	return evicted
}

// UpdateIndirectionWindowCenter recenters the windowed indirection slice
// at zoom on (centerX, centerY). A no-op for zoom levels using a full
// grid. Must only be called from the rendering thread.
func (c *Coordinator) UpdateIndirectionWindowCenter(zoom uint8, centerX, centerY int32) error {
	return c.table.UpdateWindowCenter(zoom, centerX, centerY)
}

// IsTileReady reports whether coord is currently resident in the
// texture pool. Pool membership, not coordinator state, is the ground
// truth the shader will see (spec.md §4.7).
//
// A renderer calls IsTileReady once per frame for every tile it intends
// to draw, which makes this the natural place to refresh the pool's LRU
// recency (spec.md §4.4's TouchTile: "called by the renderer each frame
// for tiles it actually drew"). The coordinator has no separate exposed
// touch call, so IsTileReady performs the touch as a side effect of the
// renderer's own visibility check.
func (c *Coordinator) IsTileReady(coord TileCoordinate) bool {
	_, ok := c.pool.LayerIndex(coord)
	if ok {
		c.pool.Touch(coord)
	}
	return ok
}

// GetTileLayerIndex returns coord's current pool layer, or -1 if coord
// is not resident.
func (c *Coordinator) GetTileLayerIndex(coord TileCoordinate) int32 {
	layer, ok := c.pool.LayerIndex(coord)
	if !ok {
		return -1
	}
	return layer
}

// GetTileStatus returns coord's lifecycle status: NotLoaded (the
// implicit default for any coordinate absent from the state map),
// Loading, or Loaded.
func (c *Coordinator) GetTileStatus(coord TileCoordinate) TileStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.state[coord]
	if !ok {
		return StatusNotLoaded
	}
	return st.Status
}

// GetPendingLoadCount returns the number of tiles currently admitted but
// not yet Loaded, for the renderer's own backpressure (spec.md's soft
// MaxPendingLoads contract; see SPEC_FULL.md §5).
func (c *Coordinator) GetPendingLoadCount() int64 {
	return c.pendingLoadCount.Load()
}

// GetTilePoolTextureID returns the GPU handle backing the tile pool's
// texture array, for shader binding. Nil in logical-only mode (no
// Device configured).
func (c *Coordinator) GetTilePoolTextureID() hal.TextureView {
	return c.pool.View()
}

// GetIndirectionTextureID returns the GPU handle backing zoom's
// indirection texture, creating the slice if it hasn't been referenced
// yet. Nil if slice creation failed or the coordinator runs without a
// Device.
func (c *Coordinator) GetIndirectionTextureID(zoom uint8) hal.TextureView {
	view, ok := c.table.GetTexture(zoom)
	if !ok {
		return nil
	}
	return view
}

// GetIndirectionOffset returns the current window offset for zoom's
// indirection slice: (0, 0) for a full-grid zoom or a zoom that has
// never been referenced.
func (c *Coordinator) GetIndirectionOffset(zoom uint8) (int32, int32) {
	x, y, ok := c.table.GetWindowOffset(zoom)
	if !ok {
		return 0, 0
	}
	return x, y
}

// Close signals the worker pool to stop, waits for every worker
// goroutine to exit, and releases the byte cache's disk tier if one was
// configured. After Close returns, RequestTiles, ProcessUploads and
// EvictUnusedTiles become no-ops; the query methods keep answering from
// the pool, table and state map as they were left. Close is idempotent.
func (c *Coordinator) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.workers.Close()
	if c.opts.cache != nil {
		c.opts.cache.Close()
	}
}
