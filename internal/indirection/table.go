// Package indirection implements the per-zoom indirection table (C6):
// for each zoom level in use, a grid mapping tile (x, y) to the pool
// layer holding that tile's texture, sampled by the shader to resolve a
// screen-space tile coordinate to a pool layer without a CPU round trip.
//
// Grounded on the teacher's TextureAtlas (internal/gpu/atlas.go): lazy
// per-key texture creation, a dirty flag gating GPU re-upload, and
// mutex-guarded bounds validation all carry over directly; shelf
// packing does not apply here since indirection is a dense grid, not a
// bin-packing problem.
package indirection

import (
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilestream/internal/tile"
)

// Config configures Table construction.
type Config struct {
	// MaxFullZoom is the highest zoom level that gets a full 2^zoom x
	// 2^zoom grid. Zoom levels above this get a fixed-size windowed
	// grid instead, since a full grid would be unreasonably large.
	MaxFullZoom uint8
	// WindowSize is the edge length of the windowed grid used for zoom
	// levels above MaxFullZoom.
	WindowSize uint32
	// Device backs each slice's indirection texture. nil is accepted:
	// the table still tracks layer assignments logically, useful for
	// tests that don't stand up a GPU.
	Device hal.Device
}

// Table owns one slice per zoom level currently in use, created lazily
// on first reference.
type Table struct {
	maxFullZoom uint8
	windowSize  uint32
	device      hal.Device

	mu     sync.RWMutex
	slices map[uint8]*slice
}

// New constructs an empty Table. Slices are created on demand.
func New(cfg Config) *Table {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 512
	}
	return &Table{
		maxFullZoom: cfg.MaxFullZoom,
		windowSize:  cfg.WindowSize,
		device:      cfg.Device,
		slices:      make(map[uint8]*slice),
	}
}

func (t *Table) isWindowed(zoom uint8) bool {
	return zoom > t.maxFullZoom
}

func (t *Table) sideFor(zoom uint8) uint32 {
	if t.isWindowed(zoom) {
		return t.windowSize
	}
	return uint32(1) << zoom
}

// ensureLocked returns the slice for zoom, creating it (centered at the
// origin for windowed slices) if it doesn't exist yet. Callers must
// hold t.mu for writing.
func (t *Table) ensureLocked(zoom uint8) (*slice, error) {
	if s, ok := t.slices[zoom]; ok {
		return s, nil
	}

	var (
		s   *slice
		err error
	)
	if t.isWindowed(zoom) {
		s, err = newWindowedSlice(t.device, zoom, t.windowSize, 0, 0)
	} else {
		s, err = newFullSlice(t.device, zoom, t.sideFor(zoom))
	}
	if err != nil {
		return nil, err
	}
	t.slices[zoom] = s
	return s, nil
}

// SetTileLayer records that coord's tile is resident in pool layer
// layer, making it visible to the shader at the next upload. Returns
// tile.ErrOutOfWindow if the zoom uses a windowed slice and coord
// currently falls outside the window (I6).
func (t *Table) SetTileLayer(coord tile.Coordinate, layer uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.ensureLocked(coord.Zoom)
	if err != nil {
		return err
	}
	if !s.set(coord.X, coord.Y, uint16(layer)) {
		return tile.ErrOutOfWindow
	}
	return nil
}

// ClearTile removes coord's entry, if any, writing the sentinel back.
func (t *Table) ClearTile(coord tile.Coordinate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slices[coord.Zoom]
	if !ok {
		return
	}
	s.clear(coord.X, coord.Y)
}

// GetTileLayer returns the pool layer for coord, and whether coord has
// a current entry (false for sentinel, out-of-window, or an
// as-yet-unreferenced zoom).
func (t *Table) GetTileLayer(coord tile.Coordinate) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.slices[coord.Zoom]
	if !ok {
		return 0, false
	}
	v, ok := s.get(coord.X, coord.Y)
	return uint32(v), ok
}

// GetTexture returns the GPU texture backing zoom's slice, creating the
// slice if necessary. The second return value is false only if zoom has
// never been referenced and slice creation failed (Device set but the
// call errored) — callers normally ignore this and retry next frame.
func (t *Table) GetTexture(zoom uint8) (hal.TextureView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.ensureLocked(zoom)
	if err != nil {
		return nil, false
	}
	return s.view, true
}

// GetWindowOffset returns the current (offsetX, offsetY) of zoom's
// windowed slice. Returns (0, 0, false) for full slices or zooms not
// yet referenced.
func (t *Table) GetWindowOffset(zoom uint8) (int32, int32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.slices[zoom]
	if !ok || !s.windowed {
		return 0, 0, false
	}
	return s.offsetX, s.offsetY, true
}

// UpdateWindowCenter recenters zoom's windowed slice on (centerX,
// centerY), clearing every entry: a moved window invalidates all prior
// placements (I6). A no-op for full-grid zooms. Creates the slice
// (centered at the new position) if it doesn't exist yet.
func (t *Table) UpdateWindowCenter(zoom uint8, centerX, centerY int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isWindowed(zoom) {
		return nil
	}

	s, ok := t.slices[zoom]
	if !ok {
		created, err := newWindowedSlice(t.device, zoom, t.windowSize, centerX, centerY)
		if err != nil {
			return err
		}
		t.slices[zoom] = created
		return nil
	}
	if s.offsetX+int32(s.side/2) == centerX && s.offsetY+int32(s.side/2) == centerY {
		return nil // already centered here; avoid a gratuitous full clear
	}
	s.recenter(centerX, centerY)
	return nil
}

// ReleaseZoom discards zoom's slice entirely, freeing its GPU texture
// reference. Used when a zoom level falls out of the active render set.
func (t *Table) ReleaseZoom(zoom uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slices, zoom)
}

// ZoomStats reports one active zoom level's slice footprint.
type ZoomStats struct {
	Zoom     uint8
	Windowed bool
	Side     uint32 // grid edge length; memory footprint is Side*Side*2 bytes
}

// Stats returns a snapshot of every zoom level currently referenced, for
// diagnostics and HUD overlays.
func (t *Table) Stats() []ZoomStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ZoomStats, 0, len(t.slices))
	for zoom, s := range t.slices {
		out = append(out, ZoomStats{Zoom: zoom, Windowed: s.windowed, Side: s.side})
	}
	return out
}

// Upload pushes every dirty slice's CPU grid to its GPU texture. Called
// once per frame from the render thread, after a batch of
// SetTileLayer/ClearTile calls.
func (t *Table) Upload(queue hal.Queue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slices {
		s.uploadIfDirty(queue)
	}
}
