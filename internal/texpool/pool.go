// Package texpool implements the GPU texture pool (C5): a fixed-depth
// 2D texture array with one tile per layer, an LRU list for eviction,
// and a free list of unallocated layer indices.
//
// Grounded on the teacher's MemoryManager (container/list LRU + map +
// budget), generalized from a byte budget to a fixed layer count: C5's
// pool never grows, so there is nothing to budget beyond "is there a
// free layer."
package texpool

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilestream/internal/tile"
)

// Config configures pool construction.
type Config struct {
	MaxLayers uint32
	TileSize  uint32
	Device    hal.Device // nil is accepted: pool tracks layers logically only
}

// Pool is the C5 texture pool. Safe for concurrent use; the render
// thread is expected to be the sole caller of Acquire/Release/Touch in
// practice (per spec.md's single-upload-thread contract), but the
// bookkeeping itself is mutex-guarded so GetTileLayerIndex-style readers
// from other goroutines see a consistent snapshot.
type Pool struct {
	maxLayers uint32
	tileSize  uint32

	texture hal.Texture
	view    hal.TextureView

	mu        sync.RWMutex
	layers    []Layer
	free      []uint32 // stack of free layer indices
	byCoord   map[tile.Coordinate]uint32
	lru       *list.List
	lruElem   []*list.Element // indexed by layer
	tick      int64
}

// New allocates the pool's backing texture array (or a logical
// placeholder if cfg.Device is nil, which lets higher layers and tests
// run without a GPU) and its free list.
func New(cfg Config) (*Pool, error) {
	if cfg.MaxLayers == 0 {
		return nil, fmt.Errorf("texpool: MaxLayers must be > 0")
	}

	p := &Pool{
		maxLayers: cfg.MaxLayers,
		tileSize:  cfg.TileSize,
		layers:    make([]Layer, cfg.MaxLayers),
		free:      make([]uint32, cfg.MaxLayers),
		byCoord:   make(map[tile.Coordinate]uint32, cfg.MaxLayers),
		lru:       list.New(),
		lruElem:   make([]*list.Element, cfg.MaxLayers),
	}
	for i := uint32(0); i < cfg.MaxLayers; i++ {
		p.free[i] = cfg.MaxLayers - 1 - i
	}

	if cfg.Device != nil {
		tex, view, err := createArrayTexture(cfg.Device, cfg.TileSize, cfg.MaxLayers)
		if err != nil {
			return nil, fmt.Errorf("texpool: create array texture: %w", err)
		}
		p.texture = tex
		p.view = view
	}

	return p, nil
}

func createArrayTexture(device hal.Device, tileSize, layers uint32) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "tilestream.pool",
		Size:          hal.Extent3D{Width: tileSize, Height: tileSize, DepthOrArrayLayers: layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "tilestream.pool_view",
		Dimension:       gputypes.TextureViewDimension2DArray,
		ArrayLayerCount: layers,
	})
	if err != nil {
		return nil, nil, err
	}
	return tex, view, nil
}

// Texture returns the GPU handle to the pool's texture array.
func (p *Pool) Texture() hal.Texture {
	return p.texture
}

// View returns the array-view over the pool's texture, used when
// binding the pool for sampling; the coordinator's GetTilePoolTextureID
// returns it.
func (p *Pool) View() hal.TextureView {
	return p.view
}

// LayerIndex returns the layer occupied by coord, or (-1, false) if
// coord is not resident.
func (p *Pool) LayerIndex(coord tile.Coordinate) (int32, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	layer, ok := p.byCoord[coord]
	if !ok {
		return -1, false
	}
	return int32(layer), true
}

// Touch marks coord as most-recently-used, if resident. A no-op
// otherwise.
func (p *Pool) Touch(coord tile.Coordinate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	layer, ok := p.byCoord[coord]
	if !ok {
		return
	}
	p.touchLocked(layer)
}

func (p *Pool) touchLocked(layer uint32) {
	p.tick++
	p.layers[layer].LastUsed = p.tick
	p.lru.MoveToFront(p.lruElem[layer])
}

// Acquire assigns coord a layer: an existing free layer if one is
// available, otherwise the least-recently-used occupied layer is
// evicted first. Returns the assigned layer index and the coordinate
// that was evicted to make room, if any.
func (p *Pool) Acquire(coord tile.Coordinate) (layer uint32, evicted tile.Coordinate, didEvict bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byCoord[coord]; ok {
		p.touchLocked(existing)
		return existing, tile.Coordinate{}, false, nil
	}

	if len(p.free) > 0 {
		layer = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.occupyLocked(layer, coord)
		return layer, tile.Coordinate{}, false, nil
	}

	back := p.lru.Back()
	if back == nil {
		return 0, tile.Coordinate{}, false, tile.ErrPoolExhausted
	}
	victimLayer := back.Value.(uint32)
	evicted = p.layers[victimLayer].Coord
	p.releaseLocked(victimLayer)
	p.occupyLocked(victimLayer, coord)
	return victimLayer, evicted, true, nil
}

func (p *Pool) occupyLocked(layer uint32, coord tile.Coordinate) {
	p.tick++
	p.layers[layer] = Layer{Coord: coord, Occupied: true, LastUsed: p.tick}
	p.byCoord[coord] = layer
	p.lruElem[layer] = p.lru.PushFront(layer)
}

func (p *Pool) releaseLocked(layer uint32) {
	coord := p.layers[layer].Coord
	delete(p.byCoord, coord)
	if elem := p.lruElem[layer]; elem != nil {
		p.lru.Remove(elem)
		p.lruElem[layer] = nil
	}
	p.layers[layer] = Layer{}
}

// Release frees coord's layer unconditionally, used by EvictUnusedTiles.
// Returns the freed layer index, or (-1, false) if coord was not
// resident.
func (p *Pool) Release(coord tile.Coordinate) (int32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	layer, ok := p.byCoord[coord]
	if !ok {
		return -1, false
	}
	p.releaseLocked(layer)
	p.free = append(p.free, layer)
	return int32(layer), true
}

// LRUCandidates returns up to n coordinates in least-recently-used
// order, oldest first, without evicting them.
func (p *Pool) LRUCandidates(n int) []tile.Coordinate {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]tile.Coordinate, 0, n)
	for e := p.lru.Back(); e != nil && len(out) < n; e = e.Prev() {
		layer := e.Value.(uint32)
		out = append(out, p.layers[layer].Coord)
	}
	return out
}

// Occupied returns the number of currently occupied layers.
func (p *Pool) Occupied() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byCoord)
}

// Capacity returns the fixed layer count (I2: len(free)+len(occupied) ==
// Capacity always holds).
func (p *Pool) Capacity() uint32 {
	return p.maxLayers
}

// Stats is a point-in-time snapshot of pool occupancy, for diagnostics
// and HUD overlays.
type Stats struct {
	Occupied uint32
	Free     uint32
	Capacity uint32
}

// Stats returns the pool's current occupancy snapshot.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	occupied := uint32(len(p.byCoord))
	return Stats{
		Occupied: occupied,
		Free:     p.maxLayers - occupied,
		Capacity: p.maxLayers,
	}
}

// Upload writes pixels (RGBA8, tileSize x tileSize) into the given
// array layer. The caller must already hold that layer via Acquire;
// Upload only performs the GPU copy, not the bookkeeping. A nil queue
// or logical-only pool (no Device at construction) makes this a no-op,
// which keeps the pool usable in tests that never stand up a GPU.
func (p *Pool) Upload(queue hal.Queue, layer uint32, pixels []byte) error {
	if len(pixels) == 0 {
		return tile.ErrNilPixels
	}
	if uint32(len(pixels)) != p.tileSize*p.tileSize*4 {
		return fmt.Errorf("texpool: upload layer %d: %w", layer, tile.ErrUnsupportedChannels)
	}
	if queue == nil || p.texture == nil {
		return nil
	}
	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: p.texture,
			Origin:  hal.Origin3D{X: 0, Y: 0, Z: layer},
		},
		pixels,
		&hal.ImageDataLayout{
			BytesPerRow:  p.tileSize * 4,
			RowsPerImage: p.tileSize,
		},
		&hal.Extent3D{Width: p.tileSize, Height: p.tileSize, DepthOrArrayLayers: 1},
	)
	return nil
}
