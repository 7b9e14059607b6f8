// Package uploadqueue implements the GL upload queue (C3): an unbounded
// FIFO of decoded tiles awaiting a GPU upload, plus a sync.Pool that
// lets workers reuse pixel buffers instead of allocating one per tile.
package uploadqueue

import (
	"sync"

	"github.com/gogpu/tilestream/internal/tile"
)

// BufferPool hands out reusable RGBA8 pixel buffers sized for one tile
// edge length. Reduces GC pressure under sustained tile traffic: a
// worker that decodes N tiles per second would otherwise allocate N
// buffers of tileSize²×4 bytes per second.
//
// Thread safety: BufferPool is safe for concurrent use.
type BufferPool struct {
	tileSize uint32
	pool     sync.Pool
}

// NewBufferPool creates a pool whose buffers are sized for tileSize ×
// tileSize RGBA8 pixels.
func NewBufferPool(tileSize uint32) *BufferPool {
	p := &BufferPool{tileSize: tileSize}
	n := int(tileSize) * int(tileSize) * 4
	p.pool.New = func() any {
		return make([]byte, n)
	}
	return p
}

// Get returns a buffer sized tileSize²×4, zeroed only if freshly
// allocated; callers must overwrite every byte they care about.
func (p *BufferPool) Get() []byte {
	return p.pool.Get().([]byte)
}

// Put returns a buffer to the pool. Buffers of the wrong size (the
// caller changed tile size mid-flight) are dropped rather than pooled.
func (p *BufferPool) Put(buf []byte) {
	if uint32(len(buf)) != p.tileSize*p.tileSize*4 {
		return
	}
	p.pool.Put(buf) //nolint:staticcheck // slice reuse is the point
}

// Release returns a DecodedTile's pixel buffer to the pool and clears
// the tile's reference to it, since ownership moves back to the pool.
func (p *BufferPool) Release(dt *tile.Decoded) {
	if dt == nil || dt.Pixels == nil {
		return
	}
	p.Put(dt.Pixels)
	dt.Pixels = nil
}
