package texpool

import "github.com/gogpu/tilestream/internal/tile"

// Layer is one slot in the pool's texture-array. A layer is either free
// (absent coordinate, not in the coordinate index) or occupied by
// exactly one tile coordinate (I1: layers[layer].coord == coord and
// layers[layer].occupied for every coord -> layer entry).
type Layer struct {
	Coord    tile.Coordinate
	Occupied bool
	LastUsed int64 // monotonic tick, not wall clock; see Pool.touchLocked
}
