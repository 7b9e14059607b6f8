package tilestream

import "github.com/gogpu/tilestream/internal/tile"

// TileCoordinate identifies a tile within the quadtree: zoom z has
// 2^z × 2^z siblings. Equality and hashing are structural over the
// triple, so TileCoordinate is safe to use as a map key directly.
//
// This is an alias for internal/tile.Coordinate, the leaf type every
// internal component (C1-C6) shares without importing this package —
// the cycle that would otherwise form if they depended on this package
// directly for the type and this package depended on them for behavior.
type TileCoordinate = tile.Coordinate

// TileBytes is the encoded (still-compressed) form of a tile as produced
// by the byte source or read back from the byte cache. Immutable once
// constructed; callers must not mutate Data after construction.
type TileBytes = tile.Bytes

// DecodedTile is a fully decoded RGBA8 pixel buffer in flight between the
// worker pool (C4) and the upload queue (C3). Ownership is exclusive and
// moves with the value: once pushed to the queue, the producing worker
// must not touch Pixels again.
type DecodedTile = tile.Decoded

// TileStatus is the externally observable lifecycle state of a tile.
// A tile is never seen in more than one status at once by a given reader.
type TileStatus = tile.Status

const (
	// StatusNotLoaded is the implicit state of any coordinate absent from
	// the coordinator's state map.
	StatusNotLoaded = tile.StatusNotLoaded
	// StatusLoading means the coordinator has admitted a request and the
	// tile is somewhere between C4 and C3.
	StatusLoading = tile.StatusLoading
	// StatusLoaded means the tile is resident in the pool (C5) and
	// reachable through the indirection table (C6).
	StatusLoaded = tile.StatusLoaded
)

// TileState is the coordinator's (C7) bookkeeping record for one tile
// coordinate: its status, the pool layer it occupies once loaded, and
// the time its request was admitted.
type TileState = tile.State
