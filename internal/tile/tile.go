// Package tile holds the data types shared between the tilestream
// façade and its internal components (C1-C6). It exists so those
// components — the byte cache, worker pool, texture pool, indirection
// table, and byte sources — can all reference TileCoordinate and its
// neighbors without importing the root package, which in turn imports
// them: the root package re-exports everything here as type aliases.
package tile

import "time"

// Coordinate identifies a tile within the quadtree: zoom z has
// 2^z × 2^z siblings. Equality and hashing are structural over the
// triple, so Coordinate is safe to use as a map key directly.
type Coordinate struct {
	X    int32
	Y    int32
	Zoom uint8
}

// Bytes is the encoded (still-compressed) form of a tile as produced by
// the byte source or read back from the byte cache. Immutable once
// constructed; callers must not mutate Data after construction.
type Bytes struct {
	Coord       Coordinate
	Data        []byte
	ContentType string
	ETag        string
	Expires     time.Time
	Checksum    uint64
}

// Size returns the encoded payload size in bytes, the unit the
// SizeBiggestFirst eviction policy orders by.
func (t Bytes) Size() int {
	return len(t.Data)
}

// Decoded is a fully decoded RGBA8 pixel buffer in flight between the
// worker pool (C4) and the upload queue (C3). Ownership is exclusive and
// moves with the value: once pushed to the queue, the producing worker
// must not touch Pixels again.
type Decoded struct {
	Coord      Coordinate
	Pixels     []byte // RGBA8, len == Width*Height*4
	Width      uint32
	Height     uint32
	OnComplete func(Coordinate)
}

// Status is the externally observable lifecycle state of a tile. A
// tile is never seen in more than one status at once by a given reader.
type Status int

const (
	// StatusNotLoaded is the implicit state of any coordinate absent from
	// the coordinator's state map.
	StatusNotLoaded Status = iota
	// StatusLoading means the coordinator has admitted a request and the
	// tile is somewhere between C4 and C3.
	StatusLoading
	// StatusLoaded means the tile is resident in the pool (C5) and
	// reachable through the indirection table (C6).
	StatusLoaded
)

// String renders the status for logging.
func (s Status) String() string {
	switch s {
	case StatusNotLoaded:
		return "not_loaded"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// State is the coordinator's (C7) bookkeeping record for one tile
// coordinate: its status, the pool layer it occupies once loaded, and
// the time its request was admitted.
type State struct {
	Status      Status
	PoolLayer   uint32
	RequestTime time.Time
}
