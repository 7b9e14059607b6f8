package tilestream

import "github.com/gogpu/tilestream/internal/tile"

// Sentinel errors re-exported from internal/tile, where they live so
// the worker pool, texture pool, and indirection table can return them
// without importing this package.
var (
	// ErrInvalidTileSize is returned when a decoded or injected tile does
	// not match the coordinator's configured tile size.
	ErrInvalidTileSize = tile.ErrInvalidTileSize

	// ErrUnsupportedChannels is returned when a source or decoder
	// produces something other than 4-channel RGBA8 pixels.
	ErrUnsupportedChannels = tile.ErrUnsupportedChannels

	// ErrNilPixels is returned when a DecodedTile carries a nil or
	// empty pixel buffer.
	ErrNilPixels = tile.ErrNilPixels

	// ErrPoolExhausted is returned by the texture pool when an
	// allocation is requested with no free layer and no eviction
	// candidate available (no occupied layer on the LRU list).
	ErrPoolExhausted = tile.ErrPoolExhausted

	// ErrOutOfWindow is returned internally when a windowed indirection
	// write falls outside the current window; the coordinator treats it
	// as a silent drop rather than surfacing it to the renderer.
	ErrOutOfWindow = tile.ErrOutOfWindow

	// ErrNilSource is a construction-time error: a Coordinator cannot be
	// built without a byte source.
	ErrNilSource = tile.ErrNilSource
)
