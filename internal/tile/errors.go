package tile

import "errors"

var (
	// ErrInvalidTileSize is returned when a decoded or injected tile does
	// not match the coordinator's configured tile size.
	ErrInvalidTileSize = errors.New("tilestream: tile size mismatch")

	// ErrUnsupportedChannels is returned when a source or decoder
	// produces something other than 4-channel RGBA8 pixels.
	ErrUnsupportedChannels = errors.New("tilestream: unsupported channel count, RGBA8 required")

	// ErrNilPixels is returned when a Decoded tile carries a nil or
	// empty pixel buffer.
	ErrNilPixels = errors.New("tilestream: decoded tile has no pixel data")

	// ErrPoolExhausted is returned by the texture pool when an
	// allocation is requested with no free layer and no eviction
	// candidate available (no occupied layer on the LRU list).
	ErrPoolExhausted = errors.New("tilestream: texture pool exhausted, no eviction candidate")

	// ErrOutOfWindow is returned internally when a windowed indirection
	// write falls outside the current window; the coordinator treats it
	// as a silent drop rather than surfacing it to the renderer.
	ErrOutOfWindow = errors.New("tilestream: tile coordinate outside indirection window")

	// ErrNilSource is a construction-time error: a Coordinator cannot be
	// built without a byte source.
	ErrNilSource = errors.New("tilestream: nil tile source")
)
