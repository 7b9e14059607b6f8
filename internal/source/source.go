// Package source provides tile byte sources: the blocking, thread-safe
// "give me the encoded bytes for this coordinate" step that sits
// upstream of decode.
package source

import (
	"context"
	"fmt"

	"github.com/gogpu/tilestream/internal/tile"
)

// Source loads the encoded bytes for a tile coordinate. Implementations
// must be safe to call concurrently from many worker goroutines; Load
// blocks until the bytes are available, the context is canceled, or a
// fatal fetch error occurs.
type Source interface {
	Load(ctx context.Context, coord tile.Coordinate) (tile.Bytes, error)
}

// wrapLoadErr gives every Source implementation the same error shape,
// so a worker can log a single consistent message regardless of which
// source produced the failure.
func wrapLoadErr(coord tile.Coordinate, err error) error {
	return fmt.Errorf("source: load tile z=%d x=%d y=%d: %w", coord.Zoom, coord.X, coord.Y, err)
}
