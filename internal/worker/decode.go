package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/gogpu/tilestream/internal/tile"
	"github.com/gogpu/tilestream/internal/bytecache"
	"github.com/gogpu/tilestream/internal/source"
)

// TileDecoder implements Decoder: cache lookup, source fallback, decode
// to a forced 4-channel RGBA8 buffer at the configured tile size.
type TileDecoder struct {
	Cache    *bytecache.Cache // may be nil: no byte cache configured
	Source   source.Source
	TileSize uint32
	Buffers  interface {
		Get() []byte
	}
}

// Decode implements Decoder.
func (d *TileDecoder) Decode(ctx context.Context, req Request) (*tile.Decoded, error) {
	tb, err := d.fetch(ctx, req.Coord)
	if err != nil {
		return nil, err
	}

	img, err := decodeImage(tb.Data)
	if err != nil {
		return nil, fmt.Errorf("worker: decode tile z=%d x=%d y=%d: %w", req.Coord.Zoom, req.Coord.X, req.Coord.Y, err)
	}

	bounds := img.Bounds()
	if uint32(bounds.Dx()) != d.TileSize || uint32(bounds.Dy()) != d.TileSize {
		return nil, fmt.Errorf("worker: tile z=%d x=%d y=%d decoded to %dx%d, want %dx%d: %w",
			req.Coord.Zoom, req.Coord.X, req.Coord.Y, bounds.Dx(), bounds.Dy(), d.TileSize, d.TileSize, tile.ErrInvalidTileSize)
	}

	var pixels []byte
	if d.Buffers != nil {
		pixels = d.Buffers.Get()
	} else {
		pixels = make([]byte, d.TileSize*d.TileSize*4)
	}

	rgba := &image.RGBA{
		Pix:    pixels,
		Stride: int(d.TileSize) * 4,
		Rect:   image.Rect(0, 0, int(d.TileSize), int(d.TileSize)),
	}
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &tile.Decoded{
		Coord:      req.Coord,
		Pixels:     pixels,
		Width:      d.TileSize,
		Height:     d.TileSize,
		OnComplete: req.OnComplete,
	}, nil
}

func (d *TileDecoder) fetch(ctx context.Context, coord tile.Coordinate) (tile.Bytes, error) {
	if d.Cache != nil {
		if tb, ok := d.Cache.Get(coord); ok {
			return tb, nil
		}
	}

	tb, err := d.Source.Load(ctx, coord)
	if err != nil {
		return tile.Bytes{}, err
	}
	if d.Cache != nil {
		d.Cache.Put(tb)
	}
	return tb, nil
}

// decodeImage dispatches on the encoded byte signature (PNG, JPEG, or
// WebP) rather than trusting a declared content-type, since sources
// disagree on how precisely they report it.
func decodeImage(data []byte) (image.Image, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return jpeg.Decode(bytes.NewReader(data))
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: unrecognized image signature", tile.ErrUnsupportedChannels)
	}
}
