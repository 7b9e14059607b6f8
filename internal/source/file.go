package source

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gogpu/tilestream/internal/tile"
)

// FileSource resolves tiles from a local "{root}/{z}/{x}/{y}.{ext}" tree,
// the layout produced by most offline tile-packing tools.
type FileSource struct {
	Root      string
	Extension string
}

// NewFileSource builds a FileSource rooted at dir, reading files with
// the given extension (e.g. "png", "jpg", "webp").
func NewFileSource(dir, extension string) *FileSource {
	return &FileSource{Root: dir, Extension: extension}
}

func (s *FileSource) path(coord tile.Coordinate) string {
	return filepath.Join(
		s.Root,
		strconv.Itoa(int(coord.Zoom)),
		strconv.Itoa(int(coord.X)),
		strconv.Itoa(int(coord.Y))+"."+s.Extension,
	)
}

// Load reads the tile file from disk. A missing file is reported as a
// wrapped os.ErrNotExist, which the worker treats as a source error.
func (s *FileSource) Load(_ context.Context, coord tile.Coordinate) (tile.Bytes, error) {
	p := s.path(coord)
	data, err := os.ReadFile(p)
	if err != nil {
		return tile.Bytes{}, wrapLoadErr(coord, fmt.Errorf("%s: %w", p, err))
	}

	info, statErr := os.Stat(p)
	tb := tile.Bytes{
		Coord:    coord,
		Data:     data,
		Checksum: uint64(crc32.ChecksumIEEE(data)),
	}
	if statErr == nil {
		tb.ETag = strconv.FormatInt(info.ModTime().UnixNano(), 16)
	}
	return tb, nil
}
