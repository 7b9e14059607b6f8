package indirection

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Sentinel is the "tile absent" value written into an indirection texel.
const Sentinel uint16 = 0xFFFF

// slice is one zoom level's indirection grid: a CPU-side mirror that is
// authoritative for correctness, and a GPU single-channel R16Uint
// texture that mirrors it for the shader. For windowed slices, the grid
// recenters on UpdateWindowCenter and tiles outside the window are
// unrepresentable (I6).
type slice struct {
	zoom     uint8
	windowed bool
	side     uint32 // grid edge length: 2^zoom for full, window size for windowed

	grid  []uint16 // side*side, row-major
	dirty bool

	offsetX, offsetY int32 // windowed only

	texture hal.Texture
	view    hal.TextureView
}

func newFullSlice(device hal.Device, zoom uint8, side uint32) (*slice, error) {
	s := &slice{zoom: zoom, side: side, grid: newSentinelGrid(side)}
	if device != nil {
		tex, view, err := createIndirectionTexture(device, side)
		if err != nil {
			return nil, err
		}
		s.texture, s.view = tex, view
	}
	return s, nil
}

func newWindowedSlice(device hal.Device, zoom uint8, windowSize uint32, centerX, centerY int32) (*slice, error) {
	s := &slice{
		zoom:     zoom,
		windowed: true,
		side:     windowSize,
		grid:     newSentinelGrid(windowSize),
	}
	s.recenter(centerX, centerY)
	if device != nil {
		tex, view, err := createIndirectionTexture(device, windowSize)
		if err != nil {
			return nil, err
		}
		s.texture, s.view = tex, view
	}
	return s, nil
}

func newSentinelGrid(side uint32) []uint16 {
	grid := make([]uint16, side*side)
	for i := range grid {
		grid[i] = Sentinel
	}
	return grid
}

func createIndirectionTexture(device hal.Device, side uint32) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "tilestream.indirection",
		Size:          hal.Extent3D{Width: side, Height: side, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR16Uint,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "tilestream.indirection_view",
	})
	if err != nil {
		return nil, nil, err
	}
	return tex, view, nil
}

// texelFor maps a tile (x, y) to a grid index, honoring the windowed
// offset. Returns false if the tile is outside the grid (never the case
// for a full slice when x and y lie in [0, side)).
func (s *slice) texelFor(x, y int32) (idx int, ok bool) {
	tx, ty := x, y
	if s.windowed {
		tx -= s.offsetX
		ty -= s.offsetY
	}
	if tx < 0 || ty < 0 || uint32(tx) >= s.side || uint32(ty) >= s.side {
		return 0, false
	}
	return int(ty)*int(s.side) + int(tx), true
}

func (s *slice) set(x, y int32, layer uint16) bool {
	idx, ok := s.texelFor(x, y)
	if !ok {
		return false
	}
	s.grid[idx] = layer
	s.dirty = true
	return true
}

func (s *slice) clear(x, y int32) {
	idx, ok := s.texelFor(x, y)
	if !ok {
		return
	}
	s.grid[idx] = Sentinel
	s.dirty = true
}

func (s *slice) get(x, y int32) (uint16, bool) {
	idx, ok := s.texelFor(x, y)
	if !ok {
		return Sentinel, false
	}
	v := s.grid[idx]
	return v, v != Sentinel
}

// recenter moves a windowed slice so (centerX, centerY) sits in the
// middle of the grid, and clears every texel: a moved window can no
// longer vouch for any previously-placed tile's position (a tile that
// was in range may now map to a different texel, or none at all).
func (s *slice) recenter(centerX, centerY int32) {
	half := int32(s.side / 2)
	s.offsetX = centerX - half
	s.offsetY = centerY - half
	for i := range s.grid {
		s.grid[i] = Sentinel
	}
	s.dirty = true
}

// uploadIfDirty pushes the CPU grid to the GPU texture when it has
// changed and a device-backed texture exists. No-op in logical-only mode
// (nil device at construction).
func (s *slice) uploadIfDirty(queue hal.Queue) {
	if !s.dirty || s.texture == nil || queue == nil {
		return
	}
	buf := make([]byte, len(s.grid)*2)
	for i, v := range s.grid {
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: s.texture},
		buf,
		&hal.ImageDataLayout{
			BytesPerRow:  s.side * 2,
			RowsPerImage: s.side,
		},
		&hal.Extent3D{Width: s.side, Height: s.side, DepthOrArrayLayers: 1},
	)
	s.dirty = false
}
