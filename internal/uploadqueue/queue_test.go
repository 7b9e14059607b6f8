package uploadqueue

import (
	"testing"

	"github.com/gogpu/tilestream/internal/tile"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New()
	a := &tile.Decoded{Coord: tile.Coordinate{X: 0, Y: 0, Zoom: 1}}
	b := &tile.Decoded{Coord: tile.Coordinate{X: 1, Y: 0, Zoom: 1}}
	c := &tile.Decoded{Coord: tile.Coordinate{X: 2, Y: 0, Zoom: 1}}

	q.Push(a)
	q.Push(b)
	q.Push(c)

	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	for _, want := range []*tile.Decoded{a, b, c} {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() ok = false, want true")
		}
		if got != want {
			t.Fatalf("TryPop() = %+v, want %+v (FIFO order)", got.Coord, want.Coord)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Fatalf("TryPop() on empty queue ok = true, want false")
	}
}

func TestBufferPool_GetPutReusesFixedSizeBuffer(t *testing.T) {
	bp := NewBufferPool(256)

	buf1 := bp.Get()
	if len(buf1) != 256*256*4 {
		t.Fatalf("Get() len = %d, want %d", len(buf1), 256*256*4)
	}
	bp.Put(buf1)

	buf2 := bp.Get()
	if len(buf2) != 256*256*4 {
		t.Fatalf("Get() len = %d, want %d", len(buf2), 256*256*4)
	}
}

func TestBufferPool_ReleaseReturnsBufferToPool(t *testing.T) {
	bp := NewBufferPool(256)
	dt := &tile.Decoded{
		Coord:  tile.Coordinate{X: 0, Y: 0, Zoom: 0},
		Pixels: bp.Get(),
		Width:  256,
		Height: 256,
	}
	bp.Release(dt)
	if dt.Pixels != nil {
		t.Errorf("Release should clear the DecodedTile's Pixels reference")
	}
}
