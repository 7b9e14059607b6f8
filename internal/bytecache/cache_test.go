package bytecache

import (
	"testing"
	"time"

	"github.com/gogpu/tilestream/internal/tile"
)

func coord(x, y int32, z uint8) tile.Coordinate {
	return tile.Coordinate{X: x, Y: y, Zoom: z}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(LRU, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b, cc := coord(0, 0, 1), coord(1, 0, 1), coord(2, 0, 1)
	c.Put(tile.Bytes{Coord: a, Data: []byte{1}})
	c.Put(tile.Bytes{Coord: b, Data: []byte{2}})
	c.Get(a) // touch a, b is now LRU

	c.Put(tile.Bytes{Coord: cc, Data: []byte{3}})

	if c.Contains(b) {
		t.Errorf("b should have been evicted as the LRU entry")
	}
	if !c.Contains(a) {
		t.Errorf("a should remain resident (touched before the eviction)")
	}
	if !c.Contains(cc) {
		t.Errorf("c should be resident after insertion")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestLFU_EvictsLeastFrequentlyUsed(t *testing.T) {
	c, err := New(LFU, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b, cc := coord(0, 0, 1), coord(1, 0, 1), coord(2, 0, 1)
	c.Put(tile.Bytes{Coord: a, Data: []byte{1}})
	c.Put(tile.Bytes{Coord: b, Data: []byte{2}})

	// a gets accessed repeatedly; b never again.
	c.Get(a)
	c.Get(a)
	c.Get(a)

	c.Put(tile.Bytes{Coord: cc, Data: []byte{3}})

	if c.Contains(b) {
		t.Errorf("b should have been evicted as the least-frequently-used entry")
	}
	if !c.Contains(a) {
		t.Errorf("a should remain resident (accessed repeatedly)")
	}
}

func TestSizeBiggestFirst_EvictsLargestEntry(t *testing.T) {
	c, err := New(SizeBiggestFirst, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	small, big := coord(0, 0, 1), coord(1, 0, 1)
	c.Put(tile.Bytes{Coord: small, Data: make([]byte, 16)})
	c.Put(tile.Bytes{Coord: big, Data: make([]byte, 4096)})

	c.Put(tile.Bytes{Coord: coord(2, 0, 1), Data: make([]byte, 32)})

	if c.Contains(big) {
		t.Errorf("the biggest entry should have been evicted first")
	}
	if !c.Contains(small) {
		t.Errorf("the small entry should remain resident")
	}
}

func TestTimeOldestFirst_EvictsOldestInsertion(t *testing.T) {
	c, err := New(TimeOldestFirst, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	oldest, newer := coord(0, 0, 1), coord(1, 0, 1)
	c.Put(tile.Bytes{Coord: oldest, Data: []byte{1}})
	time.Sleep(time.Millisecond)
	c.Put(tile.Bytes{Coord: newer, Data: []byte{2}})

	// Repeatedly reading oldest must not save it: insertion time, not
	// access recency, drives this policy.
	c.Get(oldest)
	c.Get(oldest)

	c.Put(tile.Bytes{Coord: coord(2, 0, 1), Data: []byte{3}})

	if c.Contains(oldest) {
		t.Errorf("the oldest-inserted entry should have been evicted despite repeated reads")
	}
	if !c.Contains(newer) {
		t.Errorf("the newer entry should remain resident")
	}
}

func TestGet_MissIncrementsStats(t *testing.T) {
	c, err := New(LRU, 4, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := c.Get(coord(9, 9, 9)); ok {
		t.Fatalf("expected a miss for an absent coordinate")
	}
	if got := c.Stats().Misses; got != 1 {
		t.Errorf("Misses = %d, want 1", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	c, err := New(LRU, 4, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b := coord(0, 0, 0), coord(1, 0, 0)
	c.Put(tile.Bytes{Coord: a, Data: []byte{1}})
	c.Put(tile.Bytes{Coord: b, Data: []byte{2}})

	c.Remove(a)
	if c.Contains(a) {
		t.Errorf("a should be gone after Remove")
	}
	if !c.Contains(b) {
		t.Errorf("b should be unaffected by removing a")
	}

	c.Clear()
	if c.Contains(b) {
		t.Errorf("b should be gone after Clear")
	}
}

func TestTilesAtZoomAndInBounds(t *testing.T) {
	c, err := New(LFU, 8, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Put(tile.Bytes{Coord: coord(0, 0, 3), Data: []byte{1}})
	c.Put(tile.Bytes{Coord: coord(1, 1, 3), Data: []byte{2}})
	c.Put(tile.Bytes{Coord: coord(5, 5, 3), Data: []byte{3}})
	c.Put(tile.Bytes{Coord: coord(0, 0, 4), Data: []byte{4}})

	atZoom3 := c.TilesAtZoom(3)
	if len(atZoom3) != 3 {
		t.Fatalf("TilesAtZoom(3) = %d tiles, want 3", len(atZoom3))
	}

	inBounds := c.TilesInBounds(3, 0, 0, 1, 1)
	if len(inBounds) != 2 {
		t.Fatalf("TilesInBounds = %d tiles, want 2", len(inBounds))
	}
}

func TestClose_NoDiskTierIsNoop(t *testing.T) {
	c, err := New(LRU, 4, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Close()
	c.Close()
}
