package texpool

import (
	"testing"

	"github.com/gogpu/tilestream/internal/tile"
)

func coord(x, y int32, z uint8) tile.Coordinate {
	return tile.Coordinate{X: x, Y: y, Zoom: z}
}

func TestAcquire_FreeLayerPath(t *testing.T) {
	p, err := New(Config{MaxLayers: 4, TileSize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c := coord(1, 1, 3)
	layer, evicted, didEvict, err := p.Acquire(c)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if didEvict {
		t.Fatalf("unexpected eviction: %v", evicted)
	}
	if layer >= 4 {
		t.Fatalf("layer %d out of range", layer)
	}

	got, ok := p.LayerIndex(c)
	if !ok || got != int32(layer) {
		t.Fatalf("LayerIndex = (%d, %v), want (%d, true)", got, ok, layer)
	}
}

func TestAcquire_IdempotentForResidentCoord(t *testing.T) {
	p, _ := New(Config{MaxLayers: 4, TileSize: 256})
	c := coord(0, 0, 0)

	layer1, _, _, _ := p.Acquire(c)
	layer2, _, didEvict, _ := p.Acquire(c)

	if layer1 != layer2 {
		t.Errorf("layer changed across repeated Acquire: %d != %d", layer1, layer2)
	}
	if didEvict {
		t.Errorf("re-acquiring a resident coord should never evict")
	}
	if p.Occupied() != 1 {
		t.Errorf("Occupied() = %d, want 1", p.Occupied())
	}
}

func TestAcquire_EvictsLeastRecentlyUsed(t *testing.T) {
	p, _ := New(Config{MaxLayers: 2, TileSize: 256})

	a := coord(0, 0, 1)
	b := coord(1, 0, 1)
	c := coord(0, 1, 1)

	p.Acquire(a)
	p.Acquire(b)
	p.Touch(a) // a is now MRU, b is LRU

	_, evicted, didEvict, err := p.Acquire(c)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !didEvict {
		t.Fatalf("expected an eviction when pool is full")
	}
	if evicted != b {
		t.Errorf("evicted %+v, want %+v (the LRU entry)", evicted, b)
	}
	if _, ok := p.LayerIndex(a); !ok {
		t.Errorf("a should still be resident after evicting b")
	}
	if _, ok := p.LayerIndex(b); ok {
		t.Errorf("b should have been evicted")
	}
}

func TestRelease_FreesLayerForReuse(t *testing.T) {
	p, _ := New(Config{MaxLayers: 1, TileSize: 256})
	a := coord(0, 0, 0)
	b := coord(1, 0, 1)

	p.Acquire(a)
	layer, ok := p.Release(a)
	if !ok || layer != 0 {
		t.Fatalf("Release = (%d, %v), want (0, true)", layer, ok)
	}
	if p.Occupied() != 0 {
		t.Fatalf("Occupied() = %d, want 0 after release", p.Occupied())
	}

	_, _, didEvict, err := p.Acquire(b)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if didEvict {
		t.Errorf("should reuse the freed layer instead of evicting")
	}
}

func TestCapacityInvariant(t *testing.T) {
	const maxLayers = 8
	p, _ := New(Config{MaxLayers: maxLayers, TileSize: 256})

	for i := int32(0); i < maxLayers; i++ {
		p.Acquire(coord(i, 0, 5))
	}
	if got := p.Occupied(); got != maxLayers {
		t.Fatalf("Occupied() = %d, want %d", got, maxLayers)
	}
	if p.Capacity() != maxLayers {
		t.Fatalf("Capacity() = %d, want %d", p.Capacity(), maxLayers)
	}
}

func TestStats_ReflectsOccupancy(t *testing.T) {
	p, _ := New(Config{MaxLayers: 4, TileSize: 256})
	p.Acquire(coord(0, 0, 0))
	p.Acquire(coord(1, 0, 0))

	stats := p.Stats()
	if stats.Occupied != 2 {
		t.Errorf("Stats().Occupied = %d, want 2", stats.Occupied)
	}
	if stats.Free != 2 {
		t.Errorf("Stats().Free = %d, want 2", stats.Free)
	}
	if stats.Capacity != 4 {
		t.Errorf("Stats().Capacity = %d, want 4", stats.Capacity)
	}
}

func TestLRUCandidates_OldestFirst(t *testing.T) {
	p, _ := New(Config{MaxLayers: 3, TileSize: 256})
	a, b, c := coord(0, 0, 0), coord(1, 0, 0), coord(2, 0, 0)
	p.Acquire(a)
	p.Acquire(b)
	p.Acquire(c)

	candidates := p.LRUCandidates(3)
	if len(candidates) != 3 || candidates[0] != a {
		t.Fatalf("LRUCandidates = %+v, want oldest-first starting with %+v", candidates, a)
	}
}
