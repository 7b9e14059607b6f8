// Package bytecache implements the tile-byte cache (C2): a two-tier
// (memory + disk) associative store keyed by tile coordinate, with a
// configurable eviction policy.
package bytecache

import (
	"container/heap"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/tilestream/internal/tile"
)

// EvictionPolicy selects which tile the memory tier discards first when
// it is over capacity.
type EvictionPolicy int

const (
	// LRU evicts the least-recently-used tile. Backed directly by
	// github.com/hashicorp/golang-lru/v2.
	LRU EvictionPolicy = iota
	// LFU evicts the least-frequently-used tile.
	LFU
	// SizeBiggestFirst evicts the largest encoded tile first, trading
	// tile count for byte budget.
	SizeBiggestFirst
	// TimeOldestFirst evicts the tile with the oldest insertion time,
	// independent of access pattern.
	TimeOldestFirst
)

// Stats reports cache health counters. Corruption and disk I/O failures
// never fail a Get; they increment Corruptions and the entry is treated
// as absent.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Corruptions uint64
	Evictions   uint64
}

// Cache is the tile-byte store: a memory tier governed by an
// EvictionPolicy, optionally backed by a disk spill tier. Safe for
// concurrent use. A single mutex guards the memory tier: Get takes it
// exclusively (a read updates recency/frequency), so Get and writes
// serialize against each other; Contains, TilesAtZoom, TilesInBounds and
// Stats share it as readers.
type Cache struct {
	policy EvictionPolicy

	mu      sync.RWMutex
	lruTier *lru.Cache[tile.Coordinate, tile.Bytes]
	genTier *priorityTier // used for LFU / SizeBiggestFirst / TimeOldestFirst

	disk *DiskStore // nil if no disk tier configured

	stats Stats
}

// New creates a memory-tier cache with the given policy and capacity
// (entry count). Pass a non-nil disk to add a disk spill tier that
// absorbs evictions from the memory tier.
func New(policy EvictionPolicy, capacity int, disk *DiskStore) (*Cache, error) {
	c := &Cache{policy: policy, disk: disk}

	if policy == LRU {
		l, err := lru.NewWithEvict[tile.Coordinate, tile.Bytes](capacity,
			func(coord tile.Coordinate, tb tile.Bytes) {
				c.spillToDisk(coord, tb)
				c.stats.Evictions++
			})
		if err != nil {
			return nil, err
		}
		c.lruTier = l
		return c, nil
	}

	c.genTier = newPriorityTier(policy, capacity)
	return c, nil
}

// Put inserts or overwrites a tile's encoded bytes.
func (c *Cache) Put(tb tile.Bytes) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lruTier != nil {
		c.lruTier.Add(tb.Coord, tb)
		return
	}

	if victim, ok := c.genTier.put(tb); ok {
		c.spillToDisk(victim.Coord, victim)
		c.stats.Evictions++
	}
}

func (c *Cache) spillToDisk(coord tile.Coordinate, tb tile.Bytes) {
	if c.disk == nil {
		return
	}
	c.disk.Put(coord, tb.Data)
}

// Get returns the tile bytes for coord, consulting the memory tier then
// falling back to disk. The second return value reports presence.
func (c *Cache) Get(coord tile.Coordinate) (tile.Bytes, bool) {
	c.mu.Lock()
	tb, ok := c.getMemLocked(coord)
	c.mu.Unlock()
	if ok {
		c.bumpHit()
		return tb, true
	}

	if c.disk != nil {
		if data, ok := c.disk.Get(coord); ok {
			tb := tile.Bytes{Coord: coord, Data: data}
			c.mu.Lock()
			c.putMemLocked(tb)
			c.mu.Unlock()
			c.bumpHit()
			return tb, true
		}
		if c.disk.Contains(coord) {
			tile.Logger().Warn("bytecache: disk tier read failed, treating as a miss",
				"zoom", coord.Zoom, "x", coord.X, "y", coord.Y)
			c.mu.Lock()
			c.stats.Corruptions++
			c.mu.Unlock()
		}
	}

	c.bumpMiss()
	return tile.Bytes{}, false
}

func (c *Cache) getMemLocked(coord tile.Coordinate) (tile.Bytes, bool) {
	if c.lruTier != nil {
		return c.lruTier.Get(coord)
	}
	return c.genTier.get(coord)
}

func (c *Cache) putMemLocked(tb tile.Bytes) {
	if c.lruTier != nil {
		c.lruTier.Add(tb.Coord, tb)
		return
	}
	c.genTier.put(tb)
}

func (c *Cache) bumpHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
}

func (c *Cache) bumpMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}

// Contains reports whether coord is present in either tier, without
// affecting recency/frequency ordering.
func (c *Cache) Contains(coord tile.Coordinate) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lruTier != nil {
		if c.lruTier.Contains(coord) {
			return true
		}
	} else if c.genTier.contains(coord) {
		return true
	}
	return c.disk != nil && c.disk.Contains(coord)
}

// Remove deletes coord from both tiers.
func (c *Cache) Remove(coord tile.Coordinate) {
	c.mu.Lock()
	if c.lruTier != nil {
		c.lruTier.Remove(coord)
	} else {
		c.genTier.remove(coord)
	}
	c.mu.Unlock()
	if c.disk != nil {
		c.disk.Remove(coord)
	}
}

// Clear empties both tiers.
func (c *Cache) Clear() {
	c.mu.Lock()
	if c.lruTier != nil {
		c.lruTier.Purge()
	} else {
		c.genTier.clear()
	}
	c.mu.Unlock()
	if c.disk != nil {
		c.disk.Clear()
	}
}

// UpdateMetadata rewrites the ETag/Expires fields of a memory-resident
// entry without touching its Data. Under LFU, SizeBiggestFirst and
// TimeOldestFirst the entry's eviction standing is unchanged; under LRU
// the rewrite also marks the entry most recently used.
func (c *Cache) UpdateMetadata(coord tile.Coordinate, etag string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lruTier != nil {
		if tb, ok := c.lruTier.Peek(coord); ok {
			tb.ETag = etag
			tb.Expires = expires
			c.lruTier.Add(coord, tb)
		}
		return
	}
	c.genTier.updateMetadata(coord, etag, expires)
}

// TilesAtZoom returns every resident coordinate at the given zoom level.
func (c *Cache) TilesAtZoom(zoom uint8) []tile.Coordinate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []tile.Coordinate
	for _, coord := range c.allKeysLocked() {
		if coord.Zoom == zoom {
			out = append(out, coord)
		}
	}
	return out
}

// TilesInBounds returns every resident coordinate at zoom whose (x, y)
// falls within [minX, maxX] x [minY, maxY] inclusive.
func (c *Cache) TilesInBounds(zoom uint8, minX, minY, maxX, maxY int32) []tile.Coordinate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []tile.Coordinate
	for _, coord := range c.allKeysLocked() {
		if coord.Zoom != zoom {
			continue
		}
		if coord.X >= minX && coord.X <= maxX && coord.Y >= minY && coord.Y <= maxY {
			out = append(out, coord)
		}
	}
	return out
}

func (c *Cache) allKeysLocked() []tile.Coordinate {
	if c.lruTier != nil {
		return c.lruTier.Keys()
	}
	return c.genTier.keys()
}

// Cleanup removes memory-tier entries inserted more than maxAge ago and
// reports how many were removed. Only the LFU, SizeBiggestFirst and
// TimeOldestFirst tiers record insertion times: under LRU Cleanup removes
// nothing and returns 0, and the disk tier is never touched.
func (c *Cache) Cleanup(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	if c.genTier != nil {
		evicted += c.genTier.evictOlderThan(now, maxAge)
	}
	return evicted
}

// Stats returns a snapshot of the cache's hit/miss/corruption/eviction
// counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Close releases the disk tier, if one is configured. Safe to call on a
// cache with no disk tier (a no-op).
func (c *Cache) Close() {
	if c.disk != nil {
		c.disk.Close()
	}
}

// priorityTier implements LFU, SizeBiggestFirst, and TimeOldestFirst
// eviction with a container/heap ordered by the policy's comparison, kept
// alongside a map for O(1) lookup. No example repo in the corpus carries
// an LFU library, so these three policies are the standard-library
// exception recorded in DESIGN.md; LRU itself always goes through
// golang-lru above.
type priorityTier struct {
	policy   EvictionPolicy
	capacity int
	index    map[tile.Coordinate]*tierEntry
	pq       *entryHeap
}

type tierEntry struct {
	tb        tile.Bytes
	freq      uint64
	insertedAt time.Time
	heapIdx   int
}

func newPriorityTier(policy EvictionPolicy, capacity int) *priorityTier {
	return &priorityTier{
		policy:   policy,
		capacity: capacity,
		index:    make(map[tile.Coordinate]*tierEntry),
		pq:       &entryHeap{policy: policy},
	}
}

// put inserts tb, evicting one victim if the tier is now over capacity.
// Returns the evicted tile and true if an eviction occurred.
func (t *priorityTier) put(tb tile.Bytes) (tile.Bytes, bool) {
	if e, ok := t.index[tb.Coord]; ok {
		e.tb = tb
		e.freq++
		heap.Fix(t.pq, e.heapIdx)
		return tile.Bytes{}, false
	}

	e := &tierEntry{tb: tb, freq: 1, insertedAt: time.Now()}
	t.index[tb.Coord] = e
	heap.Push(t.pq, e)

	if t.capacity <= 0 || len(t.index) <= t.capacity {
		return tile.Bytes{}, false
	}

	victim := heap.Pop(t.pq).(*tierEntry)
	delete(t.index, victim.tb.Coord)
	return victim.tb, true
}

func (t *priorityTier) get(coord tile.Coordinate) (tile.Bytes, bool) {
	e, ok := t.index[coord]
	if !ok {
		return tile.Bytes{}, false
	}
	e.freq++
	heap.Fix(t.pq, e.heapIdx)
	return e.tb, true
}

func (t *priorityTier) contains(coord tile.Coordinate) bool {
	_, ok := t.index[coord]
	return ok
}

func (t *priorityTier) remove(coord tile.Coordinate) {
	e, ok := t.index[coord]
	if !ok {
		return
	}
	heap.Remove(t.pq, e.heapIdx)
	delete(t.index, coord)
}

func (t *priorityTier) clear() {
	t.index = make(map[tile.Coordinate]*tierEntry)
	t.pq = &entryHeap{policy: t.policy}
}

func (t *priorityTier) keys() []tile.Coordinate {
	out := make([]tile.Coordinate, 0, len(t.index))
	for k := range t.index {
		out = append(out, k)
	}
	return out
}

func (t *priorityTier) updateMetadata(coord tile.Coordinate, etag string, expires time.Time) {
	if e, ok := t.index[coord]; ok {
		e.tb.ETag = etag
		e.tb.Expires = expires
	}
}

func (t *priorityTier) evictOlderThan(now time.Time, maxAge time.Duration) int {
	evicted := 0
	for coord, e := range t.index {
		if now.Sub(e.insertedAt) > maxAge {
			heap.Remove(t.pq, e.heapIdx)
			delete(t.index, coord)
			evicted++
		}
	}
	return evicted
}

// entryHeap implements container/heap.Interface over *tierEntry. The
// ordering depends on policy: the entry that should be evicted next
// always sorts to index 0 (LFU: least frequent; SizeBiggestFirst:
// largest payload; TimeOldestFirst: oldest insertion).
type entryHeap struct {
	policy  EvictionPolicy
	entries []*tierEntry
}

func (h *entryHeap) Len() int { return len(h.entries) }
func (h *entryHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	switch h.policy {
	case LFU:
		return a.freq < b.freq
	case SizeBiggestFirst:
		return a.tb.Size() > b.tb.Size()
	case TimeOldestFirst:
		return a.insertedAt.Before(b.insertedAt)
	default:
		return false
	}
}
func (h *entryHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].heapIdx = i
	h.entries[j].heapIdx = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*tierEntry)
	e.heapIdx = len(h.entries)
	h.entries = append(h.entries, e)
}
func (h *entryHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries[n-1] = nil
	h.entries = h.entries[:n-1]
	return e
}
