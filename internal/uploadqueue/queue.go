package uploadqueue

import (
	"sync"

	"github.com/gogpu/tilestream/internal/tile"
)

// Queue is an unbounded FIFO of decoded tiles. Multiple workers push
// concurrently; TryPop is safe to call from multiple consumers (the
// render thread, and potentially a relocation helper), though in
// practice a single consumer drains it once per frame.
//
// FIFO order is a contract, not an optimization: tiles become visible to
// the coordinator in the order workers pushed them, so a newer
// high-priority request can
// only supersede an older low-priority one by reaching a worker first,
// never by the queue reordering entries.
type Queue struct {
	mu    sync.Mutex
	items []*tile.Decoded
}

// New creates an empty upload queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues a decoded tile. The pushing worker gives up ownership of
// dt's pixel buffer at this point.
func (q *Queue) Push(dt *tile.Decoded) {
	q.mu.Lock()
	q.items = append(q.items, dt)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest entry, or reports absence
// without blocking.
func (q *Queue) TryPop() (*tile.Decoded, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	dt := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return dt, true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
