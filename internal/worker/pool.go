// Package worker implements the tile worker pool (C4): N stateless
// goroutines draining a single shared max-priority queue, with a dedup
// set that makes submitting an already in-flight coordinate a no-op.
//
// This generalizes away from a work-stealing, per-worker-queue design:
// work-stealing balances load but has no notion of global ordering, and
// the contract here requires strict priority — the single highest
// priority request in the system must be the next one served, not just
// the next one in whichever queue a worker happens to drain from.
package worker

import (
	"container/heap"
	"context"
	"runtime"
	"sync"

	"github.com/gogpu/tilestream/internal/tile"
)

// Request is one unit of work: decode coord's tile bytes into pixels,
// optionally calling OnComplete when done. Lower Priority ranks higher
// (a min-heap on priority, so priority 0 is served before priority 5);
// ties are broken FIFO via a monotonic sequence number.
type Request struct {
	Coord      tile.Coordinate
	Priority   int
	OnComplete func(tile.Coordinate)

	seq int64
}

// Decoder fetches and decodes one tile. Implementations are expected to
// consult a byte cache, fall back to a Source, then decode to RGBA8.
type Decoder interface {
	Decode(ctx context.Context, req Request) (*tile.Decoded, error)
}

// Sink receives a successfully decoded tile, handing it to the upload
// queue (C3).
type Sink interface {
	Push(*tile.Decoded)
}

// Pool is the C4 worker pool: a shared priority queue, a dedup set, N
// worker goroutines, and a condition variable used to wake a worker
// when work is submitted or the pool is closing.
type Pool struct {
	decoder Decoder
	sink    Sink
	logger  interface {
		Warn(msg string, args ...any)
	}

	mu     sync.Mutex
	cond   *sync.Cond
	pq     requestHeap
	inFlight map[tile.Coordinate]struct{}
	nextSeq  int64
	closed   bool

	wg sync.WaitGroup
}

// New starts a pool of n worker goroutines (GOMAXPROCS if n <= 0)
// pulling from a shared priority queue, decoding via decoder and pushing
// results to sink.
func New(n int, decoder Decoder, sink Sink) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		decoder:  decoder,
		sink:     sink,
		logger:   tile.Logger(),
		inFlight: make(map[tile.Coordinate]struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

// Submit enqueues a request for coord at the given priority. If coord is
// already in flight, Submit is a no-op (I4: at most one in-flight
// request per coordinate).
func (p *Pool) Submit(coord tile.Coordinate, priority int, onComplete func(tile.Coordinate)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if _, ok := p.inFlight[coord]; ok {
		return
	}

	p.inFlight[coord] = struct{}{}
	p.nextSeq++
	heap.Push(&p.pq, &Request{
		Coord:      coord,
		Priority:   priority,
		OnComplete: onComplete,
		seq:        p.nextSeq,
	})
	p.cond.Signal()
}

// InFlight reports whether coord currently has a request admitted
// (queued or being worked).
func (p *Pool) InFlight(coord tile.Coordinate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[coord]
	return ok
}

// PendingCount returns the number of coordinates currently admitted
// (queued or in progress).
func (p *Pool) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

func (p *Pool) loop() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.pq.Len() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.pq.Len() == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		req := heap.Pop(&p.pq).(*Request)
		p.mu.Unlock()

		p.step(*req)

		p.mu.Lock()
		delete(p.inFlight, req.Coord)
		p.mu.Unlock()
	}
}

func (p *Pool) step(req Request) {
	dt, err := p.decoder.Decode(context.Background(), req)
	if err != nil {
		tile.Logger().Warn("worker: step failed", "zoom", req.Coord.Zoom, "x", req.Coord.X, "y", req.Coord.Y, "error", err)
		return
	}
	p.sink.Push(dt)
	if req.OnComplete != nil {
		req.OnComplete(req.Coord)
	}
}

// Close stops new submissions and signals the workers, which keep
// processing queued requests until the queue is empty and then exit;
// Close waits for them to exit. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// requestHeap is a container/heap max-priority queue: lower Priority
// value sorts first; equal priority falls back to insertion order (seq).
type requestHeap []*Request

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *requestHeap) Push(x any)   { *h = append(*h, x.(*Request)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
