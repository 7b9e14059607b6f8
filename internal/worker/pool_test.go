package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/tilestream/internal/tile"
)

func coord(x, y int32, z uint8) tile.Coordinate {
	return tile.Coordinate{X: x, Y: y, Zoom: z}
}

// blockingDecoder holds every Decode call until release is closed, so a
// test can queue several requests behind a single busy worker and then
// observe the order they drain in.
type blockingDecoder struct {
	release chan struct{}
}

func (d *blockingDecoder) Decode(_ context.Context, req Request) (*tile.Decoded, error) {
	<-d.release
	return &tile.Decoded{Coord: req.Coord, Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	order []tile.Coordinate
}

func (s *recordingSink) Push(dt *tile.Decoded) {
	s.mu.Lock()
	s.order = append(s.order, dt.Coord)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []tile.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tile.Coordinate, len(s.order))
	copy(out, s.order)
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// TestPriorityOrder mirrors spec.md §8 scenario 3's ordering half: with a
// single worker occupied, lower-numbered priority requests must drain
// before higher-numbered ones regardless of submission order.
func TestPriorityOrder(t *testing.T) {
	decoder := &blockingDecoder{release: make(chan struct{})}
	sink := &recordingSink{}
	p := New(1, decoder, sink)
	defer p.Close()

	low, mid, high := coord(0, 0, 1), coord(1, 0, 1), coord(2, 0, 1)

	// First request occupies the single worker immediately, blocking on
	// decoder.release; the rest queue up behind it.
	p.Submit(coord(99, 99, 9), 0, nil)
	waitUntil(t, time.Second, func() bool { return p.PendingCount() == 1 })

	p.Submit(mid, 5, nil)
	p.Submit(high, 9, nil)
	p.Submit(low, 1, nil)
	waitUntil(t, time.Second, func() bool { return p.PendingCount() == 4 })

	close(decoder.release)

	waitUntil(t, time.Second, func() bool { return p.PendingCount() == 0 })

	order := sink.snapshot()
	if len(order) != 4 {
		t.Fatalf("processed %d requests, want 4", len(order))
	}
	// order[0] is the pre-queued occupant; order[1:] must be low, mid, high.
	got := order[1:]
	want := []tile.Coordinate{low, mid, high}
	for i, c := range want {
		if got[i] != c {
			t.Errorf("drain order[%d] = %+v, want %+v (full order: %+v)", i, got[i], c, order)
		}
	}
}

// TestSubmit_DedupsInFlightCoordinate mirrors spec.md §8 scenario 3's
// dedup half: submitting the same coordinate twice while it is still in
// flight must result in exactly one decode.
func TestSubmit_DedupsInFlightCoordinate(t *testing.T) {
	decoder := &blockingDecoder{release: make(chan struct{})}
	sink := &recordingSink{}
	p := New(1, decoder, sink)
	defer p.Close()

	c := coord(3, 3, 3)
	p.Submit(c, 0, nil)
	waitUntil(t, time.Second, func() bool { return p.InFlight(c) })

	// Resubmitting while in flight must be a no-op: PendingCount stays 1.
	p.Submit(c, 0, nil)
	p.Submit(c, 0, nil)
	if got := p.PendingCount(); got != 1 {
		t.Fatalf("PendingCount = %d, want 1 (dedup should collapse repeat submits)", got)
	}

	close(decoder.release)
	waitUntil(t, time.Second, func() bool { return p.PendingCount() == 0 })

	if got := len(sink.snapshot()); got != 1 {
		t.Fatalf("decoded %d times, want exactly 1", got)
	}
}

// TestSubmit_AfterCloseIsNoop checks that a closed pool rejects new work
// without blocking the caller.
func TestSubmit_AfterCloseIsNoop(t *testing.T) {
	decoder := &blockingDecoder{release: make(chan struct{})}
	close(decoder.release)
	sink := &recordingSink{}
	p := New(1, decoder, sink)
	p.Close()

	p.Submit(coord(0, 0, 0), 0, nil)
	if got := p.PendingCount(); got != 0 {
		t.Fatalf("PendingCount after Submit on closed pool = %d, want 0", got)
	}
}

// TestClose_IsIdempotent checks that a second Close call doesn't panic
// or block.
func TestClose_IsIdempotent(t *testing.T) {
	decoder := &blockingDecoder{release: make(chan struct{})}
	close(decoder.release)
	sink := &recordingSink{}
	p := New(1, decoder, sink)
	p.Close()
	p.Close()
}
