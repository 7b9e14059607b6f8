package bytecache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/tilestream/internal/tile"
)

// diskEntry records where a spilled tile's encoded bytes live in the
// spill file.
type diskEntry struct {
	offset int64
	length int32
}

type ioRequest struct {
	coord tile.Coordinate
	data  []byte
}

// DiskStore is the disk tier of the byte cache: encoded tiles evicted
// from the memory tier are written by a dedicated I/O goroutine to a
// single append-only spill file, indexed in memory by coordinate.
//
// Backpressure on writes uses a weighted semaphore rather than a
// sync.Cond so that a caller with a context deadline can abandon a
// blocked write through PutContext instead of waiting forever. The
// memory tier's eviction spill goes through Put, which waits without a
// deadline.
type DiskStore struct {
	dir  string
	file *os.File

	mu    sync.RWMutex
	index map[tile.Coordinate]diskEntry
	// writeOff is only ever advanced by ioLoop.
	writeOff int64

	ioCh chan ioRequest
	wg   sync.WaitGroup

	sem *semaphore.Weighted

	closeOnce sync.Once
	logger    *slog.Logger
}

// NewDiskStore creates a disk tier rooted at dir (the OS temp dir if
// empty), allowing up to maxInFlight concurrent pending writes before
// Put blocks.
func NewDiskStore(dir string, maxInFlight int64) (*DiskStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "tilestream-bytecache-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("bytecache: create spill file: %w", err)
	}

	d := &DiskStore{
		dir:    dir,
		file:   f,
		index:  make(map[tile.Coordinate]diskEntry),
		ioCh:   make(chan ioRequest, 256),
		sem:    semaphore.NewWeighted(maxInFlight),
		logger: tile.Logger(),
	}
	d.wg.Add(1)
	go d.ioLoop()
	return d, nil
}

// Put spills data for coord to disk. It blocks, with no deadline, until
// a slot in the in-flight write budget frees up.
func (d *DiskStore) Put(coord tile.Coordinate, data []byte) {
	if err := d.sem.Acquire(context.Background(), 1); err != nil {
		return
	}
	d.ioCh <- ioRequest{coord: coord, data: data}
}

// PutContext is the context-aware variant of Put: it returns ctx's error
// instead of spilling if ctx ends while waiting for a write slot.
func (d *DiskStore) PutContext(ctx context.Context, coord tile.Coordinate, data []byte) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	d.ioCh <- ioRequest{coord: coord, data: data}
	return nil
}

func (d *DiskStore) ioLoop() {
	defer d.wg.Done()
	for req := range d.ioCh {
		n, err := d.file.Write(req.data)
		if err != nil {
			tile.Logger().Warn("bytecache: disk spill write failed", "error", err)
			d.sem.Release(1)
			continue
		}

		d.mu.Lock()
		d.index[req.coord] = diskEntry{offset: d.writeOff, length: int32(n)}
		d.writeOff += int64(n)
		d.mu.Unlock()

		d.sem.Release(1)
	}
}

// Get reads back the encoded bytes for coord, or reports absence.
// Corruption (a short read, or a read past the file's current length)
// is treated as absence rather than an error.
func (d *DiskStore) Get(coord tile.Coordinate) ([]byte, bool) {
	d.mu.RLock()
	entry, ok := d.index[coord]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}

	buf := make([]byte, entry.length)
	n, err := d.file.ReadAt(buf, entry.offset)
	if err != nil || n != int(entry.length) {
		return nil, false
	}
	return buf, true
}

// Contains reports whether coord has a disk index entry.
func (d *DiskStore) Contains(coord tile.Coordinate) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[coord]
	return ok
}

// Remove drops coord's index entry. The bytes remain in the spill file
// until the store is closed; space reclamation is out of scope.
func (d *DiskStore) Remove(coord tile.Coordinate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.index, coord)
}

// Clear drops every index entry.
func (d *DiskStore) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = make(map[tile.Coordinate]diskEntry)
}

// Len returns the number of tiles currently indexed on disk.
func (d *DiskStore) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

// Close drains pending writes and removes the spill file.
func (d *DiskStore) Close() {
	d.closeOnce.Do(func() {
		close(d.ioCh)
		d.wg.Wait()
		name := d.file.Name()
		d.file.Close()
		os.Remove(name)
	})
}
