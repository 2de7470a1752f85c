package noncestore

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultCapacity is used when MemoryConfig.Capacity is not positive.
const defaultCapacity = 100000

// MemoryConfig configures a Memory store.
type MemoryConfig struct {
	// Capacity caps the number of recorded nonces. When the store is
	// full, the entry with the oldest acceptance time is evicted to
	// admit a new one. Defaults to 100000.
	Capacity int

	// Logger receives eviction events at debug level. Defaults to a
	// no-op logger.
	Logger zerolog.Logger

	// Now overrides the clock used by Stats. Defaults to time.Now.
	Now func() time.Time
}

// Memory is an in-process Store. One Memory value is created at process
// start and lives for the process lifetime; it needs no teardown. A
// single mutex guards the map and heap together, making the
// check-then-insert sequence indivisible.
type Memory struct {
	cfg MemoryConfig

	mu      sync.Mutex
	entries map[string]*memoryEntry
	order   entryHeap
}

type memoryEntry struct {
	nonce      string
	acceptedAt time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Memory{
		cfg:     cfg,
		entries: make(map[string]*memoryEntry),
	}
}

// CheckAndStore implements Store. The check-then-insert sequence runs
// under one lock acquisition, so concurrent calls with the identical
// nonce see exactly one success.
func (m *Memory) CheckAndStore(_ context.Context, nonce string, acceptedAt time.Time) error {
	if err := checkNonce(nonce); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.entries[nonce]; seen {
		return ErrAlreadySeen
	}

	for len(m.entries) >= m.cfg.Capacity {
		evicted := heap.Pop(&m.order).(*memoryEntry)
		delete(m.entries, evicted.nonce)

		m.cfg.Logger.Debug().
			Time("accepted_at", evicted.acceptedAt).
			Int("capacity", m.cfg.Capacity).
			Msg("evicted oldest nonce at capacity")
	}

	e := &memoryEntry{nonce: nonce, acceptedAt: acceptedAt}
	m.entries[nonce] = e
	heap.Push(&m.order, e)

	return nil
}

// Stats implements Store. The snapshot is taken under the same lock as
// writes but copies only three fields, so readers never stall writers
// longer than that.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		TotalNonces: len(m.entries),
		MaxCapacity: m.cfg.Capacity,
	}

	if m.order.Len() > 0 {
		age := m.cfg.Now().Sub(m.order[0].acceptedAt)
		stats.OldestAge = &age
	}

	return stats, nil
}

// entryHeap is a min-heap on acceptedAt, giving O(log n) access to the
// eviction victim.
type entryHeap []*memoryEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return h[i].acceptedAt.Before(h[j].acceptedAt) }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*memoryEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return e
}
