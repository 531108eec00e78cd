package ratelimit

import (
	"context"
	"sync"
)

// Counter counts hits on key within a one-second window.
type Counter interface {
	Incr(ctx context.Context, key string, window int64) (int64, error)
}

// staleSweepSize is the key count above which past windows are dropped.
const staleSweepSize = 4096

type windowCount struct {
	window int64
	hits   int64
}

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]windowCount
}

// NewMemoryCounter constructs an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]windowCount)}
}

// Incr records one hit and returns the hits on key in window.
func (m *MemoryCounter) Incr(_ context.Context, key string, window int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.counts) > staleSweepSize {
		for k, c := range m.counts {
			if c.window < window {
				delete(m.counts, k)
			}
		}
	}
	c := m.counts[key]
	if c.window != window {
		c = windowCount{window: window}
	}
	c.hits++
	m.counts[key] = c
	return c.hits, nil
}
