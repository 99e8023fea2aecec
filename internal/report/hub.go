package report

import (
	"context"
	"sync"
	"time"
)

// Hub stores recent results and wakes waiters when new ones arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Result
	nextSeq  uint64
}

// NewHub constructs a bounded in-memory result buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends a result, assigning it the next sequence number.
func (h *Hub) Publish(res Result) Result {
	if h == nil {
		return res
	}
	h.mu.Lock()
	h.nextSeq++
	res.Sequence = h.nextSeq
	if res.At.IsZero() {
		res.At = time.Now()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, res)
	h.cond.Broadcast()
	h.mu.Unlock()
	return res
}

// Fetch returns results with a sequence greater than since. When wait is
// true it blocks until at least one result is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Result, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	stop := make(chan struct{})
	defer close(stop)
	if wait {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-stop:
			}
		}()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		out := h.snapshotLocked(since, limit)
		if len(out) > 0 {
			return out, out[len(out)-1].Sequence, nil
		}
		if !wait {
			return nil, h.nextSeq, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, h.nextSeq, err
		}
		h.cond.Wait()
	}
}

// Tail returns the most recent limit results without blocking.
func (h *Hub) Tail(limit int) []Result {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.buffer) {
		limit = len(h.buffer)
	}
	out := make([]Result, limit)
	copy(out, h.buffer[len(h.buffer)-limit:])
	return out
}

// Sequence returns the last assigned sequence number.
func (h *Hub) Sequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) []Result {
	start := len(h.buffer)
	for i, res := range h.buffer {
		if res.Sequence > since {
			start = i
			break
		}
	}
	end := start + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	if start >= end {
		return nil
	}
	out := make([]Result, end-start)
	copy(out, h.buffer[start:end])
	return out
}
