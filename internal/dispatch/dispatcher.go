package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("dispatcher closed")

// Handler processes one item. It runs on a shard goroutine.
type Handler[T any] func(ctx context.Context, item T)

// Options sizes the pool.
type Options struct {
	Workers   int
	QueueSize int
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	InFlight  int64 `json:"in_flight"`
	Queued    int   `json:"queued"`
}

// Dispatcher is a keyed worker pool.
type Dispatcher[T any] struct {
	shards  []chan T
	key     func(T) string
	handle  Handler[T]
	ctx     context.Context
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	submits atomic.Int64
	done    atomic.Int64
	active  atomic.Int64
}

// New starts the shard goroutines. ctx is handed to every handler call; pass
// a context that outlives the watcher when queued work must finish during
// shutdown.
func New[T any](ctx context.Context, opts Options, key func(T) string, handle Handler[T]) *Dispatcher[T] {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	perShard := opts.QueueSize / workers
	if perShard < 1 {
		perShard = 1
	}
	d := &Dispatcher[T]{
		shards: make([]chan T, workers),
		key:    key,
		handle: handle,
		ctx:    ctx,
	}
	for i := range d.shards {
		d.shards[i] = make(chan T, perShard)
		d.wg.Add(1)
		go d.run(d.shards[i])
	}
	return d
}

// Submit queues item on its shard, blocking while the shard is full. It
// returns ctx.Err() if ctx ends first and ErrClosed after Close.
func (d *Dispatcher[T]) Submit(ctx context.Context, item T) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	shard := d.shards[d.shardFor(d.key(item))]
	select {
	case shard <- item:
		d.submits.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake and waits for queued and in-flight items to finish.
// It is safe to call more than once.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, shard := range d.shards {
			close(shard)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Stats returns the current counters.
func (d *Dispatcher[T]) Stats() Stats {
	queued := 0
	for _, shard := range d.shards {
		queued += len(shard)
	}
	return Stats{
		Workers:   len(d.shards),
		Submitted: d.submits.Load(),
		Completed: d.done.Load(),
		InFlight:  d.active.Load(),
		Queued:    queued,
	}
}

func (d *Dispatcher[T]) shardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(d.shards)))
}

func (d *Dispatcher[T]) run(queue <-chan T) {
	defer d.wg.Done()
	for item := range queue {
		d.active.Add(1)
		d.handle(d.ctx, item)
		d.active.Add(-1)
		d.done.Add(1)
	}
}
