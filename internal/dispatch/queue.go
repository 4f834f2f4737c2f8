package dispatch

import (
	"context"
	"sync"

	"github.com/shaharia-lab/mc-webhooks/internal/metrics"
)

const (
	defaultWorkers    = 4
	defaultBufferSize = 100
)

// EventHandler is implemented by both Handler and Queue.
type EventHandler interface {
	HandleEvent(ctx context.Context, tag string, payload map[string]any)
}

type job struct {
	ctx     context.Context
	tag     string
	payload map[string]any
}

// Queue hands events to a pool of workers so the caller can acknowledge the
// webhook without waiting for notifications and publishes to complete.
// When the buffer is full, or after Close, events are dispatched on the
// caller's goroutine instead.
type Queue struct {
	next EventHandler
	ch   chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines feeding next. Values <= 0 select the
// defaults (4 workers, 100 buffered events).
func NewQueue(next EventHandler, workers, bufferSize int) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	q := &Queue{
		next: next,
		ch:   make(chan job, bufferSize),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for j := range q.ch {
				metrics.DispatchQueueDepth.Set(float64(len(q.ch)))
				q.next.HandleEvent(j.ctx, j.tag, j.payload)
			}
		}()
	}
	return q
}

// HandleEvent enqueues the event and returns immediately. The context is
// detached from its cancellation so the work outlives the HTTP request.
func (q *Queue) HandleEvent(ctx context.Context, tag string, payload map[string]any) {
	ctx = context.WithoutCancel(ctx)

	q.mu.RLock()
	if !q.closed {
		select {
		case q.ch <- job{ctx: ctx, tag: tag, payload: payload}:
			metrics.DispatchQueueDepth.Set(float64(len(q.ch)))
			q.mu.RUnlock()
			return
		default:
		}
	}
	q.mu.RUnlock()

	metrics.DispatchQueueOverflow.Inc()
	q.next.HandleEvent(ctx, tag, payload)
}

// Close stops accepting events and waits for queued events to be dispatched.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()
	metrics.DispatchQueueDepth.Set(0)
}
