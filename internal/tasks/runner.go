// Package tasks schedules queue drains in the background: in process, over
// NATS JetStream, or periodically from cron.
package tasks

import (
	"context"
	"log"
	"sync"
	"time"
)

// Drainer makes one delivery pass over the queue.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// Dispatcher requests a drain without waiting for it.
type Dispatcher interface {
	Trigger(ctx context.Context, reason string) error
}

// Runner drains in a single background goroutine. Triggers that arrive while
// a drain is running collapse into one follow-up drain.
type Runner struct {
	drainer Drainer
	timeout time.Duration
	pending chan string

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner creates a Runner. timeout bounds each drain; zero means none.
func NewRunner(drainer Drainer, timeout time.Duration) *Runner {
	return &Runner{
		drainer: drainer,
		timeout: timeout,
		pending: make(chan string, 1),
	}
}

// Start launches the drain loop. It stops when ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case reason := <-r.pending:
				r.drain(ctx, reason)
			}
		}
	}()
	log.Println("Local drain runner started.")
}

// Stop cancels the loop and waits for an in-flight drain to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	log.Println("Local drain runner stopped.")
}

// Trigger schedules a drain. It never blocks.
func (r *Runner) Trigger(_ context.Context, reason string) error {
	select {
	case r.pending <- reason:
	default:
		// A drain is already pending and will see this work too.
	}
	return nil
}

func (r *Runner) drain(ctx context.Context, reason string) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	n, err := r.drainer.Drain(ctx)
	if err != nil {
		log.Printf("Drain (%s) failed: %v", reason, err)
		return
	}
	log.Printf("Drain (%s) finished: %d items processed", reason, n)
}
