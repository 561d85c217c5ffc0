package orchestrator

import (
	"context"
	"sync"
	"time"
)

// registry tracks the one running task per message and supports graceful
// drain on shutdown.
type registry struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func newRegistry() *registry {
	return &registry{running: make(map[string]context.CancelFunc)}
}

// acquire registers a task for the message and returns its context. The
// second return is false when a task already owns the message; callers
// re-attach instead of starting a duplicate.
func (r *registry) acquire(messageID string) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.running[messageID]; exists {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running[messageID] = cancel
	r.wg.Add(1)
	return ctx, true
}

// release removes a finished task.
func (r *registry) release(messageID string) {
	r.mu.Lock()
	if cancel, ok := r.running[messageID]; ok {
		cancel()
		delete(r.running, messageID)
	}
	r.mu.Unlock()
	r.wg.Done()
}

// cancel aborts the task owning the message, if any.
func (r *registry) cancel(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.running[messageID]; ok {
		cancel()
	}
}

// active reports whether a task owns the message.
func (r *registry) active(messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[messageID]
	return ok
}

// drain waits for every task to finish, up to the timeout. Remaining tasks
// are cancelled.
func (r *registry) drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		r.mu.Lock()
		for _, cancel := range r.running {
			cancel()
		}
		r.mu.Unlock()
		<-done
		return false
	}
}
