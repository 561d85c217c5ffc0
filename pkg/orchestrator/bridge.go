package orchestrator

import "log/slog"

// bridgeBuffer bounds the callback-to-publish handoff. The producer is an
// external token stream that is already rate-limited, so blocking on a
// full buffer is tolerable backpressure.
const bridgeBuffer = 64

// chunkBridge converts a synchronous streaming callback into ordered
// asynchronous publishes. The callback enqueues; a single consumer
// goroutine dequeues and publishes, so publish order equals production
// order.
type chunkBridge struct {
	ch   chan any
	done chan struct{}
}

// newChunkBridge starts the consumer. publish is called once per enqueued
// payload; publish errors are logged, not propagated, because losing a
// live chunk is recoverable via replay of whatever did land in the log.
func newChunkBridge(publish func(payload any) error) *chunkBridge {
	b := &chunkBridge{
		ch:   make(chan any, bridgeBuffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for payload := range b.ch {
			if err := publish(payload); err != nil {
				slog.Warn("Failed to publish streamed chunk", "error", err)
			}
		}
	}()
	return b
}

// enqueue hands one payload to the consumer, blocking when the buffer is
// full.
func (b *chunkBridge) enqueue(payload any) {
	b.ch <- payload
}

// close stops intake and waits for every queued payload to be published.
func (b *chunkBridge) close() {
	close(b.ch)
	<-b.done
}
