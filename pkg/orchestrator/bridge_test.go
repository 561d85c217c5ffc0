package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkBridgePreservesOrder(t *testing.T) {
	var published []any
	b := newChunkBridge(func(payload any) error {
		published = append(published, payload)
		return nil
	})

	const n = 500 // more than the buffer, exercising backpressure
	for i := 0; i < n; i++ {
		b.enqueue(i)
	}
	b.close()

	assert.Len(t, published, n)
	for i, p := range published {
		assert.Equal(t, i, p)
	}
}

func TestChunkBridgeCloseDrains(t *testing.T) {
	var count int
	b := newChunkBridge(func(any) error {
		count++
		return nil
	})
	for i := 0; i < 10; i++ {
		b.enqueue(i)
	}
	b.close()
	// close returns only after every queued payload was published.
	assert.Equal(t, 10, count)
}

func TestChunkBridgeToleratesPublishErrors(t *testing.T) {
	var attempts int
	b := newChunkBridge(func(any) error {
		attempts++
		return fmt.Errorf("channel gone")
	})
	b.enqueue("a")
	b.enqueue("b")
	b.close()
	assert.Equal(t, 2, attempts)
}
