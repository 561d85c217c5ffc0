package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedClient is a Client for tests: each call consumes the next
// scripted response. Stream delivers the response in small chunks through
// the callback, mimicking token-by-token delivery.
type ScriptedClient struct {
	mu        sync.Mutex
	Responses []string
	// ChunkSize controls how Stream slices responses; 0 means 4 runes.
	ChunkSize int
	// Err, when set, is returned by every call instead of a response.
	Err error
	// Calls records the request messages of each invocation.
	Calls [][]Message
}

// NewScriptedClient builds a ScriptedClient from the given responses.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{Responses: responses}
}

func (c *ScriptedClient) next(messages []Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, messages)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return "", fmt.Errorf("scripted client exhausted after %d calls", len(c.Calls))
	}
	resp := c.Responses[0]
	c.Responses = c.Responses[1:]
	return resp, nil
}

// Stream implements Client.
func (c *ScriptedClient) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	resp, err := c.next(messages)
	if err != nil {
		return "", err
	}
	size := c.ChunkSize
	if size <= 0 {
		size = 4
	}
	runes := []rune(resp)
	for start := 0; start < len(runes); start += size {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if onDelta != nil {
			onDelta(string(runes[start:end]))
		}
	}
	return resp, nil
}

// Complete implements Client.
func (c *ScriptedClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.next(messages)
}
