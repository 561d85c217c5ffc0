// Package llm wraps the OpenAI-compatible chat completion API behind a
// small streaming interface. Tokens are delivered through a synchronous
// per-delta callback in production order; callers that need async delivery
// bridge the callback themselves.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tickertalk/tickertalk/pkg/config"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Client is the LLM contract used by every component that talks to the
// model: classifier, summarizer, sentiment scorer, recommender, narrators.
type Client interface {
	// Stream runs a streaming completion, invoking onDelta for each token
	// in production order, and returns the full accumulated text.
	// onDelta may be nil for buffered use.
	Stream(ctx context.Context, messages []Message, onDelta func(delta string)) (string, error)

	// Complete runs a non-streaming completion and returns the full text.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewOpenAIClient builds a client from configuration. A custom BaseURL
// points it at compatible third-party providers.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
	}
}

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return buf.String(), fmt.Errorf("completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		buf.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return buf.String(), nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
