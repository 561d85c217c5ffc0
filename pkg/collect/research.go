package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// defaultTopK bounds research retrieval when config leaves it zero.
const defaultTopK = 5

// ResearchRetriever is the contract the orchestrator depends on.
type ResearchRetriever interface {
	Query(ctx context.Context, keywords []string) ([]models.ResearchExcerpt, error)
}

// ResearchClient retrieves research-report excerpts from the retrieval
// service. The service is optional infrastructure: availability is probed
// once per process and an unavailable service degrades every query to
// empty results instead of failing analyses.
type ResearchClient struct {
	baseURL string
	topK    int
	client  *http.Client

	probe     sync.Once
	available bool
}

// NewResearchClient creates a ResearchClient from config.
func NewResearchClient(cfg config.ResearchConfig) *ResearchClient {
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ResearchClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		topK:    topK,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type researchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type researchResponse struct {
	Excerpts []models.ResearchExcerpt `json:"excerpts"`
}

// Query retrieves the top excerpts for the joined keywords. An unreachable
// or unconfigured service yields nil, nil.
func (c *ResearchClient) Query(ctx context.Context, keywords []string) ([]models.ResearchExcerpt, error) {
	if c.baseURL == "" || len(keywords) == 0 {
		return nil, nil
	}
	c.probe.Do(func() {
		c.available = c.healthy(ctx)
		if !c.available {
			slog.Warn("Research service unavailable, retrieval disabled for this process")
		}
	})
	if !c.available {
		return nil, nil
	}

	body, err := json.Marshal(researchQuery{Query: strings.Join(keywords, " "), TopK: c.topK})
	if err != nil {
		return nil, fmt.Errorf("failed to build research query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build research request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("research service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research service returned status %d", resp.StatusCode)
	}

	var decoded researchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode research response: %w", err)
	}
	return decoded.Excerpts, nil
}

func (c *ResearchClient) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
