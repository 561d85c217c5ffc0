// Package entity resolves instrument mentions against an external semantic
// index and renders a confidence-scored verdict: a match, suggestions for
// an ambiguous mention, or an unknown/delisted failure.
package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// Confidence thresholds for the top index result.
const (
	acceptThreshold  = 0.85
	suggestThreshold = 0.5
)

// maxSuggestions bounds the candidates offered for an ambiguous mention.
const maxSuggestions = 3

// Resolver is the contract the orchestrator depends on.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*models.EntityMatch, error)
}

// IndexResolver queries the semantic entity index over HTTP.
type IndexResolver struct {
	baseURL string
	client  *http.Client
}

// NewIndexResolver creates a resolver for the configured index.
func NewIndexResolver(cfg config.EntityConfig) *IndexResolver {
	return &IndexResolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type indexResult struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Market   string  `json:"market"`
	Delisted bool    `json:"delisted"`
	Score    float64 `json:"score"`
}

type indexResponse struct {
	Results []indexResult `json:"results"`
}

// Resolve implements Resolver. The returned error is reserved for
// transport/index failures; resolution verdicts, including unknown and
// delisted, come back inside the EntityMatch.
func (r *IndexResolver) Resolve(ctx context.Context, name string) (*models.EntityMatch, error) {
	body, err := json.Marshal(map[string]any{"query": name, "limit": maxSuggestions + 2})
	if err != nil {
		return nil, fmt.Errorf("failed to build index query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entity index unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entity index returned status %d", resp.StatusCode)
	}

	var decoded indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode index response: %w", err)
	}

	return verdict(name, decoded.Results), nil
}

// verdict applies the confidence policy to ranked index results.
func verdict(name string, results []indexResult) *models.EntityMatch {
	if len(results) == 0 {
		return &models.EntityMatch{
			Kind:    models.EntityMatchUnknown,
			Message: fmt.Sprintf("no instrument found for %q", name),
		}
	}

	top := results[0]
	if top.Delisted {
		return &models.EntityMatch{
			Kind:       models.EntityMatchDelisted,
			Confidence: top.Score,
			Message:    fmt.Sprintf("%s(%s) has been delisted and can no longer be analyzed", top.Name, top.Code),
		}
	}

	switch {
	case top.Score >= acceptThreshold:
		return &models.EntityMatch{
			Kind:       models.EntityMatchFound,
			Matched:    true,
			Confidence: top.Score,
			Entity: &models.Entity{
				Code:   top.Code,
				Name:   top.Name,
				Market: marketForCode(top.Code, top.Market),
			},
		}
	case top.Score >= suggestThreshold:
		suggestions := make([]string, 0, maxSuggestions)
		for _, res := range results {
			if len(suggestions) == maxSuggestions {
				break
			}
			suggestions = append(suggestions, fmt.Sprintf("%s(%s)", res.Name, res.Code))
		}
		return &models.EntityMatch{
			Kind:        models.EntityMatchAmbiguous,
			Confidence:  top.Score,
			Suggestions: suggestions,
			Message:     fmt.Sprintf("could not confidently match %q", name),
		}
	default:
		return &models.EntityMatch{
			Kind:       models.EntityMatchUnknown,
			Confidence: top.Score,
			Message:    fmt.Sprintf("no instrument found for %q", name),
		}
	}
}

// marketForCode infers the listing market from the code prefix when the
// index omits it: 6 is Shanghai, 0 and 3 are Shenzhen. This is the only
// place market inference lives.
func marketForCode(code, market string) string {
	if market != "" {
		return market
	}
	switch {
	case strings.HasPrefix(code, "6"):
		return "SH"
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "SZ"
	default:
		return ""
	}
}
