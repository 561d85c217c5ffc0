package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// defaultPerSourceLimit bounds each news source when config leaves it zero.
const defaultPerSourceLimit = 5

// NewsCollector is the contract the orchestrator depends on.
type NewsCollector interface {
	Collect(ctx context.Context, webKeywords, domainKeywords []string) ([]models.NewsItem, error)
}

// DualSourceNews gathers news from a web search API and a domain news page
// in parallel. Either source failing degrades to the other's results; only
// both failing is an error.
type DualSourceNews struct {
	cfg    config.NewsConfig
	client *http.Client
	limit  int
}

// NewDualSourceNews creates the collector from config.
func NewDualSourceNews(cfg config.NewsConfig) *DualSourceNews {
	limit := cfg.PerSourceLimit
	if limit <= 0 {
		limit = defaultPerSourceLimit
	}
	return &DualSourceNews{
		cfg:    cfg,
		client: &http.Client{Timeout: 20 * time.Second},
		limit:  limit,
	}
}

// Collect runs both sources concurrently and merges their results, web
// results first. Empty keyword lists skip the corresponding source.
func (d *DualSourceNews) Collect(ctx context.Context, webKeywords, domainKeywords []string) ([]models.NewsItem, error) {
	var webItems, domainItems []models.NewsItem
	var webErr, domainErr error

	g, gctx := errgroup.WithContext(ctx)
	if len(webKeywords) > 0 && d.cfg.SearchBaseURL != "" {
		g.Go(func() error {
			webItems, webErr = d.searchWeb(gctx, strings.Join(webKeywords, " "))
			if webErr != nil {
				slog.Warn("Web news search failed", "error", webErr)
			}
			return nil
		})
	}
	if len(domainKeywords) > 0 && d.cfg.DomainPageURL != "" {
		g.Go(func() error {
			domainItems, domainErr = d.scrapeDomain(gctx, domainKeywords)
			if domainErr != nil {
				slog.Warn("Domain news scrape failed", "error", domainErr)
			}
			return nil
		})
	}
	_ = g.Wait()

	if webErr != nil && domainErr != nil {
		return nil, fmt.Errorf("all news sources failed: web: %v; domain: %v", webErr, domainErr)
	}
	return append(webItems, domainItems...), nil
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (d *DualSourceNews) searchWeb(ctx context.Context, query string) ([]models.NewsItem, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:     d.cfg.SearchAPIKey,
		Query:      query,
		MaxResults: d.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(d.cfg.SearchBaseURL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	items := make([]models.NewsItem, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if len(items) == d.limit {
			break
		}
		items = append(items, models.NewsItem{
			Title:       r.Title,
			Snippet:     r.Content,
			URL:         r.URL,
			PublishedAt: r.PublishedDate,
			SourceType:  models.NewsSourceWeb,
			SourceName:  "web_search",
		})
	}
	return items, nil
}

// scrapeDomain pulls the domain news listing page and keeps headlines that
// mention any of the keywords.
func (d *DualSourceNews) scrapeDomain(ctx context.Context, keywords []string) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.DomainPageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build domain news request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("domain news page unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("domain news page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse domain news page: %w", err)
	}

	var items []models.NewsItem
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		if title == "" || !ok || !matchesAny(title, keywords) {
			return true
		}
		items = append(items, models.NewsItem{
			Title:      title,
			Snippet:    title,
			URL:        absoluteURL(d.cfg.DomainPageURL, href),
			SourceType: models.NewsSourceDomain,
			SourceName: "domain_page",
		})
		return len(items) < d.limit
	})
	return items, nil
}

func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func absoluteURL(page, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(page, "/") + "/" + strings.TrimLeft(href, "/")
}
