package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

const domainPage = `<html><body>
<a href="/news/1">Kweichow Moutai posts record quarterly profit</a>
<a href="/news/2">Weather forecast for the weekend</a>
<a href="/news/3">Moutai distillery expands production capacity</a>
<a href="">empty link</a>
</body></html>`

func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Moutai price target raised","url":"https://example.com/a","content":"Analysts raised...","published_date":"2026-08-20"},
			{"title":"Liquor sector outlook","url":"https://example.com/b","content":"The sector..."}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDomainServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(domainPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectMergesBothSources(t *testing.T) {
	search := newSearchServer(t)
	domain := newDomainServer(t)

	n := NewDualSourceNews(config.NewsConfig{
		SearchBaseURL: search.URL,
		DomainPageURL: domain.URL,
	})

	items, err := n.Collect(context.Background(), []string{"moutai"}, []string{"Moutai"})
	require.NoError(t, err)
	require.Len(t, items, 4)

	// Web results lead, domain results follow.
	assert.Equal(t, models.NewsSourceWeb, items[0].SourceType)
	assert.Equal(t, "Moutai price target raised", items[0].Title)
	assert.Equal(t, "2026-08-20", items[0].PublishedAt)
	assert.Equal(t, models.NewsSourceDomain, items[2].SourceType)
	assert.Contains(t, items[2].Title, "record quarterly profit")
	assert.Equal(t, domain.URL+"/news/1", items[2].URL)
}

func TestCollectDomainFilteringAndLimit(t *testing.T) {
	domain := newDomainServer(t)
	n := NewDualSourceNews(config.NewsConfig{
		DomainPageURL:  domain.URL,
		PerSourceLimit: 1,
	})

	items, err := n.Collect(context.Background(), nil, []string{"moutai"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "Moutai")
}

func TestCollectDegradesWhenOneSourceFails(t *testing.T) {
	search := newSearchServer(t)
	n := NewDualSourceNews(config.NewsConfig{
		SearchBaseURL: search.URL,
		DomainPageURL: "http://127.0.0.1:1/news",
	})

	items, err := n.Collect(context.Background(), []string{"moutai"}, []string{"moutai"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.NewsSourceWeb, items[0].SourceType)
}

func TestCollectErrorsWhenAllSourcesFail(t *testing.T) {
	n := NewDualSourceNews(config.NewsConfig{
		SearchBaseURL: "http://127.0.0.1:1",
		DomainPageURL: "http://127.0.0.1:1/news",
	})

	_, err := n.Collect(context.Background(), []string{"a"}, []string{"b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all news sources failed")
}

func TestCollectSkipsSourcesWithoutKeywords(t *testing.T) {
	n := NewDualSourceNews(config.NewsConfig{
		SearchBaseURL: "http://127.0.0.1:1",
		DomainPageURL: "http://127.0.0.1:1/news",
	})

	// No keywords means no source runs and no error.
	items, err := n.Collect(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
