package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
)

func TestResearchQueryReturnsExcerpts(t *testing.T) {
	var healthCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			healthCalls.Add(1)
			w.WriteHeader(http.StatusOK)
		case "/query":
			_, _ = w.Write([]byte(`{"excerpts":[
				{"filename":"moutai_2026H1.pdf","page":12,"content":"Revenue grew 15%","score":0.91}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewResearchClient(config.ResearchConfig{BaseURL: srv.URL, TopK: 3})

	for i := 0; i < 2; i++ {
		excerpts, err := c.Query(context.Background(), []string{"moutai", "revenue"})
		require.NoError(t, err)
		require.Len(t, excerpts, 1)
		assert.Equal(t, "moutai_2026H1.pdf", excerpts[0].Filename)
		assert.Equal(t, 12, excerpts[0].Page)
	}
	// The health probe runs once per process, not per query.
	assert.Equal(t, int32(1), healthCalls.Load())
}

func TestResearchUnavailableDegradesToEmpty(t *testing.T) {
	c := NewResearchClient(config.ResearchConfig{BaseURL: "http://127.0.0.1:1"})

	excerpts, err := c.Query(context.Background(), []string{"anything"})
	require.NoError(t, err)
	assert.Nil(t, excerpts)
}

func TestResearchUnconfiguredIsNoop(t *testing.T) {
	c := NewResearchClient(config.ResearchConfig{})

	excerpts, err := c.Query(context.Background(), []string{"anything"})
	require.NoError(t, err)
	assert.Nil(t, excerpts)
}
