package entity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

func newIndexServer(t *testing.T, results []indexResult) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		_ = json.NewEncoder(w).Encode(indexResponse{Results: results})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveHighConfidenceMatch(t *testing.T) {
	srv := newIndexServer(t, []indexResult{
		{Code: "600519", Name: "Kweichow Moutai", Score: 0.97},
	})
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	match, err := r.Resolve(context.Background(), "Kweichow Moutai")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMatchFound, match.Kind)
	assert.True(t, match.Matched)
	require.NotNil(t, match.Entity)
	assert.Equal(t, "600519", match.Entity.Code)
	assert.Equal(t, "SH", match.Entity.Market)
}

func TestResolveAmbiguousReturnsSuggestions(t *testing.T) {
	srv := newIndexServer(t, []indexResult{
		{Code: "600519", Name: "Kweichow Moutai", Score: 0.7},
		{Code: "000858", Name: "Wuliangye", Score: 0.6},
		{Code: "000568", Name: "Luzhou Laojiao", Score: 0.55},
		{Code: "600809", Name: "Shanxi Fenjiu", Score: 0.5},
	})
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	match, err := r.Resolve(context.Background(), "moutai liquor")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMatchAmbiguous, match.Kind)
	assert.False(t, match.Matched)
	require.Len(t, match.Suggestions, 3)
	assert.Equal(t, "Kweichow Moutai(600519)", match.Suggestions[0])
}

func TestResolveLowConfidenceIsUnknown(t *testing.T) {
	srv := newIndexServer(t, []indexResult{
		{Code: "600519", Name: "Kweichow Moutai", Score: 0.2},
	})
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	match, err := r.Resolve(context.Background(), "MOUTAI-2")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMatchUnknown, match.Kind)
	assert.Empty(t, match.Suggestions)
	assert.Contains(t, match.Message, "MOUTAI-2")
}

func TestResolveDelisted(t *testing.T) {
	srv := newIndexServer(t, []indexResult{
		{Code: "600001", Name: "Hantang Securities", Score: 0.95, Delisted: true},
	})
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	match, err := r.Resolve(context.Background(), "Hantang")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMatchDelisted, match.Kind)
	assert.Contains(t, match.Message, "delisted")
}

func TestResolveEmptyResults(t *testing.T) {
	srv := newIndexServer(t, nil)
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	match, err := r.Resolve(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMatchUnknown, match.Kind)
}

func TestResolveIndexFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	r := NewIndexResolver(config.EntityConfig{BaseURL: srv.URL})

	_, err := r.Resolve(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestMarketForCode(t *testing.T) {
	tests := []struct {
		code, market, want string
	}{
		{"600519", "", "SH"},
		{"000858", "", "SZ"},
		{"300750", "", "SZ"},
		{"688981", "", "SH"},
		{"900001", "", ""},
		{"600519", "XSHG", "XSHG"}, // index-provided market wins
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, marketForCode(tt.code, tt.market), "code %s", tt.code)
	}
}
