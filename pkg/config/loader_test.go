package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickertalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: test-key
  base_url: http://llm.local/v1
entity_index:
  base_url: http://index.local
prices:
  base_url: http://prices.local
models:
  baseline_penalty: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.True(t, cfg.Models.BaselinePenalty)

	// Defaults survive the merge.
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "prophet", cfg.Models.DefaultModel)
	assert.Equal(t, 3, cfg.Models.SelectionWindows)
	assert.Equal(t, 60, cfg.Models.MinTrainSize)
	assert.Equal(t, 30*time.Second, cfg.Models.IdleTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadExpandsEnvTemplates(t *testing.T) {
	t.Setenv("TEST_INDEX_URL", "http://expanded.local")

	path := writeConfig(t, `
llm:
  api_key: k
entity_index:
  base_url: "{{.TEST_INDEX_URL}}"
prices:
  base_url: http://prices.local
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://expanded.local", cfg.Entity.BaseURL)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")

	path := writeConfig(t, `
llm:
  api_key: file-key
entity_index:
  base_url: http://index.local
prices:
  base_url: http://prices.local
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: k
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_index.base_url")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "k")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	// Defaults alone fail validation (no index/price URLs), which is the
	// expected behavior for a bare environment.
	require.Error(t, err)
}
