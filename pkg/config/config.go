// Package config loads and validates the tickertalk configuration: a YAML
// file merged over built-in defaults, with environment variables expanded
// via {{.VAR_NAME}} template references.
package config

import (
	"fmt"
	"time"
)

// Config is the umbrella configuration object returned by Load and used
// throughout the application.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	LLM      LLMConfig      `yaml:"llm"`
	Entity   EntityConfig   `yaml:"entity_index"`
	Prices   PriceConfig    `yaml:"prices"`
	News     NewsConfig     `yaml:"news"`
	Research ResearchConfig `yaml:"research"`
	Models   ModelsConfig   `yaml:"models"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port string `yaml:"port"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LLMConfig holds the OpenAI-compatible provider settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EntityConfig holds the entity-resolution index settings.
type EntityConfig struct {
	BaseURL string `yaml:"base_url"`
}

// PriceConfig holds the historical price service settings.
type PriceConfig struct {
	BaseURL string `yaml:"base_url"`
}

// NewsConfig holds the two news sources' settings.
type NewsConfig struct {
	SearchAPIKey  string `yaml:"search_api_key"`
	SearchBaseURL string `yaml:"search_base_url"`
	DomainPageURL string `yaml:"domain_page_url"`
	// PerSourceLimit bounds each source's result count.
	PerSourceLimit int `yaml:"per_source_limit"`
}

// ResearchConfig holds the research-excerpt retrieval service settings.
type ResearchConfig struct {
	BaseURL string `yaml:"base_url"`
	TopK    int    `yaml:"top_k"`
}

// ModelsConfig holds forecasting settings.
type ModelsConfig struct {
	// ServiceBaseURL is the model-service collaborator hosting the heavy
	// forecasting backends and the anomaly clustering routine.
	ServiceBaseURL string `yaml:"service_base_url"`
	// DefaultModel is used when selection fails and the user named no model.
	DefaultModel string `yaml:"default_model"`
	// BaselinePenalty downgrades the production model to the seasonal-naive
	// baseline when the chosen model does not beat it in the back-test.
	BaselinePenalty bool `yaml:"baseline_penalty"`
	// SelectionWindows is the number of rolling back-test windows.
	SelectionWindows int `yaml:"selection_windows"`
	// MinTrainSize is the minimum training slice length per window.
	MinTrainSize int `yaml:"min_train_size"`
	// IdleTimeout errors out an orchestration that produced no event for
	// this long.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// validate checks settings that have no usable zero value.
func validate(c *Config) error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Entity.BaseURL == "" {
		return fmt.Errorf("entity_index.base_url is required")
	}
	if c.Prices.BaseURL == "" {
		return fmt.Errorf("prices.base_url is required")
	}
	if c.Models.SelectionWindows < 1 {
		return fmt.Errorf("models.selection_windows must be >= 1, got %d", c.Models.SelectionWindows)
	}
	if c.Models.MinTrainSize < 1 {
		return fmt.Errorf("models.min_train_size must be >= 1, got %d", c.Models.MinTrainSize)
	}
	return nil
}
