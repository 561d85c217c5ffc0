package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"text/template"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// defaults returns the built-in configuration. User YAML overrides these
// field by field.
func defaults() *Config {
	return &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		LLM:   LLMConfig{Model: "gpt-4o-mini"},
		News:  NewsConfig{PerSourceLimit: 5},
		Research: ResearchConfig{
			TopK: 5,
		},
		Models: ModelsConfig{
			DefaultModel:     "prophet",
			SelectionWindows: 3,
			MinTrainSize:     60,
			IdleTimeout:      30 * time.Second,
		},
	}
}

// Load reads the YAML file at path, expands environment references, merges
// it over the built-in defaults, and validates the result. A missing file
// is not an error: the defaults (plus whatever the environment supplies)
// are returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Warn("Config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(expandEnv(data), &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets the most sensitive settings come straight from the
// environment so they never need to live in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("NEWS_SEARCH_API_KEY"); v != "" {
		cfg.News.SearchAPIKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTP.Port = v
	}
}

// expandEnv expands {{.VAR_NAME}} template references in YAML content from
// the process environment. The template syntax avoids collision with
// literal $ characters in passwords and URLs. Missing variables expand to
// the empty string; malformed templates pass the content through untouched.
func expandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		if idx := bytes.IndexByte([]byte(env), '='); idx > 0 {
			envMap[env[:idx]] = env[idx+1:]
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap); err != nil {
		return data
	}
	return buf.Bytes()
}
