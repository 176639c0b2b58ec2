package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RoutingConfig maps stage task types to adapters and models.
type RoutingConfig struct {
	TaskTypes map[string]RouteTarget `yaml:"task_types"`
	Default   RouteTarget            `yaml:"default"`
	Retry     RetryConfig            `yaml:"retry,omitempty"`
	Fallback  FallbackConfig         `yaml:"fallback,omitempty"`
}

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty"`
}

// FallbackConfig defines adapter/model fallbacks. Chains are keyed by
// "adapter/model" or by adapter name.
type FallbackConfig struct {
	AllowFallback bool                     `yaml:"allow_fallback,omitempty"`
	FallbackChain map[string][]RouteTarget `yaml:"fallback_chain,omitempty"`
}

// Route returns the target for a task type, or the default target.
func (c *RoutingConfig) Route(taskType string) RouteTarget {
	if c == nil {
		return RouteTarget{}
	}
	if target, ok := c.TaskTypes[taskType]; ok && target.Adapter != "" {
		return target
	}
	return c.Default
}

// LoadRoutingConfig reads routing configuration from a YAML file.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyRoutingDefaults(&cfg)
	return &cfg, nil
}

// DefaultRoutingConfig routes every content stage to DeepSeek chat.
func DefaultRoutingConfig() *RoutingConfig {
	deepseek := RouteTarget{Adapter: "deepseek", Model: "deepseek-chat"}
	cfg := &RoutingConfig{
		TaskTypes: map[string]RouteTarget{
			"research":  deepseek,
			"outline":   deepseek,
			"write":     deepseek,
			"edit":      deepseek,
			"factcheck": deepseek,
			"seo":       deepseek,
		},
		Default: deepseek,
	}

	applyRoutingDefaults(cfg)
	return cfg
}

func applyRoutingDefaults(cfg *RoutingConfig) {
	if cfg == nil {
		return
	}
	if cfg.Default.Adapter == "" {
		cfg.Default = RouteTarget{Adapter: "deepseek", Model: "deepseek-chat"}
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.BaseBackoffMs == 0 {
		cfg.Retry.BaseBackoffMs = 200
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 2000
	}
	if cfg.Retry.MaxBackoffMs < cfg.Retry.BaseBackoffMs {
		cfg.Retry.MaxBackoffMs = cfg.Retry.BaseBackoffMs
	}
}
