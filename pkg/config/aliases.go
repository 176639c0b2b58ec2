package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelAliases maps short model names used in pipeline manifests to
// canonical provider models, and lists the models each provider serves.
type ModelAliases struct {
	Aliases   map[string]string   `yaml:"aliases"`
	Providers map[string][]string `yaml:"providers"`
}

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}
	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}
	return &aliases, nil
}

// LoadAliasesWithFallback loads aliases from path, or returns DefaultAliases
// when the file does not exist.
func LoadAliasesWithFallback(path string) (*ModelAliases, error) {
	if path != "" && fileExists(path) {
		return LoadAliases(path)
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// ValidateModel checks if a model exists in the provider's list.
func (a *ModelAliases) ValidateModel(adapter, model string) error {
	if a == nil || len(a.Providers) == 0 {
		return nil
	}

	models, ok := a.Providers[adapter]
	if !ok {
		return fmt.Errorf("unknown adapter %q", adapter)
	}
	for _, m := range models {
		if m == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not in %s provider list", model, adapter)
}

// ProviderForModel returns the provider serving a canonical model, or "".
func (a *ModelAliases) ProviderForModel(model string) string {
	if a == nil {
		return ""
	}
	providers := make([]string, 0, len(a.Providers))
	for p := range a.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, provider := range providers {
		for _, m := range a.Providers[provider] {
			if m == model {
				return provider
			}
		}
	}
	return ""
}

// ValidateRoutingConfig checks that every routed model is served by its adapter.
func (a *ModelAliases) ValidateRoutingConfig(cfg *RoutingConfig) []error {
	if a == nil || cfg == nil {
		return nil
	}

	names := make([]string, 0, len(cfg.TaskTypes))
	for name := range cfg.TaskTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		target := cfg.TaskTypes[name]
		if err := a.ValidateModel(target.Adapter, a.Resolve(target.Model)); err != nil {
			errs = append(errs, fmt.Errorf("task %q: %w", name, err))
		}
	}
	if err := a.ValidateModel(cfg.Default.Adapter, a.Resolve(cfg.Default.Model)); err != nil {
		errs = append(errs, fmt.Errorf("default: %w", err))
	}
	return errs
}

// DefaultAliases returns the built-in aliases and provider model lists.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			"cheap":    "deepseek-chat",
			"fast":     "gpt-4o-mini",
			"quality":  "claude-sonnet-4-20250514",
			"deep":     "claude-opus-4-20250514",
			"research": "gemini-2.0-flash",
		},
		Providers: map[string][]string{
			"deepseek":  {"deepseek-chat", "deepseek-reasoner"},
			"openai":    {"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
			"anthropic": {"claude-sonnet-4-20250514", "claude-opus-4-20250514"},
			"google":    {"gemini-2.0-flash", "gemini-2.5-pro"},
			"mock":      {"mock-1"},
		},
	}
}
