package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{
			"cheap":   "deepseek-chat",
			"quality": "claude-sonnet-4-20250514",
		},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "resolve known alias", input: "cheap", expected: "deepseek-chat"},
		{name: "resolve another alias", input: "quality", expected: "claude-sonnet-4-20250514"},
		{name: "unknown alias returns input unchanged", input: "unknown-model", expected: "unknown-model"},
		{name: "canonical model returns unchanged", input: "deepseek-chat", expected: "deepseek-chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := aliases.Resolve(tt.input); result != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolve_NilAliases(t *testing.T) {
	var aliases *ModelAliases
	if result := aliases.Resolve("cheap"); result != "cheap" {
		t.Errorf("Resolve on nil should return input, got %q", result)
	}
}

func TestValidateModel(t *testing.T) {
	aliases := &ModelAliases{
		Providers: map[string][]string{
			"openai":   {"gpt-4o", "gpt-4o-mini"},
			"deepseek": {"deepseek-chat"},
		},
	}

	tests := []struct {
		name      string
		adapter   string
		model     string
		wantError bool
	}{
		{name: "valid model for provider", adapter: "openai", model: "gpt-4o"},
		{name: "another valid model", adapter: "deepseek", model: "deepseek-chat"},
		{name: "invalid model for provider", adapter: "openai", model: "deepseek-chat", wantError: true},
		{name: "unknown adapter", adapter: "unknown", model: "some-model", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := aliases.ValidateModel(tt.adapter, tt.model)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateModel(%q, %q) error = %v, wantError %v", tt.adapter, tt.model, err, tt.wantError)
			}
		})
	}
}

func TestProviderForModel(t *testing.T) {
	aliases := DefaultAliases()

	tests := []struct {
		model    string
		expected string
	}{
		{"deepseek-chat", "deepseek"},
		{"claude-sonnet-4-20250514", "anthropic"},
		{"gemini-2.0-flash", "google"},
		{"unknown-model", ""},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if result := aliases.ProviderForModel(tt.model); result != tt.expected {
				t.Errorf("ProviderForModel(%q) = %q, want %q", tt.model, result, tt.expected)
			}
		})
	}
}

func TestValidateRoutingConfig(t *testing.T) {
	aliases := DefaultAliases()

	if errs := aliases.ValidateRoutingConfig(DefaultRoutingConfig()); len(errs) != 0 {
		t.Fatalf("default routing should validate, got %v", errs)
	}

	cfg := DefaultRoutingConfig()
	cfg.TaskTypes["write"] = RouteTarget{Adapter: "openai", Model: "quality"}
	errs := aliases.ValidateRoutingConfig(cfg)
	if len(errs) != 1 {
		t.Fatalf("expected one error for an alias routed to the wrong provider, got %v", errs)
	}
}

func TestLoadAliases(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "models.yaml")
	content := `aliases:
  fast: gpt-4o-mini
providers:
  openai:
    - gpt-4o-mini
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadAliasesWithFallback(configPath)
	if err != nil {
		t.Fatalf("LoadAliasesWithFallback() error = %v", err)
	}
	if aliases.Resolve("fast") != "gpt-4o-mini" {
		t.Error("alias 'fast' should resolve to 'gpt-4o-mini'")
	}
	if aliases.ProviderForModel("gpt-4o-mini") != "openai" {
		t.Error("gpt-4o-mini should be in openai provider")
	}
}

func TestLoadAliases_FileNotFound(t *testing.T) {
	if _, err := LoadAliases("/nonexistent/path/models.yaml"); err == nil {
		t.Error("LoadAliases should error for nonexistent file")
	}

	aliases, err := LoadAliasesWithFallback("/nonexistent/path/models.yaml")
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if aliases.Resolve("cheap") != "deepseek-chat" {
		t.Error("fallback should return default aliases")
	}
}
