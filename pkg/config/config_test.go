package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestConfigIgnoresFileAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeys(t)

	writeConfigFile(t, home, "config.yaml", "api_keys:\n  anthropic: file-ant\n  deepseek: file-deepseek\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "" || cfg.DeepSeekAPIKey != "" {
		t.Fatalf("expected file API keys to be ignored")
	}
}

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")
	t.Setenv("TAVILY_API_KEY", "env-tavily")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" ||
		cfg.DeepSeekAPIKey != "env-deepseek" || cfg.TavilyAPIKey != "env-tavily" {
		t.Fatalf("expected env API keys to be used")
	}
	if !cfg.HasAdapter("deepseek") || cfg.HasAdapter("unknown") {
		t.Fatalf("unexpected HasAdapter results")
	}
}

func TestConfigDefaults(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeys(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigDir != filepath.Join(home, ".quillflow") {
		t.Fatalf("unexpected config dir %q", cfg.ConfigDir)
	}
	if cfg.StorePath != filepath.Join(home, ".quillflow", "versions.db") {
		t.Fatalf("unexpected store path %q", cfg.StorePath)
	}
	if cfg.StageTimeout != defaultStageTimeout || cfg.Parallel != defaultParallel {
		t.Fatalf("unexpected defaults: timeout=%s parallel=%d", cfg.StageTimeout, cfg.Parallel)
	}
	if target := cfg.RoutingConfig.Route("write"); target.Adapter != "deepseek" || target.Model != "deepseek-chat" {
		t.Fatalf("unexpected default route %+v", target)
	}
	if cfg.Aliases.Resolve("cheap") != "deepseek-chat" {
		t.Fatalf("expected default aliases")
	}
}

func TestConfigReadsFileSettings(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeys(t)

	writeConfigFile(t, home, "config.yaml", "store_path: memory\nevidence_dir: /tmp/evidence\nstage_timeout: 45s\nparallel: 4\n")
	writeConfigFile(t, home, "routing.yaml", "task_types:\n  write:\n    adapter: anthropic\n    model: quality\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorePath != "memory" || cfg.EvidenceDir != "/tmp/evidence" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.StageTimeout != 45*time.Second || cfg.Parallel != 4 {
		t.Fatalf("unexpected settings: timeout=%s parallel=%d", cfg.StageTimeout, cfg.Parallel)
	}
	if target := cfg.RoutingConfig.Route("write"); target.Adapter != "anthropic" {
		t.Fatalf("routing.yaml not applied: %+v", target)
	}
	if target := cfg.RoutingConfig.Route("edit"); target.Adapter != "deepseek" {
		t.Fatalf("unrouted task types should use the default target, got %+v", target)
	}
}

func TestConfigRejectsBadStageTimeout(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	writeConfigFile(t, home, "config.yaml", "stage_timeout: soon\n")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid stage_timeout")
	}
}

func TestLoadWithRoutingFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	path := filepath.Join(t.TempDir(), "routing.yaml")
	data := "default:\n  adapter: openai\n  model: gpt-4o\nretry:\n  max_retries: 5\n  base_backoff_ms: 500\n  max_backoff_ms: 100\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write routing: %v", err)
	}

	cfg, err := LoadWithRoutingFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := cfg.RoutingConfig
	if r.Default.Adapter != "openai" || r.Retry.MaxRetries != 5 {
		t.Fatalf("unexpected routing: %+v", r)
	}
	if r.Retry.MaxBackoffMs != 500 {
		t.Fatalf("max backoff should be raised to base backoff, got %d", r.Retry.MaxBackoffMs)
	}

	if _, err := LoadWithRoutingFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing routing file")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY", "TAVILY_API_KEY"} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, home, name, data string) {
	t.Helper()
	dir := filepath.Join(home, ".quillflow")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
