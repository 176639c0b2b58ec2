package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultStageTimeout = 3 * time.Minute
	defaultParallel     = 2
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string
	TavilyAPIKey    string
	RoutingConfig   *RoutingConfig
	Aliases         *ModelAliases
	ConfigDir       string

	// StorePath is the SQLite version database, or "memory".
	StorePath    string
	EvidenceDir  string
	StageTimeout time.Duration
	Parallel     int
}

// FileConfig represents the structure of ~/.quillflow/config.yaml.
// API keys are only read from the environment.
type FileConfig struct {
	StorePath    string `yaml:"store_path"`
	EvidenceDir  string `yaml:"evidence_dir"`
	StageTimeout string `yaml:"stage_timeout"`
	Parallel     int    `yaml:"parallel"`
}

// Load reads configuration from the config directory and environment.
// routing.yaml is used when present, otherwise DefaultRoutingConfig.
func Load() (*Config, error) {
	return load("")
}

// LoadWithRoutingFile loads config with a specific routing file.
func LoadWithRoutingFile(routingPath string) (*Config, error) {
	return load(routingPath)
}

func load(routingPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig, err := loadFileConfig(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		TavilyAPIKey:    os.Getenv("TAVILY_API_KEY"),
		ConfigDir:       configDir,
		StorePath:       fileConfig.StorePath,
		EvidenceDir:     fileConfig.EvidenceDir,
		StageTimeout:    defaultStageTimeout,
		Parallel:        fileConfig.Parallel,
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(configDir, "versions.db")
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = defaultParallel
	}
	if fileConfig.StageTimeout != "" {
		timeout, err := time.ParseDuration(fileConfig.StageTimeout)
		if err != nil || timeout <= 0 {
			return nil, fmt.Errorf("invalid stage_timeout %q in config.yaml", fileConfig.StageTimeout)
		}
		cfg.StageTimeout = timeout
	}

	if routingPath == "" {
		if path := filepath.Join(configDir, "routing.yaml"); fileExists(path) {
			routingPath = path
		}
	}
	if routingPath != "" {
		routing, err := LoadRoutingConfig(routingPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load routing config from %s: %w", routingPath, err)
		}
		cfg.RoutingConfig = routing
	} else {
		cfg.RoutingConfig = DefaultRoutingConfig()
	}

	aliases, err := LoadAliasesWithFallback(filepath.Join(configDir, "models.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load model aliases: %w", err)
	}
	cfg.Aliases = aliases

	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning an empty config if it
// does not exist.
func loadFileConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".quillflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
