package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vilaw/vilaw-web/internal/handlers"
	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/services"
	"gopkg.in/yaml.v3"
)

type backendConfig interface {
	backend(cfg config, logger *slog.Logger) (handlers.Backend, error)
}

// BaseModelConfig contains the common fields for the direct model backends.
type BaseModelConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port         string        `yaml:"port"`
	LogLevel     string        `yaml:"logLevel"`
	Labels       models.Labels `yaml:"labels"`
	ErrorMessage string        `yaml:"errorMessage"`
	CancelStale  bool          `yaml:"cancelStale"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float32       `yaml:"temperature"`
	Backend      backendConfig `yaml:"backend"`
}

type vilawConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseURL"`
}

type ollamaConfig struct {
	BaseModelConfig `yaml:",inline"`
	Host            string `yaml:"host"`
}

type openAIConfig struct {
	BaseModelConfig `yaml:",inline"`
	APIKey          string `yaml:"apiKey"`
	BaseURL         string `yaml:"baseURL"`
}

type openRouterConfig struct {
	BaseModelConfig `yaml:",inline"`
	APIKey          string `yaml:"apiKey"`
	BaseURL         string `yaml:"baseURL"`
}

const defaultPort = "8080"

func defaultConfig() config {
	return config{
		Port:         defaultPort,
		LogLevel:     "info",
		Labels:       models.DefaultLabels,
		ErrorMessage: handlers.DefaultErrorMessage,
		SystemPrompt: services.DefaultSystemPrompt,
		Temperature:  services.DefaultTemperature,
		Backend:      &vilawConfig{Provider: "vilaw"},
	}
}

// loadConfig reads the config at path. A missing file yields the defaults, so the server talks to a
// local ViLaw API out of the box.
func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return decodeConfig(f)
}

func decodeConfig(r io.Reader) (config, error) {
	cfg := defaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string         `yaml:"port"`
		LogLevel     string         `yaml:"logLevel"`
		Labels       models.Labels  `yaml:"labels"`
		ErrorMessage string         `yaml:"errorMessage"`
		CancelStale  bool           `yaml:"cancelStale"`
		SystemPrompt string         `yaml:"systemPrompt"`
		Temperature  *float32       `yaml:"temperature"`
		Backend      map[string]any `yaml:"backend"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	// Unset fields keep the values already in c
	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.LogLevel != "" {
		c.LogLevel = rawConfig.LogLevel
	}
	if rawConfig.Labels.User != "" {
		c.Labels.User = rawConfig.Labels.User
	}
	if rawConfig.Labels.Bot != "" {
		c.Labels.Bot = rawConfig.Labels.Bot
	}
	if rawConfig.ErrorMessage != "" {
		c.ErrorMessage = rawConfig.ErrorMessage
	}
	if rawConfig.SystemPrompt != "" {
		c.SystemPrompt = rawConfig.SystemPrompt
	}
	if rawConfig.Temperature != nil {
		c.Temperature = *rawConfig.Temperature
	}
	c.CancelStale = rawConfig.CancelStale

	if rawConfig.Backend == nil {
		return nil
	}

	provider, ok := rawConfig.Backend["provider"].(string)
	if !ok {
		return fmt.Errorf("backend provider is required")
	}

	backendRawYAML, err := yaml.Marshal(rawConfig.Backend)
	if err != nil {
		return err
	}

	var backend backendConfig
	switch provider {
	case "vilaw":
		backend = &vilawConfig{}
	case "ollama":
		backend = &ollamaConfig{}
	case "openai":
		backend = &openAIConfig{}
	case "openrouter":
		backend = &openRouterConfig{}
	default:
		return fmt.Errorf("unknown backend provider: %s", provider)
	}

	if err := yaml.Unmarshal(backendRawYAML, backend); err != nil {
		return err
	}

	c.Backend = backend

	return nil
}

func (c config) slogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (v vilawConfig) backend(_ config, logger *slog.Logger) (handlers.Backend, error) {
	baseURL := v.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("VILAW_BASE_URL")
	}
	return services.NewViLaw(baseURL, logger), nil
}

func (o ollamaConfig) backend(cfg config, logger *slog.Logger) (handlers.Backend, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	ollama, err := services.NewOllama(host, o.Model, cfg.SystemPrompt, cfg.Temperature, logger)
	if err != nil {
		return nil, err
	}
	return ollama, nil
}

func (o openAIConfig) backend(cfg config, logger *slog.Logger) (handlers.Backend, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, cfg.SystemPrompt, cfg.Temperature, logger), nil
}

func (o openRouterConfig) backend(cfg config, logger *slog.Logger) (handlers.Backend, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	return services.NewOpenRouter(apiKey, o.BaseURL, o.Model, cfg.SystemPrompt, cfg.Temperature, logger), nil
}
