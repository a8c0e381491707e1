package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vilaw/vilaw-web/internal/handlers"
	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/services"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErr     bool
		wantBackend string
		check       func(t *testing.T, cfg config)
	}{
		{
			name:        "Empty file",
			yaml:        "",
			wantBackend: "vilaw",
			check: func(t *testing.T, cfg config) {
				if cfg.Port != defaultPort {
					t.Errorf("Port = %q, want %q", cfg.Port, defaultPort)
				}
				if cfg.Labels != models.DefaultLabels {
					t.Errorf("Labels = %+v, want %+v", cfg.Labels, models.DefaultLabels)
				}
				if cfg.ErrorMessage != handlers.DefaultErrorMessage {
					t.Errorf("ErrorMessage = %q", cfg.ErrorMessage)
				}
				if cfg.Temperature != services.DefaultTemperature {
					t.Errorf("Temperature = %v", cfg.Temperature)
				}
			},
		},
		{
			name: "ViLaw backend",
			yaml: `
port: "9000"
cancelStale: true
labels:
  bot: Trợ lý
backend:
  provider: vilaw
  baseURL: http://vilaw:8000
`,
			wantBackend: "vilaw",
			check: func(t *testing.T, cfg config) {
				if cfg.Port != "9000" || !cfg.CancelStale {
					t.Errorf("config = %+v", cfg)
				}
				want := models.Labels{User: "Bạn", Bot: "Trợ lý"}
				if cfg.Labels != want {
					t.Errorf("Labels = %+v, want %+v", cfg.Labels, want)
				}
				v, ok := cfg.Backend.(*vilawConfig)
				if !ok || v.BaseURL != "http://vilaw:8000" {
					t.Errorf("Backend = %+v", cfg.Backend)
				}
			},
		},
		{
			name: "Ollama backend",
			yaml: `
temperature: 0
backend:
  provider: ollama
  model: qwen2.5
  host: http://localhost:11434
`,
			wantBackend: "ollama",
			check: func(t *testing.T, cfg config) {
				if cfg.Temperature != 0 {
					t.Errorf("Temperature = %v, want 0", cfg.Temperature)
				}
				o, ok := cfg.Backend.(*ollamaConfig)
				if !ok || o.Model != "qwen2.5" || o.Host != "http://localhost:11434" {
					t.Errorf("Backend = %+v", cfg.Backend)
				}
			},
		},
		{
			name: "OpenAI backend",
			yaml: `
backend:
  provider: openai
  model: gpt-4o-mini
  apiKey: sk-test
`,
			wantBackend: "openai",
		},
		{
			name: "OpenRouter backend",
			yaml: `
backend:
  provider: openrouter
  model: google/gemini-2.0-flash-001
  apiKey: or-test
`,
			wantBackend: "openrouter",
		},
		{
			name: "Unknown provider",
			yaml: `
backend:
  provider: anthropic
`,
			wantErr: true,
		},
		{
			name: "Missing provider",
			yaml: `
backend:
  model: gpt-4o-mini
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := decodeConfig(strings.NewReader(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			backend, err := cfg.Backend.backend(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				t.Fatalf("backend() error = %v", err)
			}
			if backend.Name() != tt.wantBackend {
				t.Errorf("backend name = %q, want %q", backend.Name(), tt.wantBackend)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestBackendRequirements(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		backend backendConfig
	}{
		{name: "Ollama without model", backend: ollamaConfig{}},
		{name: "OpenAI without model", backend: openAIConfig{APIKey: "sk-test"}},
		{name: "OpenAI without key", backend: openAIConfig{BaseModelConfig: BaseModelConfig{Model: "gpt-4o-mini"}}},
		{name: "OpenRouter without key", backend: openRouterConfig{BaseModelConfig: BaseModelConfig{Model: "m"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.backend.backend(defaultConfig(), logger); err == nil {
				t.Error("backend() should fail")
			}
		})
	}
}

func TestBackendKeyFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-env")

	b := openRouterConfig{BaseModelConfig: BaseModelConfig{Model: "m"}}
	backend, err := b.backend(defaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("backend() error = %v", err)
	}
	if backend.Name() != "openrouter" {
		t.Errorf("backend name = %q", backend.Name())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig() missing file error = %v", err)
	}
	if _, ok := cfg.Backend.(*vilawConfig); !ok {
		t.Errorf("default Backend = %T, want *vilawConfig", cfg.Backend)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("port: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() should fail on malformed YAML")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "WARN", want: slog.LevelWarn},
		{level: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := config{LogLevel: tt.level}.slogLevel()
			if (err != nil) != tt.wantErr {
				t.Fatalf("slogLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("slogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
