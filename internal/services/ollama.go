package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Ollama answers questions with a model served by Ollama, streaming the reply as plain text.
type Ollama struct {
	model        string
	systemPrompt string
	temperature  float32

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model, systemPrompt string, temperature float32, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return Ollama{
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		client:       api.NewClient(u, &http.Client{}),
		logger:       logger.With(slog.String("module", "ollama")),
	}, nil
}

// Name implements handlers.Backend.
func (o Ollama) Name() string {
	return "ollama"
}

// Stream asks the model and returns its reply as a body that fills while the model generates. Request
// failures surface as read errors on the body.
func (o Ollama) Stream(ctx context.Context, question string) (io.ReadCloser, error) {
	return pipeStream(ctx, func(ctx context.Context, w io.Writer) error {
		t := true
		req := api.ChatRequest{
			Model: o.model,
			Messages: []api.Message{
				{
					Role:    "system",
					Content: o.systemPrompt,
				},
				{
					Role:    "user",
					Content: question,
				},
			},
			Stream: &t,
			Options: map[string]any{
				"temperature": o.temperature,
			},
		}

		if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			_, err := io.WriteString(w, res.Message.Content)
			return err
		}); err != nil {
			o.logger.Debug("Chat failed", slog.String(errLoggerKey, err.Error()))
			return fmt.Errorf("error sending request: %w", err)
		}
		return nil
	}), nil
}
