package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides an implementation of the Backend interface for OpenAI's chat models.
type OpenAI struct {
	model        string
	systemPrompt string
	temperature  float32

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance. An empty baseURL keeps the official endpoint; any other
// value points the client at an OpenAI compatible server.
func NewOpenAI(apiKey, baseURL, model, systemPrompt string, temperature float32, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

// Name implements handlers.Backend.
func (o OpenAI) Name() string {
	return "openai"
}

// Stream is a wrapper around the OpenAI chat completion stream. The text deltas are written to the
// returned body in the order they are received.
func (o OpenAI) Stream(ctx context.Context, question string) (io.ReadCloser, error) {
	return pipeStream(ctx, func(ctx context.Context, w io.Writer) error {
		req := goopenai.ChatCompletionRequest{
			Model: o.model,
			Messages: []goopenai.ChatCompletionMessage{
				{
					Role:    goopenai.ChatMessageRoleSystem,
					Content: o.systemPrompt,
				},
				{
					Role:    goopenai.ChatMessageRoleUser,
					Content: question,
				},
			},
			Temperature: o.temperature,
			Stream:      true,
		}

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return fmt.Errorf("error sending request: %w", err)
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("error receiving response: %w", err)
			}

			if len(response.Choices) == 0 {
				continue
			}
			if len(response.Choices) > 1 {
				o.logger.Warn("Received multiple choices, only the first one is used",
					slog.Int("count", len(response.Choices)))
			}

			if _, err := io.WriteString(w, response.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}), nil
}
