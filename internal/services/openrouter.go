package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmaxmax/go-sse"
)

// OpenRouter provides an implementation of the Backend interface for models served by OpenRouter, the
// provider the ViLaw API itself uses.
type OpenRouter struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	temperature  float32

	client *http.Client

	logger *slog.Logger
}

type openRouterChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float32             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type openRouterStreamingResponse struct {
	Choices []openRouterStreamingChoice `json:"choices"`
}

type openRouterStreamingChoice struct {
	Delta openRouterMessage `json:"delta"`
}

const (
	openRouterAPIEndpoint = "https://openrouter.ai/api/v1"
)

// NewOpenRouter creates a new OpenRouter instance. An empty baseURL selects the public endpoint.
func NewOpenRouter(apiKey, baseURL, model, systemPrompt string, temperature float32, logger *slog.Logger) OpenRouter {
	if baseURL == "" {
		baseURL = openRouterAPIEndpoint
	}
	return OpenRouter{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		client:       &http.Client{},
		logger:       logger.With(slog.String("module", "openrouter")),
	}
}

// Name implements handlers.Backend.
func (o OpenRouter) Name() string {
	return "openrouter"
}

// Stream sends question to OpenRouter and returns a body carrying the text deltas of the reply. The
// request is sent before Stream returns, so an unreachable endpoint or a rejected request is reported
// directly. Closing the body aborts the request.
func (o OpenRouter) Stream(ctx context.Context, question string) (io.ReadCloser, error) {
	// The request outlives Stream, so it needs its own cancel tied to the body
	reqCtx, cancel := context.WithCancel(ctx)
	resp, err := o.doRequest(reqCtx, question)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	return pipeStream(reqCtx, func(ctx context.Context, w io.Writer) error {
		defer cancel()
		defer resp.Body.Close()
		// Closing the body early aborts a read blocked on the network
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				return fmt.Errorf("error reading response: %w", err)
			}

			o.logger.Debug("Received event", slog.String("event", ev.Data))

			if ev.Data == "[DONE]" {
				return nil
			}

			var res openRouterStreamingResponse
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				return fmt.Errorf("error unmarshaling response: %w", err)
			}
			if len(res.Choices) == 0 {
				continue
			}

			if _, err := io.WriteString(w, res.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

func (o OpenRouter) doRequest(ctx context.Context, question string) (*http.Response, error) {
	reqBody := openRouterChatRequest{
		Model: o.model,
		Messages: []openRouterMessage{
			{
				Role:    "system",
				Content: o.systemPrompt,
			},
			{
				Role:    "user",
				Content: question,
			},
		},
		Temperature: o.temperature,
		Stream:      true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	o.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("X-Title", "ViLaw")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
