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
)

// ViLaw streams answers from the ViLaw API. The answer is plain text written to the response body as
// the model produces it.
type ViLaw struct {
	baseURL string

	client *http.Client

	logger *slog.Logger
}

type viLawChatRequest struct {
	Question string `json:"question"`
}

const (
	// ViLawDefaultBaseURL is where the ViLaw API listens in a local setup.
	ViLawDefaultBaseURL = "http://localhost:8000"

	viLawChatStreamPath = "/api/v1/chat/stream"
)

// NewViLaw creates a ViLaw backend for the API at baseURL. The HTTP client has no timeout: an answer
// streams for as long as the backend keeps the response open.
func NewViLaw(baseURL string, logger *slog.Logger) ViLaw {
	if baseURL == "" {
		baseURL = ViLawDefaultBaseURL
	}
	return ViLaw{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger.With(slog.String("module", "vilaw")),
	}
}

// Name implements handlers.Backend.
func (v ViLaw) Name() string {
	return "vilaw"
}

// Stream posts question to the chat stream endpoint and returns the response body unread. The caller
// owns the body.
func (v ViLaw) Stream(ctx context.Context, question string) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(viLawChatRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+viLawChatStreamPath, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	v.logger.Debug("Request", slog.String("url", req.URL.String()))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}
