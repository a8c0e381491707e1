package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/services"
	"github.com/vilaw/vilaw-web/internal/stream"
)

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Chào", " bạn"} {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	backend := services.NewViLaw(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out strings.Builder
	if err := ask(context.Background(), backend, models.DefaultLabels, "  Xin chào ", &out); err != nil {
		t.Fatalf("ask() error = %v", err)
	}

	want := "Bạn: Xin chào\nVilaw: Chào bạn\n"
	if out.String() != want {
		t.Errorf("ask() output = %q, want %q", out.String(), want)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	var out strings.Builder
	if err := ask(context.Background(), nil, models.DefaultLabels, " \n", &out); err != nil {
		t.Fatalf("ask() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("ask() output = %q, want empty", out.String())
	}
}

func TestAskConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	backend := services.NewViLaw(url, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out strings.Builder
	err := ask(context.Background(), backend, models.DefaultLabels, "Xin chào", &out)

	var connErr *stream.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("ask() error = %v, want *stream.ConnectionError", err)
	}
	if !strings.HasPrefix(out.String(), "Bạn: Xin chào\n") {
		t.Errorf("ask() output = %q", out.String())
	}
}
