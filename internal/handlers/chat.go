package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/stream"
)

type entry struct {
	SessionID string
	Label     string
	Text      string
}

// HandleChats takes a question from the chat form and starts streaming its answer.
//
// The handler expects a "message" form field and a "client_id" field identifying the page. The
// message is trimmed; an empty message is ignored and answered with 204 No Content. A missing client ID
// is rejected with 400, since the answer could not be routed to the asking page. Otherwise the
// response holds two fragments for the log: the user's entry, shown verbatim, and an empty answer
// region tagged with a new session ID. The answer is then requested from the backend in the background
// and streamed into that region over server-sent events.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	question := strings.TrimSpace(r.FormValue("message"))
	if question == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	clientID := r.FormValue("client_id")
	if clientID == "" {
		m.logger.Error("Missing client ID")
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}
	sessionID := uuid.New().String()

	// Both entries are rendered before the session starts, so a template failure never leaves an
	// answer streaming into a region the page does not have
	var buf bytes.Buffer
	err := m.templates.ExecuteTemplate(&buf, "user_message", entry{
		Label: m.labels.Label(models.SenderUser),
		Text:  question,
	})
	if err != nil {
		m.logger.Error("Failed to render user message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = m.templates.ExecuteTemplate(&buf, "bot_message", entry{
		SessionID: sessionID,
		Label:     m.labels.Label(models.SenderBot),
	})
	if err != nil {
		m.logger.Error("Failed to render bot message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, stale := m.sessions.start(clientID, sessionID)
	for _, id := range stale {
		m.logger.Info("Canceled stale session",
			slog.String("sessionID", id),
			slog.String("clientID", clientID))
	}

	go m.respond(ctx, clientID, sessionID, question)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		m.logger.Error("Failed to write response", slog.String(errLoggerKey, err.Error()))
	}
}

// respond streams the answer to question into the region of sessionID. A connection failure replaces
// the region with the error message; a canceled session is closed as it is.
func (m Main) respond(ctx context.Context, clientID, sessionID, question string) {
	defer m.sessions.finish(sessionID)

	logger := m.logger.With(slog.String("sessionID", sessionID))
	sink := newRegionSink(m.pub, clientTopic(clientID), sessionID)
	// Ensure the page stops waiting on this region
	defer func() {
		if err := sink.close(); err != nil {
			logger.Error("Failed to close session", slog.String(errLoggerKey, err.Error()))
		}
	}()

	rec := models.SessionRecord{
		ID:        sessionID,
		ClientID:  clientID,
		Backend:   m.backend.Name(),
		State:     stream.StateAwaitingFirstChunk.String(),
		StartedAt: time.Now(),
	}
	key := m.addRecord(rec, logger)

	sess := stream.NewSession(sessionID)
	err := sess.Run(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		return m.backend.Stream(ctx, question)
	}, sink)

	rec.State = sess.State().String()
	rec.Bytes = sess.Bytes()
	rec.Runes = sess.Runes()
	rec.EndedAt = time.Now()
	if err != nil {
		rec.Error = err.Error()
	}
	m.updateRecord(key, rec, logger)

	switch {
	case err == nil:
		logger.Debug("Session completed",
			slog.Int("bytes", rec.Bytes),
			slog.Duration("duration", rec.EndedAt.Sub(rec.StartedAt)))
		return
	case errors.Is(err, context.Canceled):
		logger.Info("Session canceled")
		return
	}

	logger.Error("Session failed", slog.String(errLoggerKey, err.Error()))

	html, rerr := m.errorHTML()
	if rerr != nil {
		logger.Error("Failed to render error", slog.String(errLoggerKey, rerr.Error()))
		html = template.HTMLEscapeString(m.errorMessage)
	}
	if err := sink.fail(html); err != nil {
		logger.Error("Failed to publish error", slog.String(errLoggerKey, err.Error()))
	}
}

func (m Main) errorHTML() (string, error) {
	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, "stream_error", m.errorMessage); err != nil {
		return "", fmt.Errorf("failed to execute stream_error template: %w", err)
	}
	return sb.String(), nil
}

func (m Main) addRecord(rec models.SessionRecord, logger *slog.Logger) string {
	if m.journal == nil {
		return ""
	}
	key, err := m.journal.AddSession(context.Background(), rec)
	if err != nil {
		logger.Error("Failed to add session record", slog.String(errLoggerKey, err.Error()))
		return ""
	}
	return key
}

func (m Main) updateRecord(key string, rec models.SessionRecord, logger *slog.Logger) {
	if m.journal == nil || key == "" {
		return
	}
	if err := m.journal.UpdateSession(context.Background(), key, rec); err != nil {
		logger.Error("Failed to update session record", slog.String(errLoggerKey, err.Error()))
	}
}
