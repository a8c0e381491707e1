package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmaxmax/go-sse"
	"github.com/vilaw/vilaw-web/internal/models"
)

// sessionEvent is the data of every event about a session. HTML replaces the content of the session's
// region on the page.
type sessionEvent struct {
	Session string `json:"session"`
	HTML    string `json:"html,omitempty"`
}

// SSE event types for session updates.
const (
	messagesSSEType     = "messages"
	failedSSEType       = "failed"
	closeMessageSSEType = "closeMessage"
)

type publisher interface {
	publish(topic, eventType string, ev sessionEvent) error
}

type ssePublisher struct {
	srv *sse.Server
}

func (p ssePublisher) publish(topic, eventType string, ev sessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := sse.Message{
		Type: sse.Type(eventType),
	}
	msg.AppendData(string(data))

	if err := p.srv.Publish(&msg, topic); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// regionSink is the answer region of one session on one page. It keeps the text appended so far and
// publishes the region re-rendered after each append, so a page that missed an event still shows the
// whole answer on the next one.
type regionSink struct {
	pub       publisher
	topic     string
	sessionID string

	text strings.Builder
}

func newRegionSink(pub publisher, topic, sessionID string) *regionSink {
	return &regionSink{
		pub:       pub,
		topic:     topic,
		sessionID: sessionID,
	}
}

// Append implements stream.Sink.
func (s *regionSink) Append(text string) error {
	s.text.WriteString(text)

	html, err := models.RenderMarkdown(s.text.String())
	if err != nil {
		return err
	}
	return s.pub.publish(s.topic, messagesSSEType, sessionEvent{Session: s.sessionID, HTML: html})
}

// fail replaces the region, including any text already shown, with html.
func (s *regionSink) fail(html string) error {
	return s.pub.publish(s.topic, failedSSEType, sessionEvent{Session: s.sessionID, HTML: html})
}

// close tells the page that the session is over.
func (s *regionSink) close() error {
	return s.pub.publish(s.topic, closeMessageSSEType, sessionEvent{Session: s.sessionID})
}
