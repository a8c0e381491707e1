package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Sink receives decoded text in the order it arrived on the stream.
type Sink interface {
	Append(text string) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(text string) error

// Append calls f(text).
func (f SinkFunc) Append(text string) error {
	return f(text)
}

// Opener issues the request of a session and returns the body to consume.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// ErrNoBody is wrapped in a ConnectionError when a response carries nothing to read.
var ErrNoBody = errors.New("response has no body")

// ConnectionError reports that the backend could not be reached or that reading its stream failed.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle is a session that has not started.
	StateIdle State = iota
	// StateAwaitingFirstChunk is a started session that has not read any bytes yet.
	StateAwaitingFirstChunk
	// StateStreaming is a session that has read at least one chunk.
	StateStreaming
	// StateCompleted is a session whose stream ended normally.
	StateCompleted
	// StateFailed is a session that ended with an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting_first_chunk"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

const chunkSize = 32 * 1024

// Session is one streamed response, from the request until the stream completes or fails. A Session
// runs once; a new response needs a new Session.
//
// The read loop of a session is sequential. The accessors may be called from other goroutines while
// it runs.
type Session struct {
	ID string

	mu    sync.Mutex
	state State
	text  strings.Builder
	bytes int
	err   error

	dec *Decoder
}

// NewSession returns an idle session.
func NewSession(id string) *Session {
	return &Session{
		ID:  id,
		dec: NewDecoder(),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns everything appended to the sink so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Bytes returns the number of raw bytes read from the stream.
func (s *Session) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Runes returns the number of characters appended to the sink.
func (s *Session) Runes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utf8.RuneCountInString(s.text.String())
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run opens the stream with open and consumes it into sink. The body is closed before Run returns.
// A failing opener, or one returning no body, fails the session with a ConnectionError.
func (s *Session) Run(ctx context.Context, open Opener, sink Sink) error {
	if err := s.begin(); err != nil {
		return err
	}

	body, err := open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.fail(ctx.Err())
		}
		return s.fail(&ConnectionError{Err: err})
	}
	if body == nil {
		return s.fail(&ConnectionError{Err: ErrNoBody})
	}
	defer body.Close()

	return s.consume(ctx, body, sink)
}

// Consume reads body until it ends, appending decoded text to sink after every chunk. It returns nil
// once the stream is exhausted, a ConnectionError if reading fails, the context error if ctx is done,
// or the error of a failing Append.
func (s *Session) Consume(ctx context.Context, body io.Reader, sink Sink) error {
	if err := s.begin(); err != nil {
		return err
	}
	if body == nil {
		return s.fail(&ConnectionError{Err: ErrNoBody})
	}
	return s.consume(ctx, body, sink)
}

// Consume runs a fresh session over body.
func Consume(ctx context.Context, body io.Reader, sink Sink) error {
	return NewSession("").Consume(ctx, body, sink)
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("session %q already %s", s.ID, s.state)
	}
	s.state = StateAwaitingFirstChunk
	return nil
}

func (s *Session) consume(ctx context.Context, body io.Reader, sink Sink) error {
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		n, err := body.Read(buf)
		if n > 0 {
			if aerr := s.append(s.dec.Decode(buf[:n]), n, sink); aerr != nil {
				return s.fail(aerr)
			}
		}

		if errors.Is(err, io.EOF) {
			if aerr := s.append(s.dec.Flush(), 0, sink); aerr != nil {
				return s.fail(aerr)
			}
			s.complete()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return s.fail(ctx.Err())
			}
			return s.fail(&ConnectionError{Err: err})
		}
	}
}

func (s *Session) append(text string, n int, sink Sink) error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return nil
	}
	s.bytes += n
	if n > 0 {
		s.state = StateStreaming
	}
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	s.text.WriteString(text)
	s.mu.Unlock()

	if err := sink.Append(text); err != nil {
		return fmt.Errorf("failed to append to sink: %w", err)
	}
	return nil
}

func (s *Session) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateCompleted
	}
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateFailed
		s.err = err
	}
	return err
}
