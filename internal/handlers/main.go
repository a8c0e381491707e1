package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"
	vilawweb "github.com/vilaw/vilaw-web"
	"github.com/vilaw/vilaw-web/internal/models"
)

// Backend answers a question with a stream of text. The returned body is read incrementally while the
// answer is produced; the caller closes it.
type Backend interface {
	Name() string
	Stream(ctx context.Context, question string) (io.ReadCloser, error)
}

// Journal records the outcome of every streamed answer. Records never contain message text.
type Journal interface {
	AddSession(ctx context.Context, rec models.SessionRecord) (string, error)
	UpdateSession(ctx context.Context, key string, rec models.SessionRecord) error
	Sessions(ctx context.Context, limit int) ([]models.SessionRecord, error)
}

// Options tune how Main presents answers.
type Options struct {
	Labels models.Labels
	// ErrorMessage replaces the answer of a session whose connection failed.
	ErrorMessage string
	// CancelStale makes a new question cancel the answer still streaming for the same page. When false,
	// answers of one page stream side by side, each into its own region.
	CancelStale bool
}

// DefaultErrorMessage is shown when the backend cannot be reached or the answer breaks off.
const DefaultErrorMessage = "Lỗi kết nối backend!"

// Main handles the chat page: it renders the log, starts a streaming session for every question and
// pushes each session's text to the page over server-sent events.
type Main struct {
	sseSrv    *sse.Server
	pub       publisher
	templates *template.Template

	backend Backend
	journal Journal

	labels       models.Labels
	errorMessage string
	sessions     *registry

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance with the provided Backend and Journal. The journal may be nil,
// in which case sessions are not recorded. It parses the HTML templates from the embedded filesystem
// and configures the SSE server so that every page subscribes to its own client topic.
func NewMain(backend Backend, journal Journal, opts Options, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		vilawweb.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	if opts.Labels == (models.Labels{}) {
		opts.Labels = models.DefaultLabels
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = DefaultErrorMessage
	}

	sseSrv := &sse.Server{
		OnSession: func(s *sse.Session) (sse.Subscription, bool) {
			topics := []string{sse.DefaultTopic}

			// Answers are published to the topic of the page that asked
			if clientID := s.Req.URL.Query().Get("client_id"); clientID != "" {
				topics = append(topics, clientTopic(clientID))
			}

			return sse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      topics,
			}, true
		},
	}

	return Main{
		sseSrv:       sseSrv,
		pub:          ssePublisher{srv: sseSrv},
		templates:    tmpl,
		backend:      backend,
		journal:      journal,
		labels:       opts.Labels,
		errorMessage: opts.ErrorMessage,
		sessions:     newRegistry(opts.CancelStale),
		logger:       logger.With(slog.String("module", "handlers")),
	}, nil
}

// clientTopic is the topic only the page with clientID subscribes to.
func clientTopic(clientID string) string {
	return fmt.Sprintf("client-%s", clientID)
}

// HandleSSE subscribes a page to the answers streamed for it.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown cancels the sessions still streaming, then gracefully terminates the SSE server. It
// broadcasts a close message to all connected clients and waits up to 5 seconds for connections to
// terminate. After the timeout, any remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	if n := m.sessions.shutdown(); n > 0 {
		m.logger.Info("Canceled streaming sessions", slog.Int("count", n))
	}

	e := &sse.Message{Type: sse.Type("closeChat")}
	// SSE events must carry data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
