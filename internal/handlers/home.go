package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vilaw/vilaw-web/internal/models"
)

type homePageData struct {
	ClientID string
	Labels   models.Labels
}

// HandleHome renders the chat page. Every page load gets its own client ID, which ties the page's event
// stream to the questions it sends.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := homePageData{
		ClientID: uuid.New().String(),
		Labels:   m.labels,
	}

	err := m.templates.ExecuteTemplate(w, "home.html", data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
