package handlers

import (
	"errors"
	"log"
	"net/http"

	"portfolio/internal/db"
	"portfolio/internal/models"
	"portfolio/internal/web"
)

type PublicHandler struct {
	db     *db.DB
	render *web.Renderer
}

func NewPublicHandler(db *db.DB, render *web.Renderer) *PublicHandler {
	return &PublicHandler{db: db, render: render}
}

// Index renders the portfolio page. A missing profile falls back to the
// defaults and a failed project query shows an empty list.
func (h *PublicHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := web.IndexView{Profile: models.DefaultProfile(), Projects: []models.Project{}}

	profile, err := h.db.GetProfile(r.Context())
	switch {
	case err == nil:
		view.Profile = *profile
	case !errors.Is(err, db.ErrNotFound):
		log.Printf("Failed to load profile: %v", err)
	}

	if projects, err := h.db.ListProjects(r.Context()); err == nil {
		view.Projects = projects
	}

	h.render.Render(w, http.StatusOK, "index", view)
}
