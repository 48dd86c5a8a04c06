package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"portfolio/internal/db"
	"portfolio/internal/metrics"
	"portfolio/internal/models"
	"portfolio/internal/security"
	"portfolio/internal/web"
)

const recentMessages = 5

type AdminHandler struct {
	db      *db.DB
	render  *web.Renderer
	perPage int
}

func NewAdminHandler(db *db.DB, render *web.Renderer, perPage int) *AdminHandler {
	if perPage <= 0 {
		perPage = 10
	}
	return &AdminHandler{db: db, render: render, perPage: perPage}
}

// Dashboard shows content counts and the latest messages. Query failures
// degrade to zeros.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())
	ctx := r.Context()

	// The db layer logs failures and returns zero counts.
	stats := models.DashboardStats{Recent: []models.Message{}}
	stats.Projects, _ = h.db.CountProjects(ctx)
	stats.Messages, _ = h.db.CountMessages(ctx)
	if recent, err := h.db.RecentMessages(ctx, recentMessages); err == nil {
		stats.Recent = recent
	}

	h.render.Render(w, http.StatusOK, "dashboard", web.DashboardView{
		AdminPage: adminPage(rc, "Dashboard", "dashboard"),
		Stats:     stats,
	})
}

// Messages is the paginated inbox. POST action=delete removes one message.
func (h *AdminHandler) Messages(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())
	ctx := r.Context()

	var flash *web.Flash
	if r.Method == http.MethodPost && r.PostFormValue("action") == "delete" {
		flash = h.deleteMessage(r, rc)
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	view := web.MessagesView{AdminPage: adminPage(rc, "Gestión de Mensajes", "messages")}
	view.Flash = flash

	total, err := h.db.CountMessages(ctx)
	var items []models.Message
	if err == nil {
		items, err = h.db.ListMessages(ctx, h.perPage, models.Offset(page, h.perPage))
	}
	if err != nil {
		total, items = 0, nil
		view.Flash = web.Error("Error al cargar los mensajes")
	}
	view.Page = models.NewMessagePage(items, page, h.perPage, total)

	h.render.Render(w, http.StatusOK, "messages", view)
}

func (h *AdminHandler) deleteMessage(r *http.Request, rc *security.RequestContext) *web.Flash {
	if flash := checkMutation(r, rc, "message_delete"); flash != nil {
		return flash
	}

	id, ok := security.ParseID(r.PostFormValue("id"))
	if !ok {
		return web.Error("ID de mensaje inválido")
	}

	if err := h.db.DeleteMessage(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return web.Error("Mensaje no encontrado")
		}
		log.Printf("Error deleting message: %v", err)
		return web.Error("Error al eliminar el mensaje")
	}

	metrics.AdminActions.WithLabelValues("message_delete").Inc()
	security.LogAdminAction(r, rc, "message_delete", map[string]interface{}{"message_id": id})
	return web.Success("Mensaje eliminado exitosamente")
}
