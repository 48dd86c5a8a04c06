package handlers

import (
	"errors"
	"log"
	"net/http"

	"portfolio/internal/db"
	"portfolio/internal/metrics"
	"portfolio/internal/models"
	"portfolio/internal/security"
	"portfolio/internal/web"
)

type ProjectsHandler struct {
	db        *db.DB
	images    *security.ImageStore
	render    *web.Renderer
	maxUpload int64
}

func NewProjectsHandler(db *db.DB, images *security.ImageStore, render *web.Renderer) *ProjectsHandler {
	return &ProjectsHandler{db: db, images: images, render: render, maxUpload: images.Policy.MaxBytes}
}

// Projects lists projects with the create or edit form. POST handles
// action=create|update|delete and re-renders the page with the outcome.
func (h *ProjectsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())

	var flash *web.Flash
	if r.Method == http.MethodPost {
		flash = h.mutate(w, r, rc)
	}

	view := web.ProjectsView{AdminPage: adminPage(rc, "Gestión de Proyectos", "projects")}
	view.Flash = flash

	projects, err := h.db.ListProjects(r.Context())
	if err != nil {
		projects = []models.Project{}
		view.Flash = web.Error("Error al cargar los proyectos")
	}
	view.Projects = projects

	if id, ok := security.ParseID(r.URL.Query().Get("edit")); ok {
		project, err := h.db.GetProject(r.Context(), id)
		switch {
		case err == nil:
			view.Edit = project
		case !errors.Is(err, db.ErrNotFound):
			view.Flash = web.Error("Error al cargar el proyecto")
		}
	}

	h.render.Render(w, http.StatusOK, "projects", view)
}

func (h *ProjectsHandler) mutate(w http.ResponseWriter, r *http.Request, rc *security.RequestContext) *web.Flash {
	if err := parseUploadForm(w, r, h.maxUpload); err != nil {
		return web.Error(formError(err, h.maxUpload))
	}

	action := r.PostFormValue("action")
	ops := map[string]func(*http.Request, *security.RequestContext) *web.Flash{
		"create": h.create,
		"update": h.update,
		"delete": h.delete,
	}
	op, ok := ops[action]
	if !ok {
		return web.Error("Acción no válida")
	}

	if flash := checkMutation(r, rc, "project_"+action); flash != nil {
		return flash
	}
	return op(r, rc)
}

type projectInput struct {
	title, description, link string
}

func readProjectInput(r *http.Request) (projectInput, *web.Flash) {
	in := projectInput{
		title:       security.Sanitize(security.KindString, r.PostFormValue("title")),
		description: security.Sanitize(security.KindString, r.PostFormValue("description")),
		link:        security.Sanitize(security.KindURL, r.PostFormValue("link")),
	}
	if in.title == "" || in.description == "" || in.link == "" {
		return in, web.Error(msgRequired)
	}
	if !security.ValidURL(in.link) {
		return in, web.Error("La URL del proyecto no es válida")
	}
	return in, nil
}

func (h *ProjectsHandler) create(r *http.Request, rc *security.RequestContext) *web.Flash {
	in, flash := readProjectInput(r)
	if flash != nil {
		return flash
	}

	image := models.DefaultProjectImage
	if fh := uploadedFile(r, "image"); fh != nil {
		path, msg := storeUpload(h.images, fh, "project")
		if msg != "" {
			return web.Error(msg)
		}
		image = path
	}

	project := &models.Project{Title: in.title, Description: in.description, Link: in.link, Image: image}
	if err := h.db.CreateProject(r.Context(), project); err != nil {
		log.Printf("Error creating project: %v", err)
		discardImage(h.images, image)
		return web.Error("Error al crear el proyecto")
	}

	metrics.AdminActions.WithLabelValues("project_create").Inc()
	security.LogAdminAction(r, rc, "project_create", map[string]interface{}{"project_id": project.ID})
	return web.Success("Proyecto creado exitosamente")
}

func (h *ProjectsHandler) update(r *http.Request, rc *security.RequestContext) *web.Flash {
	id, ok := security.ParseID(r.PostFormValue("id"))
	in, flash := readProjectInput(r)
	if !ok {
		return web.Error(msgRequired)
	}
	if flash != nil {
		return flash
	}

	current, err := h.db.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return web.Error("Proyecto no encontrado")
	}
	if err != nil {
		return web.Error("Error al actualizar el proyecto")
	}

	project := *current
	project.Title, project.Description, project.Link = in.title, in.description, in.link

	if fh := uploadedFile(r, "image"); fh != nil {
		path, msg := storeUpload(h.images, fh, "project")
		if msg != "" {
			return web.Error(msg)
		}
		project.Image = path
	}

	if err := h.db.UpdateProject(r.Context(), &project); err != nil {
		if project.Image != current.Image {
			discardImage(h.images, project.Image)
		}
		if errors.Is(err, db.ErrNotFound) {
			return web.Error("Proyecto no encontrado")
		}
		log.Printf("Error updating project: %v", err)
		return web.Error("Error al actualizar el proyecto")
	}

	if project.Image != current.Image {
		discardImage(h.images, current.Image)
	}

	metrics.AdminActions.WithLabelValues("project_update").Inc()
	security.LogAdminAction(r, rc, "project_update", map[string]interface{}{"project_id": id})
	return web.Success("Proyecto actualizado exitosamente")
}

func (h *ProjectsHandler) delete(r *http.Request, rc *security.RequestContext) *web.Flash {
	id, ok := security.ParseID(r.PostFormValue("id"))
	if !ok {
		return web.Error("ID de proyecto inválido")
	}

	project, err := h.db.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return web.Error("Proyecto no encontrado")
	}
	if err != nil {
		return web.Error("Error al eliminar el proyecto")
	}

	if err := h.db.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return web.Error("Proyecto no encontrado")
		}
		log.Printf("Error deleting project: %v", err)
		return web.Error("Error al eliminar el proyecto")
	}
	discardImage(h.images, project.Image)

	metrics.AdminActions.WithLabelValues("project_delete").Inc()
	security.LogAdminAction(r, rc, "project_delete", map[string]interface{}{"project_id": id})
	return web.Success("Proyecto eliminado exitosamente")
}
