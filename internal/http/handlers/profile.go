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

type ProfileHandler struct {
	db        *db.DB
	images    *security.ImageStore
	render    *web.Renderer
	maxUpload int64
}

func NewProfileHandler(db *db.DB, images *security.ImageStore, render *web.Renderer) *ProfileHandler {
	return &ProfileHandler{db: db, images: images, render: render, maxUpload: images.Policy.MaxBytes}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())

	var flash *web.Flash
	if r.Method == http.MethodPost {
		flash = h.update(w, r, rc)
	}

	view := web.ProfileView{AdminPage: adminPage(rc, "Gestión de Perfil", "profile")}
	view.Flash = flash

	view.Profile = models.Profile{Photo: models.DefaultProfilePhoto}
	if profile, err := h.db.GetProfile(r.Context()); err == nil {
		view.Profile = *profile
	}

	h.render.Render(w, http.StatusOK, "profile", view)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, rc *security.RequestContext) *web.Flash {
	if err := parseUploadForm(w, r, h.maxUpload); err != nil {
		return web.Error(formError(err, h.maxUpload))
	}
	if flash := checkMutation(r, rc, "profile_update"); flash != nil {
		return flash
	}

	name := security.Sanitize(security.KindString, r.PostFormValue("name"))
	description := security.Sanitize(security.KindString, r.PostFormValue("description"))
	if name == "" || description == "" {
		return web.Error(msgRequired)
	}

	oldPhoto := models.DefaultProfilePhoto
	current, err := h.db.GetProfile(r.Context())
	switch {
	case err == nil:
		oldPhoto = current.Photo
	case !errors.Is(err, db.ErrNotFound):
		return web.Error("Error al actualizar el perfil")
	}

	profile := &models.Profile{Name: name, Description: description, Photo: oldPhoto}
	if fh := uploadedFile(r, "photo"); fh != nil {
		path, msg := storeUpload(h.images, fh, "profile")
		if msg != "" {
			return web.Error(msg)
		}
		profile.Photo = path
	}

	if err := h.db.SaveProfile(r.Context(), profile); err != nil {
		log.Printf("Error updating profile: %v", err)
		if profile.Photo != oldPhoto {
			discardImage(h.images, profile.Photo)
		}
		return web.Error("Error al actualizar el perfil")
	}
	if profile.Photo != oldPhoto {
		discardImage(h.images, oldPhoto)
	}

	metrics.AdminActions.WithLabelValues("profile_update").Inc()
	security.LogAdminAction(r, rc, "profile_update", nil)
	return web.Success("Perfil actualizado exitosamente")
}
