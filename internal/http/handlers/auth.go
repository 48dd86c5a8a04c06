package handlers

import (
	"errors"
	"net/http"
	"strings"

	"portfolio/internal/db"
	"portfolio/internal/metrics"
	"portfolio/internal/security"
	"portfolio/internal/web"
)

const dashboardPath = "/admin/dashboard.php"

var loginNotices = map[string]string{
	security.ReasonTimeout:  "Tu sesión ha expirado. Inicia sesión nuevamente.",
	security.ReasonInactive: "Sesión cerrada por inactividad.",
	security.ReasonSecurity: "Sesión cerrada por motivos de seguridad. Inicia sesión nuevamente.",
}

type AuthHandler struct {
	db     *db.DB
	guard  *security.Guard
	render *web.Renderer
}

func NewAuthHandler(db *db.DB, guard *security.Guard, render *web.Renderer) *AuthHandler {
	return &AuthHandler{
		db:     db,
		guard:  guard,
		render: render,
	}
}

// Login shows the login form and checks posted credentials. Attempts are
// limited per session like any other admin action.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())
	if rc.IsAuthenticated() {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}

	view := web.LoginView{}
	for reason, notice := range loginNotices {
		if r.URL.Query().Get(reason) != "" {
			view.Notice = notice
		}
	}

	if r.Method != http.MethodPost {
		h.render.Render(w, http.StatusOK, "login", view)
		return
	}

	view.Username = strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if !rc.AllowLogin() {
		metrics.AdminLogins.WithLabelValues("limited").Inc()
		security.LogSecurityEvent(r, rc, "login_rate_limited", map[string]interface{}{"username": view.Username})
		view.Error = "Demasiados intentos de acceso. Intenta de nuevo más tarde."
		h.render.Render(w, http.StatusTooManyRequests, "login", view)
		return
	}

	if view.Username == "" || password == "" {
		view.Error = "Por favor, completa todos los campos"
		h.render.Render(w, http.StatusOK, "login", view)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), view.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		view.Error = "Error interno del servidor"
		h.render.Render(w, http.StatusInternalServerError, "login", view)
		return
	}

	if !security.CheckCredentials(user, password) {
		metrics.AdminLogins.WithLabelValues("failure").Inc()
		security.LogSecurityEvent(r, rc, "login_failed", map[string]interface{}{"username": view.Username})
		view.Error = "Usuario o contraseña incorrectos"
		h.render.Render(w, http.StatusOK, "login", view)
		return
	}

	h.guard.Login(rc, user)
	metrics.AdminLogins.WithLabelValues("success").Inc()
	security.LogAdminAction(r, rc, "login", nil)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	rc := security.FromContext(r.Context())
	if rc.IsAuthenticated() {
		security.LogAdminAction(r, rc, "logout", nil)
	}
	h.guard.Destroy(rc)
	http.Redirect(w, r, h.guard.LoginURL(security.ReasonNone), http.StatusSeeOther)
}
