package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"portfolio/internal/security"
	"portfolio/internal/web"
)

// Flash messages shared by the admin pages.
const (
	msgInvalidToken = "Token de seguridad inválido"
	msgTooMany      = "Demasiadas acciones. Intenta de nuevo más tarde."
	msgRequired     = "Todos los campos son obligatorios"
)

type jsonResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, resp jsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func adminPage(rc *security.RequestContext, title, active string) web.AdminPage {
	return web.AdminPage{
		Title:    title,
		Active:   active,
		Username: rc.Username,
		CSRF:     rc.FormToken(),
	}
}

// checkMutation applies the CSRF and per-session rate checks every admin POST
// goes through. It returns the flash to show when the request is refused.
func checkMutation(r *http.Request, rc *security.RequestContext, action string) *web.Flash {
	if !rc.ValidCSRF(r.PostFormValue("csrf_token")) {
		security.LogSecurityEvent(r, rc, "csrf_token_invalid", map[string]interface{}{"action": action})
		return web.Error(msgInvalidToken)
	}
	if !rc.Allow(action) {
		security.LogSecurityEvent(r, rc, "admin_rate_limited", map[string]interface{}{"action": action})
		return web.Error(msgTooMany)
	}
	return nil
}
