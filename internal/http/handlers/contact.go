package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"portfolio/internal/contact"
	"portfolio/internal/metrics"
	"portfolio/internal/security"
)

const maxContactBody = 64 << 10

type ContactHandler struct {
	svc *contact.Service
}

func NewContactHandler(svc *contact.Service) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Submit accepts the public contact form and answers {success, message}.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, jsonResponse{Message: "Método no permitido"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	form := contact.Form{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
		Website: r.PostFormValue("website"),
	}

	_, err := h.svc.Submit(r.Context(), security.ClientIP(r), form)

	var verrs contact.ValidationErrors
	var limited *contact.RateLimitError
	switch {
	case err == nil:
		metrics.ContactSubmissions.WithLabelValues("accepted").Inc()
		writeJSON(w, http.StatusOK, jsonResponse{Success: true, Message: "Mensaje enviado correctamente"})
	case errors.Is(err, contact.ErrSpam):
		metrics.ContactSubmissions.WithLabelValues("spam").Inc()
		writeJSON(w, http.StatusOK, jsonResponse{Message: "Mensaje detectado como spam"})
	case errors.As(err, &verrs):
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusOK, jsonResponse{Message: verrs.Error()})
	case errors.As(err, &limited):
		metrics.ContactSubmissions.WithLabelValues("limited").Inc()
		writeJSON(w, http.StatusTooManyRequests, jsonResponse{
			Message: fmt.Sprintf("Demasiados mensajes enviados. Intenta de nuevo en %d minutos.", limited.WaitMinutes),
		})
	default:
		metrics.ContactSubmissions.WithLabelValues("error").Inc()
		log.Printf("Contact form database error: %v", err)
		writeJSON(w, http.StatusInternalServerError, jsonResponse{Message: "Error interno del servidor. Inténtalo más tarde."})
	}
}
