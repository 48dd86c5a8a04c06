package contact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"portfolio/internal/mail"
	"portfolio/internal/models"
	"portfolio/internal/security"
)

// ErrSpam is returned when the honeypot field was filled in.
var ErrSpam = errors.New("honeypot field filled")

type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
}

// Service runs a contact submission through spam, validation and rate checks
// before storing it.
type Service struct {
	messages MessageStore
	limiter  *Limiter
	notifier mail.Notifier

	notifyTimeout time.Duration
}

func NewService(messages MessageStore, limiter *Limiter, notifier mail.Notifier) *Service {
	if notifier == nil {
		notifier = mail.Noop{}
	}
	return &Service{
		messages:      messages,
		limiter:       limiter,
		notifier:      notifier,
		notifyTimeout: 15 * time.Second,
	}
}

// Submit accepts form from ip. It returns ErrSpam, ValidationErrors, a
// *RateLimitError or a storage error; nothing is written unless all checks
// pass. Notification failures are logged only.
func (s *Service) Submit(ctx context.Context, ip string, form Form) (*models.Message, error) {
	form.Normalize()

	if form.Website != "" {
		return nil, ErrSpam
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := s.limiter.Check(ctx, ip); err != nil {
		return nil, err
	}

	msg := &models.Message{
		Name:    security.Sanitize(security.KindString, form.Name),
		Email:   security.Sanitize(security.KindEmail, form.Email),
		Message: security.Sanitize(security.KindString, form.Message),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	s.limiter.Record(ctx, ip)

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(nctx, models.Message{
		Name:    form.Name,
		Email:   form.Email,
		Message: form.Message,
	}); err != nil {
		log.Printf("Contact notification not sent: %v", err)
	}

	log.Printf("Contact form submission: %s (%s)", form.Name, form.Email)
	return msg, nil
}
