package mail

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"

	"portfolio/internal/config"
	"portfolio/internal/models"
)

// Notifier tells the site owner about a new contact message.
type Notifier interface {
	Notify(ctx context.Context, msg models.Message) error
}

// Noop is used when mail is disabled.
type Noop struct{}

func (Noop) Notify(context.Context, models.Message) error { return nil }

type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewSMTPNotifier(cfg config.Mail) *SMTPNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	d.Timeout = 10 * time.Second
	return &SMTPNotifier{dialer: d, from: cfg.From, to: cfg.Admin}
}

// New returns the notifier configured by cfg.
func New(cfg config.Mail) Notifier {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewSMTPNotifier(cfg)
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg models.Message) error {
	m := n.build(msg)

	errc := make(chan error, 1)
	go func() { errc <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-errc:
		if err != nil {
			log.Printf("Failed to send contact notification: %v", err)
			return fmt.Errorf("send notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *SMTPNotifier) build(msg models.Message) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", n.from, "Formulario de Contacto")
	m.SetHeader("To", n.to)
	m.SetAddressHeader("Reply-To", msg.Email, msg.Name)
	m.SetHeader("Subject", "Nuevo mensaje de contacto de "+msg.Name)
	m.SetBody("text/html", notificationBody(msg))
	return m
}

func notificationBody(msg models.Message) string {
	var b strings.Builder
	b.WriteString("Has recibido un nuevo mensaje:<br><br>")
	b.WriteString("<strong>Nombre:</strong> " + html.EscapeString(msg.Name) + "<br>")
	b.WriteString("<strong>Email:</strong> " + html.EscapeString(msg.Email) + "<br>")
	b.WriteString("<strong>Mensaje:</strong><br>")
	b.WriteString(strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>\n"))
	return b.String()
}
