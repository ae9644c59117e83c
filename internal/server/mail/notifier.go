// Package mail delivers PIN codes and password reset links.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
)

// Notifier is what the auth workflow needs from outbound mail.
type Notifier interface {
	SendPin(ctx context.Context, email, pin, name string) error
	SendReset(ctx context.Context, email, token, name string) error
	// Delivers reports whether messages actually leave the process.
	Delivers() bool
}

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender is a transport: Mailgun, SMTP.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

const (
	pinSubject   = "Código de Verificación - Banco de Horas"
	resetSubject = "Recuperación de Contraseña - Banco de Horas"
)

// Options configures a Mailer.
type Options struct {
	From          string
	ResetURLBase  string
	PinTTL        time.Duration
	ResetTokenTTL time.Duration
	// Timeout bounds a single send on top of the caller's deadline.
	Timeout time.Duration
}

// Mailer renders the hour bank messages and hands them to a Sender.
type Mailer struct {
	sender Sender
	opts   Options
	bodies *bodies
	now    func() time.Time
}

func NewMailer(sender Sender, opts Options) (*Mailer, error) {
	b, err := parseBodies()
	if err != nil {
		return nil, err
	}
	return &Mailer{sender: sender, opts: opts, bodies: b, now: time.Now}, nil
}

func (m *Mailer) Delivers() bool {
	return true
}

func (m *Mailer) SendPin(ctx context.Context, email, pin, name string) error {
	minutes := int(m.opts.PinTTL.Minutes())
	html, err := render(m.bodies.pin, pinData{Name: name, Pin: pin, Minutes: minutes, Year: m.now().Year()})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Tu código de verificación del Banco de Horas es %s. Expira en %d minutos.", pin, minutes)
	return m.send(ctx, Message{From: m.opts.From, To: email, Subject: pinSubject, HTML: html, Text: text})
}

func (m *Mailer) SendReset(ctx context.Context, email, token, name string) error {
	link := ResetLink(m.opts.ResetURLBase, token)
	minutes := int(m.opts.ResetTokenTTL.Minutes())
	html, err := render(m.bodies.reset, resetData{Name: name, Link: link, Minutes: minutes, Year: m.now().Year()})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Para restablecer tu contraseña del Banco de Horas abre este enlace: %s", link)
	return m.send(ctx, Message{From: m.opts.From, To: email, Subject: resetSubject, HTML: html, Text: text})
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrMailDelivery, err)
	}
	return nil
}

// ResetLink appends the token to base as the "token" query parameter.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
