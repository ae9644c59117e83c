package mail

import (
	"context"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender delivers through the Mailgun HTTP API.
type MailgunSender struct {
	mg *mailgun.MailgunImpl
}

// NewMailgunSender builds a sender for domain. An empty apiBase keeps the
// library default (US region).
func NewMailgunSender(domain, apiKey, apiBase string) *MailgunSender {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &MailgunSender{mg: mg}
}

func (s *MailgunSender) Send(ctx context.Context, m Message) error {
	message := mailgun.NewMessage(m.From, m.Subject, m.Text, m.To)
	if m.HTML != "" {
		message.SetHtml(m.HTML)
	}

	_, _, err := s.mg.Send(ctx, message)
	return err
}
