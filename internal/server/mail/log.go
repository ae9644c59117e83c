package mail

import (
	"context"

	"github.com/dmitrijs2005/hourbank/internal/logging"
)

// LogNotifier writes PINs and reset links to the log instead of sending mail.
// It is meant for local development only.
type LogNotifier struct {
	log          logging.Logger
	resetURLBase string
}

func NewLogNotifier(log logging.Logger, resetURLBase string) *LogNotifier {
	return &LogNotifier{log: log.With("module", "mail"), resetURLBase: resetURLBase}
}

func (n *LogNotifier) Delivers() bool {
	return false
}

func (n *LogNotifier) SendPin(ctx context.Context, email, pin, name string) error {
	n.log.Info(ctx, "fake email: pin", "to", email, "name", name, "pin", pin)
	return nil
}

func (n *LogNotifier) SendReset(ctx context.Context, email, token, name string) error {
	n.log.Info(ctx, "fake email: password reset", "to", email, "name", name, "link", ResetLink(n.resetURLBase, token))
	return nil
}
