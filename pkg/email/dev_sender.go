package email

import (
	"context"
	"log/slog"
	"sync"
)

// DevSender logs messages instead of sending them and keeps them in memory
// for inspection. It is used when no Postmark token is configured.
type DevSender struct {
	log *slog.Logger

	mu   sync.Mutex
	sent []SendEmailParams
}

func NewDevSender(log *slog.Logger) *DevSender {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DevSender{log: log}
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	d.sent = append(d.sent, params)
	d.mu.Unlock()

	d.log.InfoContext(ctx, "email not sent, dev sender in use",
		slog.String("to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}

// Sent returns a copy of the messages accepted so far.
func (d *DevSender) Sent() []SendEmailParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SendEmailParams(nil), d.sent...)
}
