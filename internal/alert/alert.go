// Package alert notifies operators when a job keeps failing. Local
// runs log instead of sending.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier logs alerts instead of sending them. Used in ENV=local.
type LogNotifier struct {
	logger *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.logger.Warn("alert (local dev)", "subject", subject, "body", body)
	return nil
}

// ResendNotifier emails alerts via the Resend API. Used in staging and production.
type ResendNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func (n *ResendNotifier) Notify(ctx context.Context, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: subject,
		Html:    body,
	}
	_, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// NewNotifier returns a LogNotifier for ENV=local, ResendNotifier otherwise.
func NewNotifier(env, apiKey, from, to string, logger *slog.Logger) Notifier {
	if env == "local" {
		return &LogNotifier{logger: logger}
	}
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}
