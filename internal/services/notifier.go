package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Notifier is the fire-and-forget notification sink. Delivery failures are
// the collaborator's problem; they are logged and never fail a transition.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// the email service in development and tests.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	n.log.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("notification dispatched")
	return nil
}

// dispatchNotification sends without blocking the caller. The parent request
// context may be gone by the time delivery happens, so a fresh bounded
// context is used.
func dispatchNotification(notifier Notifier, log zerolog.Logger, recipient, subject, body string) {
	if notifier == nil || recipient == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, recipient, subject, body); err != nil {
			log.Warn().Err(err).Str("recipient", recipient).Str("subject", subject).
				Msg("notification delivery failed")
		}
	}()
}
