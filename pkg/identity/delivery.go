package identity

import (
	"context"
	"log/slog"
)

// Method selects the passcode delivery channel.
type Method string

const (
	MethodEmail Method = "email"
	MethodSMS   Method = "sms"
)

// Delivery dispatches a passcode to a customer contact. Implementations are
// external collaborators (email/SMS providers); failures are surfaced to the
// caller as warnings, never silently dropped.
type Delivery interface {
	SendCode(ctx context.Context, method Method, contact, code string) error
}

// LogDelivery is a development Delivery that writes the dispatch to the
// structured log instead of sending anything. The code itself is never
// logged.
type LogDelivery struct{}

func (LogDelivery) SendCode(ctx context.Context, method Method, contact, code string) error {
	slog.InfoContext(ctx, "identity: passcode dispatched",
		"method", string(method),
		"contact", contact,
	)
	return nil
}
