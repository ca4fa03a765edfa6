// Package notify sends the order confirmation email once a checkout has
// committed.
package notify

import (
	"context"

	"storefront/audit"
	"storefront/events"

	"go.uber.org/zap"
)

type Notifier struct {
	mailer  Mailer
	audit   *audit.Logger
	log     *zap.Logger
	siteURL string
}

func New(mailer Mailer, auditLog *audit.Logger, log *zap.Logger, siteURL string) *Notifier {
	return &Notifier{mailer: mailer, audit: auditLog, log: log, siteURL: siteURL}
}

// Handle consumes CheckoutCompleted. Delivery problems are logged and
// audited, never returned, so they cannot affect the committed order.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	completed, ok := e.(events.CheckoutCompleted)
	if !ok {
		return nil
	}
	o := &completed.Order

	actor := audit.GuestActor()
	if o.UserID != nil {
		actor = audit.UserActor(*o.UserID)
	}
	base := audit.Event{
		Actor:     actor,
		RequestID: completed.RequestID,
		OrderID:   o.ID,
		Serial:    o.Serial(),
		EmailMask: audit.MaskEmail(o.Email()),
	}
	emit := func(name string) {
		ev := base
		ev.Name = name
		n.audit.Emit(ctx, ev)
	}

	if o.Email() == "" {
		emit(audit.ConfirmationSkipped)
		return nil
	}

	msg, err := Compose(o, n.siteURL)
	if err != nil {
		n.log.Error("Failed to compose order confirmation", zap.Uint("order_id", o.ID), zap.Error(err))
		emit(audit.ConfirmationFailed)
		return nil
	}

	emit(audit.ConfirmationAttempt)
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.log.Error("Failed to send order confirmation",
			zap.Uint("order_id", o.ID),
			zap.String("serial", o.Serial()),
			zap.String("request_id", completed.RequestID),
			zap.String("email", base.EmailMask),
			zap.Error(err),
		)
		emit(audit.ConfirmationFailed)
		return nil
	}

	emit(audit.ConfirmationSent)
	return nil
}
