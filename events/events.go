// Package events fans domain events out to subscribers after the state they
// describe has been committed.
package events

import (
	"context"

	"storefront/audit"
	"storefront/models"
)

const (
	CheckoutCompletedName = "checkout.completed"
	UserRegisteredName    = "user.registered"
)

type Event interface {
	Name() string
}

// CheckoutCompleted is published once per committed order. Order carries its
// snapshot items.
type CheckoutCompleted struct {
	Order     models.Order
	Actor     audit.Actor
	RequestID string
}

func (CheckoutCompleted) Name() string { return CheckoutCompletedName }

// UserRegistered is published after a new account has been stored.
type UserRegistered struct {
	User      models.User
	RequestID string
}

func (UserRegistered) Name() string { return UserRegisteredName }

type Handler interface {
	Handle(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }
