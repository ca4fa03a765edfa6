// Package audit writes the append-only event trail for checkout, notification
// and staff actions. Emitting never fails and never panics into the caller.
package audit

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

type ActorType string

const (
	ActorUser  ActorType = "user"
	ActorGuest ActorType = "guest"
	ActorStaff ActorType = "staff"
)

type Actor struct {
	Type ActorType
	ID   *uint
}

func UserActor(id uint) Actor  { return Actor{Type: ActorUser, ID: &id} }
func StaffActor(id uint) Actor { return Actor{Type: ActorStaff, ID: &id} }
func GuestActor() Actor        { return Actor{Type: ActorGuest} }

// Event names.
const (
	CheckoutStarted          = "CHECKOUT_STARTED"
	CheckoutValidationFailed = "CHECKOUT_VALIDATION_FAILED"
	CheckoutValidated        = "CHECKOUT_VALIDATED"
	CheckoutEmptyCart        = "CHECKOUT_EMPTY_CART"
	CheckoutLineDropped      = "CHECKOUT_LINE_DROPPED"
	CheckoutFailed           = "CHECKOUT_FAILED"
	OrderCreated             = "ORDER_CREATED"
	ConfirmationSkipped      = "ORDER_CONFIRMATION_EMAIL_SKIPPED"
	ConfirmationAttempt      = "ORDER_CONFIRMATION_EMAIL_ATTEMPT"
	ConfirmationSent         = "ORDER_CONFIRMATION_EMAIL_SENT"
	ConfirmationFailed       = "ORDER_CONFIRMATION_EMAIL_FAILED"
	OrderStatusChanged       = "ORDER_STATUS_CHANGED"
	InquiryReceived          = "INQUIRY_RECEIVED"
	UserRegistered           = "USER_REGISTERED"
	LoginSucceeded           = "LOGIN_SUCCESS"
	LoginFailed              = "LOGIN_FAILED"
)

// Event is one audit record. Zero values mean "not set" and are omitted;
// order ids start at 1.
type Event struct {
	Name       string
	Actor      Actor
	RequestID  string
	OrderID    uint
	Serial     string
	EmailMask  string
	StatusFrom string
	StatusTo   string
	Extra      map[string]any
	At         time.Time
}

// Recorder persists events somewhere besides the log.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type Logger struct {
	log       *zap.Logger
	recorders []Recorder
	now       func() time.Time
}

func New(log *zap.Logger, recorders ...Recorder) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log, recorders: recorders, now: time.Now}
}

// Emit writes e as a single structured line and hands it to every recorder.
// A nil *Logger is a valid no-op sink.
func (l *Logger) Emit(ctx context.Context, e Event) {
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("audit emit panicked", zap.String("event", e.Name), zap.Any("panic", r))
		}
	}()

	if e.At.IsZero() {
		e.At = l.now()
	}
	l.log.Info(e.Name, Fields(e)...)

	for _, rec := range l.recorders {
		if err := rec.Record(ctx, e); err != nil {
			l.log.Warn("audit recorder failed", zap.String("event", e.Name), zap.Error(err))
		}
	}
}

// reservedFields are the keys Fields writes itself. Extra keys that collide
// with them are written with an "extra_" prefix.
var reservedFields = map[string]bool{
	"event": true, "actor_type": true, "actor_id": true, "request_id": true,
	"order_id": true, "serial": true, "status_from": true, "status_to": true,
	"email": true,
}

// Fields renders e as zap fields in a stable order.
func Fields(e Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event", e.Name),
		zap.String("actor_type", string(e.Actor.Type)),
	}
	if e.Actor.ID != nil {
		fields = append(fields, zap.Uint("actor_id", *e.Actor.ID))
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	if e.OrderID != 0 {
		fields = append(fields, zap.Uint("order_id", e.OrderID))
	}
	if e.Serial != "" {
		fields = append(fields, zap.String("serial", e.Serial))
	}
	if e.StatusFrom != "" {
		fields = append(fields, zap.String("status_from", e.StatusFrom))
	}
	if e.StatusTo != "" {
		fields = append(fields, zap.String("status_to", e.StatusTo))
	}
	if e.EmailMask != "" {
		fields = append(fields, zap.String("email", e.EmailMask))
	}
	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if reservedFields[k] {
			name = "extra_" + k
		}
		if _, taken := e.Extra[name]; taken && name != k {
			continue
		}
		fields = append(fields, zap.Any(name, e.Extra[k]))
	}
	return fields
}

// MaskEmail keeps the first character of the local part and the domain:
// "ab@example.com" -> "a***@example.com", "a@example.com" -> "*@example.com".
// Empty input or input without "@" gives "unknown".
func MaskEmail(email string) string {
	name, domain, ok := strings.Cut(email, "@")
	if email == "" || !ok {
		return "unknown"
	}
	if utf8.RuneCountInString(name) <= 1 {
		return "*@" + domain
	}
	first, _ := utf8.DecodeRuneInString(name)
	return string(first) + "***@" + domain
}
