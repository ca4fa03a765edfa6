// Package checkout turns a cart into an order. Account and guest checkouts
// share one protocol: validate, write the order and its snapshot lines,
// empty the cart, all in one transaction, then announce the order.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"storefront/audit"
	"storefront/cart"
	"storefront/catalog"
	"storefront/dtos"
	"storefront/events"
	"storefront/models"
	"storefront/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	db        *gorm.DB
	publisher Publisher
	audit     *audit.Logger
	log       *zap.Logger
	validate  *validator.Validate
}

func NewService(db *gorm.DB, publisher Publisher, auditLog *audit.Logger, log *zap.Logger) *Service {
	v := validator.New()
	utils.SetupValidator(v)
	return &Service{db: db, publisher: publisher, audit: auditLog, log: log, validate: v}
}

type AccountInput struct {
	User *models.User
	Cart cart.Cart
	Form dtos.CheckoutForm
	// BindError is the error from decoding the request body, if any. It is
	// reported as a non-field error once the cart has been checked.
	BindError error
	RequestID string
}

type GuestInput struct {
	Cart      cart.Cart
	Form      dtos.GuestCheckoutForm
	BindError error
	RequestID string
}

func (s *Service) AccountCheckout(ctx context.Context, in AccountInput) (*models.Order, error) {
	actor := audit.UserActor(in.User.ID)
	if err := s.precheck(ctx, in.Cart, actor, in.RequestID); err != nil {
		return nil, err
	}

	in.Form.Normalize()
	if err := s.validateForm(ctx, in.Form, in.BindError, actor, in.RequestID); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:   &in.User.ID,
		FullName: in.Form.FullName,
		Phone:    in.Form.Phone,
		Address:  in.Form.Address,
	}
	if in.User.Email != "" {
		email := in.User.Email
		order.UserEmail = &email
	}

	return s.place(ctx, in.Cart, order, actor, in.RequestID)
}

func (s *Service) GuestCheckout(ctx context.Context, in GuestInput) (*models.Order, error) {
	actor := audit.GuestActor()
	if err := s.precheck(ctx, in.Cart, actor, in.RequestID); err != nil {
		return nil, err
	}

	in.Form.Normalize()
	if err := s.validateForm(ctx, in.Form, in.BindError, actor, in.RequestID); err != nil {
		return nil, err
	}

	email := in.Form.Email
	order := &models.Order{
		FullName:  in.Form.FullName,
		Phone:     in.Form.Phone,
		Address:   in.Form.Address,
		UserEmail: &email,
	}

	return s.place(ctx, in.Cart, order, actor, in.RequestID)
}

// Preview resolves the cart for display on the checkout page. Lines whose
// product is gone are left out.
func (s *Service) Preview(ctx context.Context, c cart.Cart) ([]cart.Line, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	resolved, _, err := cart.Resolve(ctx, catalog.New(s.db), lines)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// FindOrder loads an order with its snapshot lines.
func (s *Service) FindOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) precheck(ctx context.Context, c cart.Cart, actor audit.Actor, requestID string) error {
	qty, err := c.TotalQuantity(ctx)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	if qty <= 0 {
		s.audit.Emit(ctx, audit.Event{Name: audit.CheckoutEmptyCart, Actor: actor, RequestID: requestID})
		return ErrEmptyCart
	}
	s.audit.Emit(ctx, audit.Event{Name: audit.CheckoutStarted, Actor: actor, RequestID: requestID})
	return nil
}

func (s *Service) validateForm(ctx context.Context, form any, bindErr error, actor audit.Actor, requestID string) error {
	err := bindErr
	if err == nil {
		err = s.validate.Struct(form)
	}
	if err != nil {
		fields := utils.FieldErrors(err)
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		s.audit.Emit(ctx, audit.Event{
			Name:      audit.CheckoutValidationFailed,
			Actor:     actor,
			RequestID: requestID,
			Extra:     map[string]any{"fields": keys},
		})
		return &ValidationError{Fields: fields}
	}
	s.audit.Emit(ctx, audit.Event{Name: audit.CheckoutValidated, Actor: actor, RequestID: requestID})
	return nil
}

func (s *Service) place(ctx context.Context, src cart.Cart, order *models.Order, actor audit.Actor, requestID string) (*models.Order, error) {
	var dropped []uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := src.WithTx(tx)
		if err != nil {
			return err
		}

		lines, err := c.Lines(ctx)
		if err != nil {
			return fmt.Errorf("read cart lines: %w", err)
		}
		resolved, dangling, err := cart.Resolve(ctx, catalog.New(tx), lines)
		if err != nil {
			return fmt.Errorf("resolve products: %w", err)
		}
		dropped = dangling
		if len(resolved) == 0 {
			return ErrEmptyCart
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		serial := models.BuildOrderSerial(order.ID, order.CreatedAt)
		if err := tx.Model(order).Update("serial_number", serial).Error; err != nil {
			return fmt.Errorf("assign serial: %w", err)
		}
		order.SerialNumber = &serial

		for _, l := range resolved {
			productID := l.ProductID
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   &productID,
				ProductName: l.Product.Name,
				Quantity:    l.Quantity,
				Price:       l.Product.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create order item for product %d: %w", productID, err)
			}
			order.Items = append(order.Items, item)
		}

		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})

	if errors.Is(err, ErrEmptyCart) {
		s.audit.Emit(ctx, audit.Event{Name: audit.CheckoutEmptyCart, Actor: actor, RequestID: requestID,
			Extra: map[string]any{"dropped": len(dropped)}})
		return nil, ErrEmptyCart
	}
	if err != nil {
		s.log.Error("Checkout failed",
			zap.String("actor_type", string(actor.Type)),
			zap.Uintp("actor_id", actor.ID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		s.audit.Emit(ctx, audit.Event{Name: audit.CheckoutFailed, Actor: actor, RequestID: requestID})
		return nil, err
	}

	for _, id := range dropped {
		s.audit.Emit(ctx, audit.Event{
			Name:      audit.CheckoutLineDropped,
			Actor:     actor,
			RequestID: requestID,
			OrderID:   order.ID,
			Serial:    order.Serial(),
			Extra:     map[string]any{"product_id": id},
		})
	}
	s.audit.Emit(ctx, audit.Event{
		Name:      audit.OrderCreated,
		Actor:     actor,
		RequestID: requestID,
		OrderID:   order.ID,
		Serial:    order.Serial(),
		EmailMask: audit.MaskEmail(order.Email()),
		Extra:     map[string]any{"items": len(order.Items), "total": order.Total().StringFixed(2)},
	})

	s.publisher.Publish(ctx, events.CheckoutCompleted{Order: *order, Actor: actor, RequestID: requestID})
	return order, nil
}
