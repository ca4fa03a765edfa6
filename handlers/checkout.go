package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront/cart"
	"storefront/checkout"
	"storefront/dtos"
	"storefront/middleware"
	"storefront/models"
	"storefront/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// placedOrdersKey lists the orders placed from this session, which lets a
// guest open the success page of their own orders.
const placedOrdersKey = "placed_orders"

type CheckoutHandler struct {
	DB      *gorm.DB
	Service *checkout.Service
	Log     *zap.Logger
}

func successURL(orderID uint) string {
	return fmt.Sprintf("/api/orders/success/%d", orderID)
}

func (h *CheckoutHandler) preview(c *gin.Context, cr cart.Cart, form dtos.CheckoutForm) {
	lines, err := h.Service.Preview(c.Request.Context(), cr)
	if errors.Is(err, checkout.ErrEmptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty", "redirect": "/api/cart"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, dtos.CheckoutPreview{Cart: dtos.NewCartResponse(lines), Form: form})
}

func (h *CheckoutHandler) respondError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid checkout data", "errors": verr.Fields})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty", "redirect": "/api/cart"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete order"})
	}
}

func (h *CheckoutHandler) respondCreated(c *gin.Context, order *models.Order) {
	url := successURL(order.ID)
	c.Header("Location", url)
	c.JSON(http.StatusCreated, dtos.CheckoutResult{
		OrderID:      order.ID,
		SerialNumber: order.Serial(),
		Redirect:     url,
	})
}

func (h *CheckoutHandler) loadUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, false
	}
	return &user, true
}

// GetCheckout shows the account cart with a form prefilled from the profile.
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	h.preview(c, cr, dtos.CheckoutForm{
		FullName: user.FullName(),
		Phone:    user.Phone,
		Address:  user.FullAddress(),
	})
}

func (h *CheckoutHandler) PostCheckout(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}

	var form dtos.CheckoutForm
	bindErr := bindForm(c, &form)
	order, err := h.Service.AccountCheckout(c.Request.Context(), checkout.AccountInput{
		User:      user,
		Cart:      cr,
		Form:      form,
		BindError: bindErr,
		RequestID: middleware.GetRequestID(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, order)
}

// bindForm decodes the body. An empty body is not an error: the missing
// fields are reported by validation.
func bindForm(c *gin.Context, form any) error {
	if err := c.ShouldBind(form); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// redirectSignedIn sends authenticated callers to the account checkout.
func redirectSignedIn(c *gin.Context) bool {
	if middleware.Authorize(c) == middleware.AccessAnonymous {
		return false
	}
	c.Header("Location", "/api/checkout")
	c.JSON(http.StatusSeeOther, gin.H{"redirect": "/api/checkout"})
	return true
}

func (h *CheckoutHandler) GetGuestCheckout(c *gin.Context) {
	if redirectSignedIn(c) {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	h.preview(c, cr, dtos.CheckoutForm{})
}

func (h *CheckoutHandler) PostGuestCheckout(c *gin.Context) {
	if redirectSignedIn(c) {
		return
	}
	s := session.FromContext(c)
	if s == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session unavailable"})
		return
	}

	var form dtos.GuestCheckoutForm
	bindErr := bindForm(c, &form)
	order, err := h.Service.GuestCheckout(c.Request.Context(), checkout.GuestInput{
		Cart:      cart.NewSessionCart(s),
		Form:      form,
		BindError: bindErr,
		RequestID: middleware.GetRequestID(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := rememberOrder(s, order.ID); err != nil {
		h.Log.Warn("Failed to remember guest order", zap.Uint("order_id", order.ID), zap.Error(err))
	}
	h.respondCreated(c, order)
}

func rememberOrder(s *session.Session, id uint) error {
	var ids []uint
	if _, err := s.Get(placedOrdersKey, &ids); err != nil {
		ids = nil
	}
	return s.Set(placedOrdersKey, append(ids, id))
}

func placedInSession(c *gin.Context, id uint) bool {
	s := session.FromContext(c)
	if s == nil {
		return false
	}
	var ids []uint
	if _, err := s.Get(placedOrdersKey, &ids); err != nil {
		return false
	}
	for _, placed := range ids {
		if placed == id {
			return true
		}
	}
	return false
}
