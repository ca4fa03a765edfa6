package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront/cart"
	"storefront/catalog"
	"storefront/dtos"
	"storefront/middleware"
	"storefront/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CartHandler serves both cart kinds: signed-in callers use their persisted
// cart, everyone else the cart kept in the session.
type CartHandler struct {
	DB      *gorm.DB
	Catalog *catalog.Catalog
}

// currentCart picks the cart for the caller and writes the error response
// itself when there is none.
func currentCart(c *gin.Context, db *gorm.DB) (cart.Cart, bool) {
	if userID, ok := middleware.UserID(c); ok {
		dbCart, err := cart.ForUser(c.Request.Context(), db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
			return nil, false
		}
		return dbCart, true
	}

	s := session.FromContext(c)
	if s == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session unavailable"})
		return nil, false
	}
	return cart.NewSessionCart(s), true
}

func productIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return 0, false
	}
	return uint(id), true
}

func quantityParam(c *gin.Context) (int, bool) {
	var req dtos.CartQuantityRequest
	// An empty or unreadable body means the default quantity.
	_ = c.ShouldBind(&req)
	qty, err := cart.ParseQuantity(req.Quantity.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Quantity must be between -%d and %d", cart.MaxQuantity, cart.MaxQuantity)})
		return 0, false
	}
	return qty, true
}

func quantityTooLarge(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("A cart line holds at most %d units", cart.MaxQuantity)})
}

func (h *CartHandler) respondCart(c *gin.Context, status int, cr cart.Cart) {
	ctx := c.Request.Context()
	lines, err := cr.Lines(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}
	resolved, _, err := cart.Resolve(ctx, h.Catalog, lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	checkoutURL := "/api/checkout/guest"
	if _, ok := middleware.UserID(c); ok {
		checkoutURL = "/api/checkout"
	}
	c.JSON(status, gin.H{
		"cart":         dtos.NewCartResponse(resolved),
		"checkout_url": checkoutURL,
	})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	h.respondCart(c, http.StatusOK, cr)
}

// AddToCart adds one product. Session carts add the posted quantity
// (default 1); persisted carts always add one unit.
func (h *CartHandler) AddToCart(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	if _, err := h.Catalog.Get(c.Request.Context(), productID); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		}
		return
	}

	qty, ok := quantityParam(c)
	if !ok {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	err := cr.Add(c.Request.Context(), productID, qty)
	if errors.Is(err, cart.ErrQuantityOutOfRange) {
		quantityTooLarge(c)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
		return
	}
	h.respondCart(c, http.StatusOK, cr)
}

// UpdateCartItem sets the quantity of a line; zero or less removes it.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	qty, ok := quantityParam(c)
	if !ok {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}

	err := cr.Update(c.Request.Context(), productID, qty)
	if errors.Is(err, cart.ErrLineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}
	if errors.Is(err, cart.ErrQuantityOutOfRange) {
		quantityTooLarge(c)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	h.respondCart(c, http.StatusOK, cr)
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	if err := cr.Remove(c.Request.Context(), productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from cart"})
		return
	}
	h.respondCart(c, http.StatusOK, cr)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	cr, ok := currentCart(c, h.DB)
	if !ok {
		return
	}
	if err := cr.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
