package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/audit"
	"storefront/dtos"
	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	historyLimit   = 10
	staffPageLimit = 20
)

type OrderHandler struct {
	DB    *gorm.DB
	Audit *audit.Logger
	Now   func() time.Time
}

func (h *OrderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *OrderHandler) findOrder(c *gin.Context, id uint) (*models.Order, bool) {
	var order models.Order
	err := h.DB.Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return nil, false
	}
	return &order, true
}

func ownsOrder(c *gin.Context, o *models.Order) bool {
	userID, ok := middleware.UserID(c)
	return ok && o.UserID != nil && *o.UserID == userID
}

// OrderSuccess is the page a checkout redirects to. It is visible to the
// owner, to staff, and to the session the order was placed from.
func (h *OrderHandler) OrderSuccess(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, ok := h.findOrder(c, id)
	if !ok {
		return
	}
	if !ownsOrder(c, order) && middleware.Authorize(c) != middleware.AccessStaff && !placedInSession(c, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": dtos.NewOrderResponse(order)})
}

// GetOrders is the caller's order history, newest first.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(historyLimit).
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": dtos.NewOrderResponses(orders)})
}

// GetOrder shows one order. Customers only see their own; staff see all.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, ok := h.findOrder(c, id)
	if !ok {
		return
	}
	if !ownsOrder(c, order) && middleware.Authorize(c) != middleware.AccessStaff {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, dtos.NewOrderResponse(order))
}

// UpdateOrder lets staff correct contact data and move the status flags.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dtos.StaffOrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	order, ok := h.findOrder(c, id)
	if !ok {
		return
	}
	from := order.StatusLabel()

	if req.FullName != nil {
		order.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		order.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		order.Address = strings.TrimSpace(*req.Address)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			order.UserEmail = nil
		} else {
			order.UserEmail = &email
		}
	}
	accepted, sent := order.IsAccepted, order.IsSent
	if req.IsAccepted != nil {
		accepted = *req.IsAccepted
	}
	if req.IsSent != nil {
		sent = *req.IsSent
	}
	order.ApplyStatus(accepted, sent)

	if order.FullName == "" || order.Phone == "" || order.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, phone and address cannot be empty"})
		return
	}

	if err := h.DB.Model(order).Updates(map[string]any{
		"full_name":   order.FullName,
		"phone":       order.Phone,
		"address":     order.Address,
		"user_email":  order.UserEmail,
		"is_accepted": order.IsAccepted,
		"is_sent":     order.IsSent,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	if to := order.StatusLabel(); to != from {
		staffID, _ := middleware.UserID(c)
		h.Audit.Emit(c.Request.Context(), audit.Event{
			Name:       audit.OrderStatusChanged,
			Actor:      audit.StaffActor(staffID),
			RequestID:  middleware.GetRequestID(c),
			OrderID:    order.ID,
			Serial:     order.Serial(),
			StatusFrom: from,
			StatusTo:   to,
		})
	}

	c.JSON(http.StatusOK, dtos.NewOrderResponse(order))
}

// RecentOrders lists the orders of the last seven days.
func (h *OrderHandler) RecentOrders(c *gin.Context) {
	to := h.now()
	h.listOrders(c, to.AddDate(0, 0, -7), to)
}

// PreviousMonthOrders lists the orders of the last full calendar month.
func (h *OrderHandler) PreviousMonthOrders(c *gin.Context) {
	now := h.now()
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	h.listOrders(c, to.AddDate(0, -1, 0), to)
}

func (h *OrderHandler) listOrders(c *gin.Context, from, to time.Time) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * staffPageLimit

	inRange := h.DB.Model(&models.Order{}).Where("orders.created_at >= ? AND orders.created_at < ?", from, to)

	var total int64
	if err := inRange.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	var revenue struct {
		Revenue decimal.Decimal
	}
	if err := inRange.Session(&gorm.Session{}).
		Select("COALESCE(SUM(order_items.price * order_items.quantity), 0) AS revenue").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Scan(&revenue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute revenue"})
		return
	}

	var orders []models.Order
	if err := inRange.Session(&gorm.Session{}).Preload("Items").
		Order("orders.created_at DESC, orders.id DESC").
		Offset(offset).Limit(staffPageLimit).
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, dtos.StaffOrderList{
		Orders:       dtos.NewOrderResponses(orders),
		Page:         page,
		Limit:        staffPageLimit,
		Total:        total,
		TotalRevenue: revenue.Revenue.StringFixed(2),
		From:         from,
		To:           to,
	})
}
