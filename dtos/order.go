package dtos

import (
	"time"

	"storefront/models"
)

type OrderItemResponse struct {
	ProductID   *uint  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Total       string `json:"total"`
}

type OrderResponse struct {
	ID           uint                `json:"id"`
	SerialNumber string              `json:"order_serial_number"`
	FullName     string              `json:"full_name"`
	Address      string              `json:"address"`
	Phone        string              `json:"phone"`
	Email        string              `json:"user_email,omitempty"`
	Guest        bool                `json:"guest"`
	IsAccepted   bool                `json:"is_accepted"`
	IsSent       bool                `json:"is_sent"`
	Status       string              `json:"status"`
	Items        []OrderItemResponse `json:"items"`
	Total        string              `json:"total"`
	CreatedAt    time.Time           `json:"created_at"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			Total:       it.Total().StringFixed(2),
		})
	}
	return OrderResponse{
		ID:           o.ID,
		SerialNumber: o.Serial(),
		FullName:     o.FullName,
		Address:      o.Address,
		Phone:        o.Phone,
		Email:        o.Email(),
		Guest:        o.IsGuest(),
		IsAccepted:   o.IsAccepted,
		IsSent:       o.IsSent,
		Status:       o.StatusLabel(),
		Items:        items,
		Total:        o.Total().StringFixed(2),
		CreatedAt:    o.CreatedAt,
	}
}

func NewOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

// StaffOrderUpdate edits contact data and status flags. Omitted fields keep
// their current value.
type StaffOrderUpdate struct {
	FullName   *string `json:"full_name" binding:"omitempty,max=100"`
	Phone      *string `json:"phone" binding:"omitempty,max=20,phone"`
	Address    *string `json:"address"`
	Email      *string `json:"user_email" binding:"omitempty,email,max=50"`
	IsAccepted *bool   `json:"is_accepted"`
	IsSent     *bool   `json:"is_sent"`
}

type StaffOrderList struct {
	Orders       []OrderResponse `json:"orders"`
	Page         int             `json:"page"`
	Limit        int             `json:"limit"`
	Total        int64           `json:"total"`
	TotalRevenue string          `json:"total_revenue"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
}
