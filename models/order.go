package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusNew      = "new"
	OrderStatusAccepted = "accepted"
	OrderStatusSent     = "sent"
)

// Order is immutable after checkout except for the contact fields and the two
// status flags, which only staff may edit.
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       *uint       `gorm:"index" json:"user_id"`
	User         *User       `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	SerialNumber *string     `gorm:"size:100;uniqueIndex" json:"order_serial_number"`
	FullName     string      `gorm:"size:100;not null" json:"full_name"`
	Address      string      `gorm:"type:text;not null" json:"address"`
	Phone        string      `gorm:"size:20;not null" json:"phone"`
	UserEmail    *string     `gorm:"size:50" json:"user_email"`
	IsAccepted   bool        `gorm:"not null;default:false;index" json:"is_accepted"`
	IsSent       bool        `gorm:"not null;default:false;index" json:"is_sent"`
	Items        []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderItem is a frozen copy of a cart line. ProductID is cleared when the
// product is deleted; name and price stay as they were at checkout.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   *uint           `gorm:"index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
}

func (i *OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the snapshot line totals. Items must be loaded.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Total())
	}
	return total
}

func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

func (o *Order) Serial() string {
	if o.SerialNumber == nil {
		return ""
	}
	return *o.SerialNumber
}

func (o *Order) Email() string {
	if o.UserEmail == nil {
		return ""
	}
	return *o.UserEmail
}

// ApplyStatus sets both flags. An order cannot be sent without being
// accepted, so sent=true forces accepted=true.
func (o *Order) ApplyStatus(accepted, sent bool) {
	if sent {
		accepted = true
	}
	o.IsAccepted = accepted
	o.IsSent = sent
}

func (o *Order) StatusLabel() string {
	switch {
	case o.IsSent:
		return OrderStatusSent
	case o.IsAccepted:
		return OrderStatusAccepted
	default:
		return OrderStatusNew
	}
}

// BuildOrderSerial derives the human readable serial from the generated key
// and the UTC creation date, e.g. ORD20260106000154. The unique index on
// serial_number is what actually guarantees uniqueness.
func BuildOrderSerial(id uint, createdAt time.Time) string {
	return fmt.Sprintf("ORD%s%06d", createdAt.UTC().Format("20060102"), id)
}
