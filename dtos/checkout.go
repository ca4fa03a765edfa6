package dtos

import "strings"

// CheckoutForm is the contact data of an account checkout. Tags use the
// validate key so binding does not validate before the cart has been checked.
type CheckoutForm struct {
	FullName string `json:"full_name" form:"full_name" validate:"required,max=100"`
	Phone    string `json:"phone" form:"phone" validate:"required,max=20,phone"`
	Address  string `json:"address" form:"address" validate:"required"`
}

func (f *CheckoutForm) Normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
}

type GuestCheckoutForm struct {
	CheckoutForm
	Email string `json:"email" form:"email" validate:"required,email,max=50"`
}

func (f *GuestCheckoutForm) Normalize() {
	f.CheckoutForm.Normalize()
	f.Email = strings.TrimSpace(f.Email)
}

type CheckoutPreview struct {
	Cart CartResponse `json:"cart"`
	Form CheckoutForm `json:"form"`
}

type CheckoutResult struct {
	OrderID      uint   `json:"order_id"`
	SerialNumber string `json:"order_serial_number"`
	Redirect     string `json:"redirect"`
}
