package checkout

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrValidation    = errors.New("checkout form is invalid")
	ErrOrderNotFound = errors.New("order not found")
)

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() }
func (e *ValidationError) Unwrap() error { return ErrValidation }
