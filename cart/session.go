package cart

import (
	"context"

	"storefront/session"

	"gorm.io/gorm"
)

// SessionKey holds the guest cart as {"<product id>": quantity}.
const SessionKey = "cart"

type SessionCart struct {
	s *session.Session
}

func NewSessionCart(s *session.Session) *SessionCart {
	return &SessionCart{s: s}
}

func (c *SessionCart) load() (map[string]int, error) {
	items := map[string]int{}
	if _, err := c.s.Get(SessionKey, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = map[string]int{}
	}
	return items, nil
}

func (c *SessionCart) save(items map[string]int) error {
	return c.s.Set(SessionKey, items)
}

// Add sums qty into the existing quantity. A resulting quantity of zero or
// less removes the line; qty 0 changes nothing. A line never exceeds
// MaxQuantity.
func (c *SessionCart) Add(_ context.Context, productID uint, qty int) error {
	if qty == 0 {
		return nil
	}
	items, err := c.load()
	if err != nil {
		return err
	}
	key := Key(productID)
	sum, err := addQuantity(items[key], qty)
	if err != nil || sum > MaxQuantity {
		return ErrQuantityOutOfRange
	}
	if sum > 0 {
		items[key] = sum
	} else {
		delete(items, key)
	}
	return c.save(items)
}

func (c *SessionCart) Remove(_ context.Context, productID uint) error {
	items, err := c.load()
	if err != nil {
		return err
	}
	key := Key(productID)
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return c.save(items)
}

func (c *SessionCart) Update(_ context.Context, productID uint, qty int) error {
	if qty > MaxQuantity {
		return ErrQuantityOutOfRange
	}
	items, err := c.load()
	if err != nil {
		return err
	}
	key := Key(productID)
	if qty > 0 {
		items[key] = qty
	} else {
		delete(items, key)
	}
	return c.save(items)
}

// Lines skips keys that are not product ids.
func (c *SessionCart) Lines(_ context.Context) ([]Line, error) {
	items, err := c.load()
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for key, qty := range items {
		id, ok := parseKey(key)
		if !ok || qty <= 0 {
			continue
		}
		lines = append(lines, Line{ProductID: id, Quantity: qty})
	}
	sortLines(lines)
	return lines, nil
}

func (c *SessionCart) Clear(_ context.Context) error {
	return c.save(map[string]int{})
}

func (c *SessionCart) TotalQuantity(_ context.Context) (int, error) {
	items, err := c.load()
	if err != nil {
		return 0, err
	}
	total := 0
	for key, qty := range items {
		if _, ok := parseKey(key); !ok || qty <= 0 {
			continue
		}
		if total, err = addQuantity(total, qty); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// WithTx returns the cart itself. The session is only persisted when the
// request succeeds, which gives the same all-or-nothing outcome.
func (c *SessionCart) WithTx(*gorm.DB) (Cart, error) {
	return c, nil
}
