// Package cart puts the guest session cart and the persisted account cart
// behind one interface, so checkout does not care which one it drains.
package cart

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"storefront/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrLineNotFound is returned by persisted carts when updating a product that
// is not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// MaxQuantity bounds a single line and any quantity taken from a request.
const MaxQuantity = 9999

var ErrQuantityOutOfRange = errors.New("quantity out of range")

type Line struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   *models.Product `json:"product,omitempty"`
}

// Total uses the live product price. Zero when the product is unknown.
func (l Line) Total() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart interface {
	Add(ctx context.Context, productID uint, qty int) error
	Remove(ctx context.Context, productID uint) error
	Update(ctx context.Context, productID uint, qty int) error
	Lines(ctx context.Context) ([]Line, error)
	Clear(ctx context.Context) error
	TotalQuantity(ctx context.Context) (int, error)
	// WithTx returns a view of the cart bound to tx, locked against
	// concurrent checkouts where the storage supports it.
	WithTx(tx *gorm.DB) (Cart, error)
}

// Lookup resolves product ids to live products. Ids that no longer exist are
// absent from the result.
type Lookup interface {
	GetMany(ctx context.Context, ids []uint) (map[uint]*models.Product, error)
}

// Resolve attaches live products to lines. Lines whose product is gone are
// returned separately as dangling ids.
func Resolve(ctx context.Context, lookup Lookup, lines []Line) ([]Line, []uint, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := lookup.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	resolved := make([]Line, 0, len(lines))
	var dangling []uint
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			dangling = append(dangling, l.ProductID)
			continue
		}
		l.Product = p
		resolved = append(resolved, l)
	}
	return resolved, dangling, nil
}

func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// Key is the session mapping key for a product id.
func Key(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseKey(key string) (uint, bool) {
	id, err := strconv.ParseUint(key, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParseQuantity reads a quantity from request input. Missing or malformed
// input counts as 1; values beyond MaxQuantity in either direction are
// rejected.
func ParseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrQuantityOutOfRange
	}
	if err != nil {
		return 1, nil
	}
	if qty > MaxQuantity || qty < -MaxQuantity {
		return 0, ErrQuantityOutOfRange
	}
	return qty, nil
}

func addQuantity(a, b int) (int, error) {
	if (b > 0 && a > math.MaxInt-b) || (b < 0 && a < math.MinInt-b) {
		return 0, ErrQuantityOutOfRange
	}
	return a + b, nil
}

func sortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
}
