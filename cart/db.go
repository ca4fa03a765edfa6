package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBCart is the persisted cart of an account.
type DBCart struct {
	db   *gorm.DB
	cart models.Cart
}

// ForUser loads the user's cart, creating it on first use.
func ForUser(ctx context.Context, db *gorm.DB, userID uint) (*DBCart, error) {
	var c models.Cart
	if err := db.WithContext(ctx).Where(models.Cart{UserID: userID}).FirstOrCreate(&c).Error; err != nil {
		return nil, fmt.Errorf("load cart for user %d: %w", userID, err)
	}
	return &DBCart{db: db, cart: c}, nil
}

func (d *DBCart) ID() uint { return d.cart.ID }

// Add puts the product in the cart with quantity 1, or bumps an existing line
// by one up to MaxQuantity. The requested quantity is not used for persisted
// carts.
func (d *DBCart) Add(ctx context.Context, productID uint, _ int) error {
	item := models.CartItem{CartID: d.cart.ID, ProductID: productID, Quantity: 1}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("CASE WHEN cart_items.quantity < ? THEN cart_items.quantity + 1 ELSE cart_items.quantity END", MaxQuantity),
		}),
	}).Create(&item).Error
}

func (d *DBCart) Remove(ctx context.Context, productID uint) error {
	return d.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", d.cart.ID, productID).
		Delete(&models.CartItem{}).Error
}

// Update overwrites the quantity of an existing line; qty <= 0 removes it.
// It returns ErrLineNotFound when the product is not in the cart.
func (d *DBCart) Update(ctx context.Context, productID uint, qty int) error {
	if qty > MaxQuantity {
		return ErrQuantityOutOfRange
	}
	db := d.db.WithContext(ctx)

	var item models.CartItem
	err := db.Where("cart_id = ? AND product_id = ?", d.cart.ID, productID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLineNotFound
	}
	if err != nil {
		return err
	}

	if qty <= 0 {
		return db.Delete(&item).Error
	}
	return db.Model(&item).Update("quantity", qty).Error
}

func (d *DBCart) Lines(ctx context.Context) ([]Line, error) {
	var items []models.CartItem
	if err := d.db.WithContext(ctx).Preload("Product").
		Where("cart_id = ?", d.cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity, Product: item.Product})
	}
	return lines, nil
}

func (d *DBCart) Clear(ctx context.Context) error {
	return d.db.WithContext(ctx).Where("cart_id = ?", d.cart.ID).Delete(&models.CartItem{}).Error
}

func (d *DBCart) TotalQuantity(ctx context.Context) (int, error) {
	var total int
	err := d.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ?", d.cart.ID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	return total, err
}

// WithTx re-reads the cart row under FOR UPDATE so two checkouts of the same
// account serialize; the second one then sees an empty cart.
func (d *DBCart) WithTx(tx *gorm.DB) (Cart, error) {
	var locked models.Cart
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, d.cart.ID).Error; err != nil {
		return nil, fmt.Errorf("lock cart %d: %w", d.cart.ID, err)
	}
	return &DBCart{db: tx, cart: locked}, nil
}
