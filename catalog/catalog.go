// Package catalog is the read-only product lookup used by carts and checkout.
package catalog

import (
	"context"
	"errors"

	"storefront/models"

	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

type Catalog struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{DB: db}
}

func (c *Catalog) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := c.DB.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetMany returns the products that still exist, keyed by id. Missing ids are
// simply absent from the result.
func (c *Catalog) GetMany(ctx context.Context, ids []uint) (map[uint]*models.Product, error) {
	found := make(map[uint]*models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var products []models.Product
	if err := c.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for i := range products {
		found[products[i].ID] = &products[i]
	}
	return found, nil
}

type Page struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// List pages through products by name, optionally filtered by a
// case-insensitive substring.
func (c *Catalog) List(ctx context.Context, search string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := c.DB.WithContext(ctx).Model(&models.Product{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	if err := query.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}

	return &Page{Items: products, Total: total, Page: page, Limit: limit}, nil
}
