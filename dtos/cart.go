package dtos

import (
	"encoding/json"

	"storefront/cart"
)

type CartLine struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
}

type CartResponse struct {
	Items         []CartLine `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	Total         string     `json:"total"`
}

// NewCartResponse expects resolved lines; lines without a product are left out.
func NewCartResponse(lines []cart.Line) CartResponse {
	resp := CartResponse{Items: make([]CartLine, 0, len(lines))}
	for _, l := range lines {
		if l.Product == nil {
			continue
		}
		resp.Items = append(resp.Items, CartLine{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Price:     l.Product.Price.StringFixed(2),
			Total:     l.Total().StringFixed(2),
		})
		resp.TotalQuantity += l.Quantity
	}
	resp.Total = cart.Total(lines).StringFixed(2)
	return resp
}

// CartQuantityRequest accepts the quantity as a JSON number, a JSON string or
// a form value.
type CartQuantityRequest struct {
	Quantity json.Number `json:"quantity" form:"quantity"`
}
