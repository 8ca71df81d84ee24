package domain

import "time"

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	SKU         string        `json:"sku,omitempty"`
	Status      ProductStatus `json:"status"`

	Price   float64 `json:"price"`
	Stock   int     `json:"stock"`
	Sales   int     `json:"sales"`
	Revenue float64 `json:"revenue"`

	CreatedAt time.Time `json:"created_at"`
}
