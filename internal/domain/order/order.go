// Package order implements cart total reconciliation and order placement.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a placed customer order with its pricing breakdown.
type Order struct {
	ID          string
	Items       []Item
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	PromoCode   string
	CreatedAt   time.Time
}

// Item is a single cart line.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
}
