package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastly/promo-service/internal/domain/product"
	"github.com/feastly/promo-service/internal/domain/promocode"
)

// Sentinel errors for order validation.
var ErrEmptyItems = fmt.Errorf("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items     []Item
	PromoCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Service prices carts and places orders. It owns cart total reconciliation:
// subtotal from the catalog, discount from the promo engine, delivery fee
// from configuration.
type Service struct {
	products    product.Repository
	promos      promocode.Validator
	orders      Repository
	deliveryFee decimal.Decimal
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	promos promocode.Validator,
	orders Repository,
	deliveryFee decimal.Decimal,
) *Service {
	return &Service{
		products:    products,
		promos:      promos,
		orders:      orders,
		deliveryFee: deliveryFee,
	}
}

// PlaceOrder validates items, prices the cart from the catalog, applies an
// optional promo code, persists the order, and returns the result.
//
// The payable total is subtotal - discount + delivery fee, floored at zero.
// The flooring is a presentation decision made here: the discount engine
// returns the full discount even when a flat discount exceeds the subtotal.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]product.Product, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := decimal.Zero
	promoCode := ""
	if req.PromoCode != "" {
		redemption, err := s.promos.Validate(ctx, req.PromoCode, &subtotal)
		if err != nil {
			return nil, fmt.Errorf("validate promo code: %w", err)
		}
		discount = redemption.DiscountAmount
		promoCode = redemption.Code
	}

	total := subtotal.Sub(discount).Add(s.deliveryFee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:          uuid.New().String(),
		Items:       req.Items,
		Subtotal:    subtotal.Round(2),
		Discount:    discount.Round(2),
		DeliveryFee: s.deliveryFee.Round(2),
		Total:       total.Round(2),
		PromoCode:   promoCode,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}
