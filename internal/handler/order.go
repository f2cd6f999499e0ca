package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/feastly/promo-service/internal/domain/order"
	"github.com/feastly/promo-service/internal/domain/promocode"
)

type orderItemJSON struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Items     []orderItemJSON `json:"items"`
	PromoCode string          `json:"promoCode"`
}

type orderJSON struct {
	ID          string          `json:"id"`
	Items       []orderItemJSON `json:"items"`
	Subtotal    float64         `json:"subtotal"`
	Discount    float64         `json:"discount"`
	DeliveryFee float64         `json:"deliveryFee"`
	Total       float64         `json:"total"`
	PromoCode   string          `json:"promoCode,omitempty"`
}

// PlaceOrder handles POST /orders: prices the cart, applies an optional
// promo code, and persists the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items:     items,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	o := result.Order
	respItems := make([]orderItemJSON, len(o.Items))
	for i, item := range o.Items {
		respItems[i] = orderItemJSON{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	writeJSON(w, http.StatusCreated, orderJSON{
		ID:          o.ID,
		Items:       respItems,
		Subtotal:    o.Subtotal.InexactFloat64(),
		Discount:    o.Discount.InexactFloat64(),
		DeliveryFee: o.DeliveryFee.InexactFloat64(),
		Total:       o.Total.InexactFloat64(),
		PromoCode:   o.PromoCode,
	})
}

// writeOrderError maps order placement errors to HTTP responses. Promo code
// failures surface as 400 here: the order request itself is rejected.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFoundErr *order.ProductNotFoundError
		quantityErr *order.InvalidQuantityError
		minErr      *promocode.MinimumOrderError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "items required")
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusBadRequest, quantityErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusUnprocessableEntity, notFoundErr.Error())
	case errors.Is(err, promocode.ErrNotFound):
		writeError(w, http.StatusBadRequest, "invalid or expired promo code")
	case errors.Is(err, promocode.ErrEmptyCode):
		writeError(w, http.StatusBadRequest, "promo code is required")
	case errors.Is(err, promocode.ErrUsageLimitReached):
		writeError(w, http.StatusBadRequest, "promo code usage limit reached")
	case errors.As(err, &minErr):
		writeError(w, http.StatusBadRequest, minErr.Error())
	default:
		internalError(w, r, err)
	}
}
