// Package handler exposes the REST surface: public promo code validation and
// order placement, plus the API-key protected admin catalog of promo codes.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/feastly/promo-service/internal/domain/order"
	"github.com/feastly/promo-service/internal/domain/product"
	"github.com/feastly/promo-service/internal/domain/promocode"
)

// Handler carries the domain dependencies for all routes.
type Handler struct {
	engine   *promocode.Engine
	orders   *order.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(engine *promocode.Engine, orders *order.Service, products product.Repository) *Handler {
	return &Handler{
		engine:   engine,
		orders:   orders,
		products: products,
	}
}

// Routes builds the API router. Admin routes are guarded by the given
// API-key middleware.
func (h *Handler) Routes(requireAPIKey func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/promocodes", func(r chi.Router) {
		r.Post("/validate", h.ValidatePromoCode)

		r.Group(func(r chi.Router) {
			r.Use(requireAPIKey)
			r.Post("/", h.CreatePromoCode)
			r.Get("/", h.ListPromoCodes)
			r.Get("/{id}", h.GetPromoCode)
			r.Put("/{id}", h.UpdatePromoCode)
			r.Delete("/{id}", h.DeletePromoCode)
		})
	})

	r.Get("/products", h.ListProducts)
	r.Post("/orders", h.PlaceOrder)

	return r
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"message": message,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
