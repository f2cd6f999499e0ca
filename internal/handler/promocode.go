package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/feastly/promo-service/internal/domain/promocode"
)

// promoCodeJSON is the full admin-facing representation of a promo code.
type promoCodeJSON struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Discount          float64   `json:"discount"`
	IsPercentage      bool      `json:"isPercentage"`
	MinOrderAmount    float64   `json:"minOrderAmount"`
	MaxDiscountAmount *float64  `json:"maxDiscountAmount"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	IsActive          bool      `json:"isActive"`
	UsageLimit        *int      `json:"usageLimit"`
	UsageCount        int       `json:"usageCount"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"createdAt"`
}

func toPromoCodeJSON(pc *promocode.PromoCode) promoCodeJSON {
	out := promoCodeJSON{
		ID:             pc.ID,
		Code:           pc.Code,
		Discount:       pc.DiscountValue.InexactFloat64(),
		IsPercentage:   pc.IsPercentage,
		MinOrderAmount: pc.MinOrderAmount.InexactFloat64(),
		StartDate:      pc.StartDate,
		EndDate:        pc.EndDate,
		IsActive:       pc.IsActive,
		UsageLimit:     pc.UsageLimit,
		UsageCount:     pc.UsageCount,
		Description:    pc.Description,
		CreatedAt:      pc.CreatedAt,
	}
	if pc.MaxDiscountAmount != nil {
		v := pc.MaxDiscountAmount.InexactFloat64()
		out.MaxDiscountAmount = &v
	}
	return out
}

type validateRequest struct {
	Code        string   `json:"code"`
	OrderAmount *float64 `json:"orderAmount"`
}

// ValidatePromoCode handles POST /promocodes/validate. On success the usage
// counter has been incremented and the computed discount is returned.
func (h *Handler) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An omitted order amount passes through as nil: the minimum-order
	// check only applies once the caller supplies a cart total.
	var orderAmount *decimal.Decimal
	if req.OrderAmount != nil {
		v := decimal.NewFromFloat(*req.OrderAmount)
		orderAmount = &v
	}

	redemption, err := h.engine.Validate(r.Context(), req.Code, orderAmount)
	if err != nil {
		h.writePromoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "promo code applied successfully",
		"promoCode": map[string]any{
			"code":           redemption.Code,
			"discount":       redemption.DiscountValue.InexactFloat64(),
			"isPercentage":   redemption.IsPercentage,
			"discountAmount": redemption.DiscountAmount.InexactFloat64(),
			"description":    redemption.Description,
		},
	})
}

type createPromoCodeRequest struct {
	Code              string     `json:"code"`
	Discount          float64    `json:"discount"`
	IsPercentage      *bool      `json:"isPercentage"`
	MinOrderAmount    float64    `json:"minOrderAmount"`
	MaxDiscountAmount *float64   `json:"maxDiscountAmount"`
	StartDate         *time.Time `json:"startDate"`
	EndDate           time.Time  `json:"endDate"`
	IsActive          *bool      `json:"isActive"`
	UsageLimit        *int       `json:"usageLimit"`
	Description       string     `json:"description"`
}

// CreatePromoCode handles POST /promocodes (admin).
func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req createPromoCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pc := promocode.PromoCode{
		Code:           req.Code,
		DiscountValue:  decimal.NewFromFloat(req.Discount),
		IsPercentage:   true,
		MinOrderAmount: decimal.NewFromFloat(req.MinOrderAmount),
		EndDate:        req.EndDate,
		IsActive:       true,
		UsageLimit:     req.UsageLimit,
		Description:    req.Description,
	}
	if req.IsPercentage != nil {
		pc.IsPercentage = *req.IsPercentage
	}
	if req.IsActive != nil {
		pc.IsActive = *req.IsActive
	}
	if req.StartDate != nil {
		pc.StartDate = *req.StartDate
	}
	if req.MaxDiscountAmount != nil {
		v := decimal.NewFromFloat(*req.MaxDiscountAmount)
		pc.MaxDiscountAmount = &v
	}

	created, err := h.engine.Create(r.Context(), pc)
	if err != nil {
		h.writePromoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "promo code created successfully",
		"promoCode": toPromoCodeJSON(created),
	})
}

// ListPromoCodes handles GET /promocodes (admin).
func (h *Handler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.engine.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]promoCodeJSON, len(codes))
	for i := range codes {
		out[i] = toPromoCodeJSON(&codes[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"count":      len(out),
		"promoCodes": out,
	})
}

// GetPromoCode handles GET /promocodes/{id} (admin).
func (h *Handler) GetPromoCode(w http.ResponseWriter, r *http.Request) {
	pc, err := h.engine.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writePromoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"promoCode": toPromoCodeJSON(pc),
	})
}

type updatePromoCodeRequest struct {
	Code              *string    `json:"code"`
	Discount          *float64   `json:"discount"`
	IsPercentage      *bool      `json:"isPercentage"`
	MinOrderAmount    *float64   `json:"minOrderAmount"`
	MaxDiscountAmount *float64   `json:"maxDiscountAmount"`
	StartDate         *time.Time `json:"startDate"`
	EndDate           *time.Time `json:"endDate"`
	IsActive          *bool      `json:"isActive"`
	UsageLimit        *int       `json:"usageLimit"`
	Description       *string    `json:"description"`
}

// UpdatePromoCode handles PUT /promocodes/{id} (admin). Omitted fields keep
// their current values; the usage counter cannot be edited.
func (h *Handler) UpdatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req updatePromoCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := promocode.Patch{
		Code:         req.Code,
		IsPercentage: req.IsPercentage,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsActive:     req.IsActive,
		UsageLimit:   req.UsageLimit,
		Description:  req.Description,
	}
	if req.Discount != nil {
		v := decimal.NewFromFloat(*req.Discount)
		patch.DiscountValue = &v
	}
	if req.MinOrderAmount != nil {
		v := decimal.NewFromFloat(*req.MinOrderAmount)
		patch.MinOrderAmount = &v
	}
	if req.MaxDiscountAmount != nil {
		v := decimal.NewFromFloat(*req.MaxDiscountAmount)
		patch.MaxDiscountAmount = &v
	}

	updated, err := h.engine.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writePromoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "promo code updated successfully",
		"promoCode": toPromoCodeJSON(updated),
	})
}

// DeletePromoCode handles DELETE /promocodes/{id} (admin).
func (h *Handler) DeletePromoCode(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writePromoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "promo code deleted successfully",
	})
}

// writePromoError maps engine errors to HTTP responses. Absent, disabled,
// and expired codes share one 404 so callers cannot probe code existence.
func (h *Handler) writePromoError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		minErr        *promocode.MinimumOrderError
		validationErr *promocode.ValidationError
	)
	switch {
	case errors.Is(err, promocode.ErrNotFound):
		writeError(w, http.StatusNotFound, "invalid or expired promo code")
	case errors.Is(err, promocode.ErrEmptyCode):
		writeError(w, http.StatusBadRequest, "promo code is required")
	case errors.Is(err, promocode.ErrUsageLimitReached):
		writeError(w, http.StatusBadRequest, "promo code usage limit reached")
	case errors.Is(err, promocode.ErrCodeExists):
		writeError(w, http.StatusBadRequest, "promo code already exists")
	case errors.As(err, &minErr):
		writeError(w, http.StatusBadRequest, minErr.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	default:
		internalError(w, r, err)
	}
}
