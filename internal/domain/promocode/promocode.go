// Package promocode implements the promo code discount engine: eligibility
// rules, discount computation, and usage bookkeeping.
package promocode

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCode is returned when the submitted code is empty or whitespace.
	ErrEmptyCode = errors.New("promo code is required")
	// ErrNotFound is returned when a code does not exist, is disabled, or is
	// outside its activation window. The three cases are deliberately
	// indistinguishable so callers cannot probe which codes exist.
	ErrNotFound = errors.New("invalid or expired promo code")
	// ErrUsageLimitReached is returned when a code has exhausted its redemptions.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
	// ErrCodeExists is returned on create when the normalized code is taken.
	ErrCodeExists = errors.New("promo code already exists")
)

// MinimumOrderError is returned when the order amount is below the code's
// minimum. It carries the required minimum for display.
type MinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return "order amount must be at least " + e.Minimum.String() + " to use this promo code"
}

// ValidationError reports a malformed promo code definition on create/update.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid promo code: " + e.Reason
}

// PromoCode is a redeemable discount offer.
//
// MaxDiscountAmount and UsageLimit are pointers: nil means uncapped/unlimited,
// which is distinct from zero.
type PromoCode struct {
	ID                string
	Code              string
	DiscountValue     decimal.Decimal
	IsPercentage      bool
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	IsActive          bool
	UsageLimit        *int
	UsageCount        int
	Description       string
	CreatedAt         time.Time
}

// Redemption is the result of a successful validation. The usage counter has
// already been incremented when a Redemption is returned.
type Redemption struct {
	Code           string
	DiscountValue  decimal.Decimal
	IsPercentage   bool
	DiscountAmount decimal.Decimal
	Description    string
}

// Patch holds optional replacement values for an administrative update.
// Nil fields are left unchanged. UsageCount is absent on purpose: it is
// owned by the redemption path and cannot be edited.
type Patch struct {
	Code              *string
	DiscountValue     *decimal.Decimal
	IsPercentage      *bool
	MinOrderAmount    *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         *time.Time
	EndDate           *time.Time
	IsActive          *bool
	UsageLimit        *int
	Description       *string
}

// Repository provides persistence for promo codes.
type Repository interface {
	// FindByCode looks up a code by its normalized (uppercase) value.
	// Returns ErrNotFound when absent; active/window checks are the engine's.
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	GetByID(ctx context.Context, id string) (*PromoCode, error)
	List(ctx context.Context) ([]PromoCode, error)
	// Create persists a new code. Returns ErrCodeExists on a duplicate
	// normalized code.
	Create(ctx context.Context, pc *PromoCode) error
	// Update replaces all administrative fields of the row identified by
	// pc.ID, leaving usage_count untouched. Returns ErrNotFound when absent.
	Update(ctx context.Context, pc *PromoCode) error
	Delete(ctx context.Context, id string) error
	// Redeem increments the usage counter by one, atomically refusing the
	// increment when it would exceed the usage limit. Returns
	// ErrUsageLimitReached when no redemptions remain.
	Redeem(ctx context.Context, id string) error
}
