package promocode

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validator validates a promo code against an order amount and returns the
// computed redemption. A nil orderAmount means the caller has no cart total
// yet. Implemented by Engine; consumers such as the order service depend on
// this interface.
type Validator interface {
	Validate(ctx context.Context, code string, orderAmount *decimal.Decimal) (*Redemption, error)
}

// Engine owns promo code business rules: redemption validation and the
// administrative lifecycle. The clock is injectable for tests.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Normalize canonicalizes a user-supplied code: trimmed, uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a code against the order amount and, on success, records
// the redemption. Checks run in a fixed order with the first failure winning:
// existence, active flag, activation window (all reported as ErrNotFound),
// usage limit, minimum order amount. A nil orderAmount skips the minimum
// check entirely; a supplied amount, including an explicit zero, is held
// against it. Failure paths never touch the usage counter; the increment
// happens last and is atomic in the repository, so a concurrent redemption
// racing for the final use loses with ErrUsageLimitReached.
func (e *Engine) Validate(ctx context.Context, code string, orderAmount *decimal.Decimal) (*Redemption, error) {
	code = Normalize(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	pc, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}

	now := e.now()
	if !pc.IsActive || now.Before(pc.StartDate) || now.After(pc.EndDate) {
		return nil, ErrNotFound
	}

	if pc.UsageLimit != nil && pc.UsageCount >= *pc.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if orderAmount != nil && pc.MinOrderAmount.IsPositive() && orderAmount.LessThan(pc.MinOrderAmount) {
		return nil, &MinimumOrderError{Minimum: pc.MinOrderAmount}
	}

	subtotal := decimal.Zero
	if orderAmount != nil {
		subtotal = *orderAmount
	}
	amount := ComputeDiscount(pc, subtotal)

	if err := e.repo.Redeem(ctx, pc.ID); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return nil, ErrUsageLimitReached
		}
		return nil, errors.Wrap(err, "record redemption")
	}

	return &Redemption{
		Code:           pc.Code,
		DiscountValue:  pc.DiscountValue,
		IsPercentage:   pc.IsPercentage,
		DiscountAmount: amount,
		Description:    pc.Description,
	}, nil
}

// Create validates and persists a new promo code with a fresh ID and a zero
// usage counter. Returns ErrCodeExists when the normalized code is taken.
func (e *Engine) Create(ctx context.Context, pc PromoCode) (*PromoCode, error) {
	pc.Code = Normalize(pc.Code)
	pc.ID = uuid.New().String()
	pc.UsageCount = 0
	if pc.StartDate.IsZero() {
		pc.StartDate = e.now()
	}
	pc.CreatedAt = e.now()

	if err := validateDefinition(&pc); err != nil {
		return nil, err
	}

	if err := e.repo.Create(ctx, &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

// Update applies a partial administrative edit. The usage counter is not
// editable through this path. Returns ErrNotFound for an unknown id and
// ErrCodeExists when renaming onto a taken code.
func (e *Engine) Update(ctx context.Context, id string, patch Patch) (*PromoCode, error) {
	pc, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyPatch(pc, patch)
	if err := validateDefinition(pc); err != nil {
		return nil, err
	}

	if err := e.repo.Update(ctx, pc); err != nil {
		return nil, err
	}
	return pc, nil
}

// Delete removes a promo code permanently.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.repo.Delete(ctx, id)
}

// List returns all promo codes.
func (e *Engine) List(ctx context.Context) ([]PromoCode, error) {
	return e.repo.List(ctx)
}

// GetByID returns a single promo code by its identifier.
func (e *Engine) GetByID(ctx context.Context, id string) (*PromoCode, error) {
	return e.repo.GetByID(ctx, id)
}

func applyPatch(pc *PromoCode, patch Patch) {
	if patch.Code != nil {
		pc.Code = Normalize(*patch.Code)
	}
	if patch.DiscountValue != nil {
		pc.DiscountValue = *patch.DiscountValue
	}
	if patch.IsPercentage != nil {
		pc.IsPercentage = *patch.IsPercentage
	}
	if patch.MinOrderAmount != nil {
		pc.MinOrderAmount = *patch.MinOrderAmount
	}
	if patch.MaxDiscountAmount != nil {
		pc.MaxDiscountAmount = patch.MaxDiscountAmount
	}
	if patch.StartDate != nil {
		pc.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		pc.EndDate = *patch.EndDate
	}
	if patch.IsActive != nil {
		pc.IsActive = *patch.IsActive
	}
	if patch.UsageLimit != nil {
		pc.UsageLimit = patch.UsageLimit
	}
	if patch.Description != nil {
		pc.Description = *patch.Description
	}
}

func validateDefinition(pc *PromoCode) error {
	if pc.Code == "" {
		return ErrEmptyCode
	}
	if pc.IsPercentage {
		if pc.DiscountValue.LessThan(decimal.NewFromInt(1)) || pc.DiscountValue.GreaterThan(hundred) {
			return &ValidationError{Reason: "percentage discount must be between 1 and 100"}
		}
	} else if !pc.DiscountValue.IsPositive() {
		return &ValidationError{Reason: "flat discount must be positive"}
	}
	if pc.MinOrderAmount.IsNegative() {
		return &ValidationError{Reason: "minimum order amount cannot be negative"}
	}
	if pc.MaxDiscountAmount != nil && !pc.MaxDiscountAmount.IsPositive() {
		return &ValidationError{Reason: "maximum discount amount must be positive"}
	}
	if pc.EndDate.IsZero() {
		return &ValidationError{Reason: "end date is required"}
	}
	if pc.EndDate.Before(pc.StartDate) {
		return &ValidationError{Reason: "end date must not be before start date"}
	}
	if pc.UsageLimit != nil && *pc.UsageLimit <= 0 {
		return &ValidationError{Reason: "usage limit must be positive"}
	}
	return nil
}
