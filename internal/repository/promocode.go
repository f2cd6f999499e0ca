package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feastly/promo-service/internal/domain/promocode"
)

const (
	promoCodeColumns = `id, code, discount_value, is_percentage, min_order_amount,
		max_discount_amount, start_date, end_date, is_active, usage_limit,
		usage_count, description, created_at`

	findPromoCodeByCodeSQL = `SELECT ` + promoCodeColumns + `
		FROM promo_codes WHERE UPPER(code) = $1`

	getPromoCodeByIDSQL = `SELECT ` + promoCodeColumns + `
		FROM promo_codes WHERE id = $1`

	listPromoCodesSQL = `SELECT ` + promoCodeColumns + `
		FROM promo_codes ORDER BY created_at DESC`

	createPromoCodeSQL = `INSERT INTO promo_codes
		(id, code, discount_value, is_percentage, min_order_amount, max_discount_amount,
		 start_date, end_date, is_active, usage_limit, usage_count, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updatePromoCodeSQL = `UPDATE promo_codes SET
		code = $2, discount_value = $3, is_percentage = $4, min_order_amount = $5,
		max_discount_amount = $6, start_date = $7, end_date = $8, is_active = $9,
		usage_limit = $10, description = $11
		WHERE id = $1`

	deletePromoCodeSQL = `DELETE FROM promo_codes WHERE id = $1`

	// The WHERE clause makes the check-then-increment a single atomic
	// statement: the row only matches while a redemption remains, so two
	// concurrent redeems of the last use cannot both succeed.
	redeemPromoCodeSQL = `UPDATE promo_codes
		SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

var _ promocode.Repository = (*PromoCodeRepository)(nil)

// PromoCodeRepository implements promocode.Repository backed by PostgreSQL.
type PromoCodeRepository struct {
	pool *pgxpool.Pool
}

// NewPromoCodeRepository returns a PromoCodeRepository that uses the given pool.
func NewPromoCodeRepository(pool *pgxpool.Pool) *PromoCodeRepository {
	return &PromoCodeRepository{pool: pool}
}

// FindByCode looks up a promo code by its normalized (uppercase) code.
// Returns promocode.ErrNotFound when no such code exists.
func (r *PromoCodeRepository) FindByCode(ctx context.Context, code string) (*promocode.PromoCode, error) {
	rows, err := r.pool.Query(ctx, findPromoCodeByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	pc, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promocode.ErrNotFound
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &pc, nil
}

// GetByID returns a promo code by its identifier, or promocode.ErrNotFound.
func (r *PromoCodeRepository) GetByID(ctx context.Context, id string) (*promocode.PromoCode, error) {
	rows, err := r.pool.Query(ctx, getPromoCodeByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promo code %q: %w", id, err)
	}

	pc, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promocode.ErrNotFound
		}
		return nil, fmt.Errorf("getting promo code %q: %w", id, err)
	}
	return &pc, nil
}

// List returns all promo codes, newest first.
func (r *PromoCodeRepository) List(ctx context.Context) ([]promocode.PromoCode, error) {
	rows, err := r.pool.Query(ctx, listPromoCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promo codes: %w", err)
	}
	return pgx.CollectRows(rows, scanPromoCode)
}

// Create inserts a new promo code. A duplicate normalized code trips the
// unique index on UPPER(code) and is reported as promocode.ErrCodeExists.
func (r *PromoCodeRepository) Create(ctx context.Context, pc *promocode.PromoCode) error {
	_, err := r.pool.Exec(ctx, createPromoCodeSQL,
		pc.ID, pc.Code, pc.DiscountValue, pc.IsPercentage, pc.MinOrderAmount,
		pc.MaxDiscountAmount, pc.StartDate, pc.EndDate, pc.IsActive,
		pc.UsageLimit, pc.UsageCount, pc.Description, pc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return promocode.ErrCodeExists
		}
		return fmt.Errorf("creating promo code %q: %w", pc.Code, err)
	}
	return nil
}

// Update replaces the administrative fields of a promo code. usage_count is
// deliberately absent from the statement. Returns promocode.ErrNotFound when
// the id does not resolve and promocode.ErrCodeExists when renaming onto a
// taken code.
func (r *PromoCodeRepository) Update(ctx context.Context, pc *promocode.PromoCode) error {
	tag, err := r.pool.Exec(ctx, updatePromoCodeSQL,
		pc.ID, pc.Code, pc.DiscountValue, pc.IsPercentage, pc.MinOrderAmount,
		pc.MaxDiscountAmount, pc.StartDate, pc.EndDate, pc.IsActive,
		pc.UsageLimit, pc.Description,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return promocode.ErrCodeExists
		}
		return fmt.Errorf("updating promo code %q: %w", pc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promocode.ErrNotFound
	}
	return nil
}

// Delete removes a promo code. Returns promocode.ErrNotFound when absent.
func (r *PromoCodeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromoCodeSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promo code %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promocode.ErrNotFound
	}
	return nil
}

// Redeem atomically increments the usage counter, refusing the increment
// when the limit is exhausted (zero rows matched).
func (r *PromoCodeRepository) Redeem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, redeemPromoCodeSQL, id)
	if err != nil {
		return fmt.Errorf("redeeming promo code %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promocode.ErrUsageLimitReached
	}
	return nil
}

func scanPromoCode(row pgx.CollectableRow) (promocode.PromoCode, error) {
	var (
		pc          promocode.PromoCode
		maxDiscount *decimal.Decimal
		usageLimit  *int32
	)
	err := row.Scan(
		&pc.ID, &pc.Code, &pc.DiscountValue, &pc.IsPercentage, &pc.MinOrderAmount,
		&maxDiscount, &pc.StartDate, &pc.EndDate, &pc.IsActive, &usageLimit,
		&pc.UsageCount, &pc.Description, &pc.CreatedAt,
	)
	pc.MaxDiscountAmount = maxDiscount
	if usageLimit != nil {
		limit := int(*usageLimit)
		pc.UsageLimit = &limit
	}
	return pc, err
}
