package promocode

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromoRepo struct {
	pc        *PromoCode
	findErr   error
	redeemErr error
	redeemed  []string

	created *PromoCode
	updated *PromoCode
}

func (m *mockPromoRepo) FindByCode(_ context.Context, _ string) (*PromoCode, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.pc, nil
}

func (m *mockPromoRepo) GetByID(_ context.Context, id string) (*PromoCode, error) {
	if m.pc == nil || m.pc.ID != id {
		return nil, ErrNotFound
	}
	cp := *m.pc
	return &cp, nil
}

func (m *mockPromoRepo) List(_ context.Context) ([]PromoCode, error) {
	if m.pc == nil {
		return nil, nil
	}
	return []PromoCode{*m.pc}, nil
}

func (m *mockPromoRepo) Create(_ context.Context, pc *PromoCode) error {
	m.created = pc
	return nil
}

func (m *mockPromoRepo) Update(_ context.Context, pc *PromoCode) error {
	m.updated = pc
	return nil
}

func (m *mockPromoRepo) Delete(_ context.Context, _ string) error {
	return nil
}

func (m *mockPromoRepo) Redeem(_ context.Context, id string) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeemed = append(m.redeemed, id)
	return nil
}

func intPtr(v int) *int { return &v }

func amt(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestEngine_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	cap100 := decimal.NewFromInt(100)
	cap200 := decimal.NewFromInt(200)

	active := func(pc PromoCode) *PromoCode {
		pc.IsActive = true
		if pc.StartDate.IsZero() {
			pc.StartDate = pastTime
		}
		if pc.EndDate.IsZero() {
			pc.EndDate = futureTime
		}
		return &pc
	}

	tests := []struct {
		name        string
		repo        *mockPromoRepo
		code        string
		orderAmount *decimal.Decimal
		wantAmount  string
		wantErr     error
		wantMinErr  bool
	}{
		{
			name: "welcome code 10 percent of 50",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:                "pc1",
				Code:              "WELCOME10",
				DiscountValue:     decimal.NewFromInt(10),
				IsPercentage:      true,
				MaxDiscountAmount: &cap100,
			})},
			code:        "WELCOME10",
			orderAmount: amt(50),
			wantAmount:  "5",
		},
		{
			name: "percentage clamped to max discount",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:                "pc2",
				Code:              "SAVE20",
				DiscountValue:     decimal.NewFromInt(20),
				IsPercentage:      true,
				MinOrderAmount:    decimal.NewFromInt(500),
				MaxDiscountAmount: &cap200,
			})},
			code:        "SAVE20",
			orderAmount: amt(2000),
			wantAmount:  "200",
		},
		{
			name: "code is normalized before lookup",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc3",
				Code:          "FLAT50",
				DiscountValue: decimal.NewFromInt(50),
			})},
			code:        "  flat50  ",
			orderAmount: amt(400),
			wantAmount:  "50",
		},
		{
			name:        "empty code",
			repo:        &mockPromoRepo{},
			code:        "   ",
			orderAmount: amt(100),
			wantErr:     ErrEmptyCode,
		},
		{
			name:        "unknown code",
			repo:        &mockPromoRepo{findErr: ErrNotFound},
			code:        "BOGUS",
			orderAmount: amt(100),
			wantErr:     ErrNotFound,
		},
		{
			name: "inactive code reported as not found",
			repo: &mockPromoRepo{pc: &PromoCode{
				ID:            "pc4",
				Code:          "OFF",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
				IsActive:      false,
				StartDate:     pastTime,
				EndDate:       futureTime,
			}},
			code:        "OFF",
			orderAmount: amt(100),
			wantErr:     ErrNotFound,
		},
		{
			name: "not yet started reported as not found",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc5",
				Code:          "SOON",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
				StartDate:     futureTime,
				EndDate:       futureTime.Add(24 * time.Hour),
			})},
			code:        "SOON",
			orderAmount: amt(100),
			wantErr:     ErrNotFound,
		},
		{
			name: "expired reported as not found",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc6",
				Code:          "OLD",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
				StartDate:     pastTime.Add(-24 * time.Hour),
				EndDate:       pastTime,
			})},
			code:        "OLD",
			orderAmount: amt(100),
			wantErr:     ErrNotFound,
		},
		{
			name: "usage limit exhausted",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc7",
				Code:          "LIMITED",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
				UsageLimit:    intPtr(100),
				UsageCount:    100,
			})},
			code:        "LIMITED",
			orderAmount: amt(100),
			wantErr:     ErrUsageLimitReached,
		},
		{
			name: "usage under limit succeeds",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc8",
				Code:          "HASROOM",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
				UsageLimit:    intPtr(100),
				UsageCount:    50,
			})},
			code:        "HASROOM",
			orderAmount: amt(100),
			wantAmount:  "10",
		},
		{
			name: "below minimum order amount",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:             "pc9",
				Code:           "FLAT50",
				DiscountValue:  decimal.NewFromInt(50),
				MinOrderAmount: decimal.NewFromInt(300),
			})},
			code:        "FLAT50",
			orderAmount: amt(100),
			wantMinErr:  true,
		},
		{
			name: "order exactly at minimum succeeds",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:             "pc10",
				Code:           "FLAT50",
				DiscountValue:  decimal.NewFromInt(50),
				MinOrderAmount: decimal.NewFromInt(300),
			})},
			code:        "FLAT50",
			orderAmount: amt(300),
			wantAmount:  "50",
		},
		{
			name: "no order amount skips the minimum check",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:             "pc12",
				Code:           "FLAT50",
				DiscountValue:  decimal.NewFromInt(50),
				MinOrderAmount: decimal.NewFromInt(300),
			})},
			code:       "FLAT50",
			wantAmount: "50",
		},
		{
			name: "no order amount yields zero percentage discount",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:            "pc13",
				Code:          "WELCOME10",
				DiscountValue: decimal.NewFromInt(10),
				IsPercentage:  true,
			})},
			code:       "WELCOME10",
			wantAmount: "0",
		},
		{
			name: "explicit zero amount is held to the minimum",
			repo: &mockPromoRepo{pc: active(PromoCode{
				ID:             "pc14",
				Code:           "FLAT50",
				DiscountValue:  decimal.NewFromInt(50),
				MinOrderAmount: decimal.NewFromInt(300),
			})},
			code:        "FLAT50",
			orderAmount: amt(0),
			wantMinErr:  true,
		},
		{
			name: "concurrent redemption loses the last use",
			repo: &mockPromoRepo{
				pc: active(PromoCode{
					ID:            "pc11",
					Code:          "RACE",
					DiscountValue: decimal.NewFromInt(10),
					IsPercentage:  true,
					UsageLimit:    intPtr(100),
					UsageCount:    99,
				}),
				redeemErr: ErrUsageLimitReached,
			},
			code:        "RACE",
			orderAmount: amt(100),
			wantErr:     ErrUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.repo)
			e.now = func() time.Time { return fixedNow }

			got, err := e.Validate(context.Background(), tt.code, tt.orderAmount)

			if tt.wantMinErr {
				var minErr *MinimumOrderError
				require.ErrorAs(t, err, &minErr)
				assert.Nil(t, got)
				assert.Empty(t, tt.repo.redeemed, "failed validation must not redeem")
				return
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Empty(t, tt.repo.redeemed, "failed validation must not redeem")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			wantAmount := decimal.RequireFromString(tt.wantAmount)
			assert.True(t, wantAmount.Equal(got.DiscountAmount),
				"expected amount %s, got %s", wantAmount, got.DiscountAmount)
			assert.Len(t, tt.repo.redeemed, 1, "successful validation redeems exactly once")
		})
	}
}

func TestEngine_ValidateRedeemError(t *testing.T) {
	repo := &mockPromoRepo{
		pc: &PromoCode{
			ID:            "pc1",
			Code:          "FAIL",
			DiscountValue: decimal.NewFromInt(10),
			IsPercentage:  true,
			IsActive:      true,
			EndDate:       time.Now().Add(time.Hour),
		},
		redeemErr: errors.New("db error"),
	}

	e := NewEngine(repo)
	_, err := e.Validate(context.Background(), "FAIL", amt(100))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record redemption")
}

func TestEngine_Create(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	endDate := fixedNow.Add(30 * 24 * time.Hour)

	t.Run("assigns id and zeroes usage count", func(t *testing.T) {
		repo := &mockPromoRepo{}
		e := NewEngine(repo)
		e.now = func() time.Time { return fixedNow }

		got, err := e.Create(context.Background(), PromoCode{
			Code:          "  new10  ",
			DiscountValue: decimal.NewFromInt(10),
			IsPercentage:  true,
			IsActive:      true,
			EndDate:       endDate,
			UsageCount:    42,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "NEW10", got.Code)
		assert.Equal(t, 0, got.UsageCount)
		assert.Equal(t, fixedNow, got.StartDate, "missing start date defaults to now")
		require.NotNil(t, repo.created)
	})

	t.Run("duplicate code", func(t *testing.T) {
		e := NewEngine(&failingCreateRepo{})
		e.now = func() time.Time { return fixedNow }

		_, err := e.Create(context.Background(), PromoCode{
			Code:          "DUP",
			DiscountValue: decimal.NewFromInt(10),
			IsPercentage:  true,
			EndDate:       endDate,
		})
		require.ErrorIs(t, err, ErrCodeExists)
	})

	t.Run("invalid definitions rejected", func(t *testing.T) {
		cases := []struct {
			name string
			pc   PromoCode
		}{
			{"empty code", PromoCode{DiscountValue: decimal.NewFromInt(10), IsPercentage: true, EndDate: endDate}},
			{"percentage over 100", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(150), IsPercentage: true, EndDate: endDate}},
			{"percentage below 1", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromFloat(0.5), IsPercentage: true, EndDate: endDate}},
			{"flat zero", PromoCode{Code: "BAD", DiscountValue: decimal.Zero, EndDate: endDate}},
			{"flat negative", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(-5), EndDate: endDate}},
			{"negative minimum", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(10), IsPercentage: true, MinOrderAmount: decimal.NewFromInt(-1), EndDate: endDate}},
			{"end before start", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(10), IsPercentage: true, StartDate: endDate, EndDate: fixedNow}},
			{"missing end date", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(10), IsPercentage: true}},
			{"zero usage limit", PromoCode{Code: "BAD", DiscountValue: decimal.NewFromInt(10), IsPercentage: true, EndDate: endDate, UsageLimit: intPtr(0)}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				repo := &mockPromoRepo{}
				e := NewEngine(repo)
				e.now = func() time.Time { return fixedNow }

				_, err := e.Create(context.Background(), tc.pc)

				require.Error(t, err)
				assert.Nil(t, repo.created, "invalid definition must not persist")
			})
		}
	})
}

type failingCreateRepo struct {
	mockPromoRepo
}

func (f *failingCreateRepo) Create(_ context.Context, _ *PromoCode) error {
	return ErrCodeExists
}

func TestEngine_Update(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	endDate := fixedNow.Add(30 * 24 * time.Hour)

	existing := PromoCode{
		ID:            "pc1",
		Code:          "KEEP",
		DiscountValue: decimal.NewFromInt(10),
		IsPercentage:  true,
		IsActive:      true,
		StartDate:     fixedNow,
		EndDate:       endDate,
		UsageCount:    7,
	}

	t.Run("nil patch fields leave values unchanged", func(t *testing.T) {
		repo := &mockPromoRepo{pc: &existing}
		e := NewEngine(repo)
		e.now = func() time.Time { return fixedNow }

		newValue := decimal.NewFromInt(25)
		got, err := e.Update(context.Background(), "pc1", Patch{
			DiscountValue: &newValue,
		})

		require.NoError(t, err)
		assert.Equal(t, "KEEP", got.Code)
		assert.True(t, newValue.Equal(got.DiscountValue))
		assert.Equal(t, 7, got.UsageCount, "usage count is not editable")
		require.NotNil(t, repo.updated)
	})

	t.Run("patched code is normalized", func(t *testing.T) {
		repo := &mockPromoRepo{pc: &existing}
		e := NewEngine(repo)
		e.now = func() time.Time { return fixedNow }

		newCode := " renamed "
		got, err := e.Update(context.Background(), "pc1", Patch{Code: &newCode})

		require.NoError(t, err)
		assert.Equal(t, "RENAMED", got.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := &mockPromoRepo{pc: &existing}
		e := NewEngine(repo)
		e.now = func() time.Time { return fixedNow }

		_, err := e.Update(context.Background(), "missing", Patch{})

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("patch producing invalid definition rejected", func(t *testing.T) {
		repo := &mockPromoRepo{pc: &existing}
		e := NewEngine(repo)
		e.now = func() time.Time { return fixedNow }

		badValue := decimal.NewFromInt(500)
		_, err := e.Update(context.Background(), "pc1", Patch{DiscountValue: &badValue})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Nil(t, repo.updated)
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE20", Normalize("  save20 "))
	assert.Equal(t, "FLAT50", Normalize("FLAT50"))
	assert.Equal(t, "", Normalize("   "))
}
