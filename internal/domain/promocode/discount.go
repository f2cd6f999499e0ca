package promocode

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeDiscount calculates the discount amount for an eligible promo code
// against the pre-discount order amount, rounded to 2 decimal places.
//
// Percentage codes discount orderAmount * value / 100, clamped to the cap
// when one is set. Flat codes discount the fixed value regardless of order
// size; the result may exceed the order amount — flooring the payable total
// at zero is the caller's decision, not the engine's.
func ComputeDiscount(pc *PromoCode, orderAmount decimal.Decimal) decimal.Decimal {
	if !pc.IsPercentage {
		return pc.DiscountValue.Round(2)
	}

	amount := orderAmount.Mul(pc.DiscountValue).Div(hundred)
	if pc.MaxDiscountAmount != nil && amount.GreaterThan(*pc.MaxDiscountAmount) {
		amount = *pc.MaxDiscountAmount
	}
	return amount.Round(2)
}
