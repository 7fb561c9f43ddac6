package service

import (
	"fmt"

	"giveaway/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// moneyPlaces is the number of decimal places amounts are stored with
const moneyPlaces = 2

// ValidateSplit checks that every share is non-negative, carries at most two decimal
// places and that the shares add up to exactly 100, matching the giveaways table checks.
func ValidateSplit(pct models.SplitPercentages) error {
	for name, v := range map[string]decimal.Decimal{
		"platform": pct.Platform,
		"creator":  pct.Creator,
		"prize":    pct.Prize,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s share %s is negative", ErrInvalidSplitConfiguration, name, v)
		}
		if !v.Equal(v.Truncate(moneyPlaces)) {
			return fmt.Errorf("%w: %s share %s has more than %d decimal places", ErrInvalidSplitConfiguration, name, v, moneyPlaces)
		}
	}

	if total := pct.Total(); !total.Equal(hundred) {
		return fmt.Errorf("%w: shares sum to %s, want 100", ErrInvalidSplitConfiguration, total)
	}
	return nil
}

// Split divides gross into platform, creator and prize shares. Creator and prize are
// truncated to cents and the platform takes the remainder, so the three always sum to gross.
func Split(gross decimal.Decimal, pct models.SplitPercentages) (models.SplitBreakdown, error) {
	if err := ValidateSplit(pct); err != nil {
		return models.SplitBreakdown{}, err
	}
	if gross.IsNegative() {
		return models.SplitBreakdown{}, fmt.Errorf("%w: cannot split negative amount %s", ErrInvalidAmount, gross)
	}

	creator := gross.Mul(pct.Creator).Div(hundred).Truncate(moneyPlaces)
	prize := gross.Mul(pct.Prize).Div(hundred).Truncate(moneyPlaces)
	platform := gross.Sub(creator).Sub(prize)
	if platform.IsNegative() {
		return models.SplitBreakdown{}, fmt.Errorf("%w: platform share of %s would be %s", ErrInvalidSplitConfiguration, gross, platform)
	}

	return models.SplitBreakdown{
		Platform: platform,
		Creator:  creator,
		Prize:    prize,
	}, nil
}

// validateMoney checks an amount is positive and has at most cent precision
func validateMoney(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(moneyPlaces)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, moneyPlaces)
	}
	return nil
}
