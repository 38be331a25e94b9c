// Package pricing adjusts stored sell prices by a percentage.
package pricing

import (
	"errors"
	"math"
)

var ErrInvalidPercent = errors.New("percent must be greater than -100 and at most 1000")

// Columns adjusted by a bulk change, per pricing table.
var (
	DomainPriceColumns    = []string{"reg_1y_gbp", "renew_1y_gbp", "transfer_1y_gbp"}
	ServiceDefaultColumns = []string{"base_price_gbp", "monthly_price_gbp", "setup_fee_gbp"}
)

// Round2 rounds half away from zero to 2 decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Adjust returns price changed by percent, rounded to pennies.
func Adjust(price, percent float64) float64 {
	return Round2(price * (1 + percent/100))
}

func ValidatePercent(percent float64) error {
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent <= -100 || percent > 1000 {
		return ErrInvalidPercent
	}
	return nil
}

// AdjustColumns returns the update values for one row: every named column
// of current adjusted by percent.
func AdjustColumns(current map[string]float64, columns []string, percent float64) map[string]interface{} {
	values := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		values[col] = Adjust(current[col], percent)
	}
	return values
}
