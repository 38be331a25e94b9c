package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjust(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		percent float64
		want    float64
	}{
		{"ten percent off", 10.00, -10, 9.00},
		{"ten percent on", 10.00, 10, 11.00},
		{"rounds to pennies", 9.99, 12.5, 11.24},
		{"zero price", 0, 25, 0},
		{"no change", 14.49, 0, 14.49},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Adjust(tt.price, tt.percent))
		})
	}
}

func TestAdjust_RoundTripWithinAPenny(t *testing.T) {
	for _, p := range []float64{1.00, 9.99, 10.00, 24.95, 129.00, 999.99} {
		back := Adjust(Adjust(p, 10), -9.09)
		assert.InDelta(t, p, back, 0.011, "price %.2f", p)
	}
}

func TestValidatePercent(t *testing.T) {
	assert.NoError(t, ValidatePercent(-10))
	assert.NoError(t, ValidatePercent(0))
	assert.ErrorIs(t, ValidatePercent(-100), ErrInvalidPercent)
	assert.ErrorIs(t, ValidatePercent(1500), ErrInvalidPercent)
	assert.ErrorIs(t, ValidatePercent(math.NaN()), ErrInvalidPercent)
}

func TestAdjustColumns(t *testing.T) {
	got := AdjustColumns(map[string]float64{
		"reg_1y_gbp":      10.00,
		"renew_1y_gbp":    12.00,
		"transfer_1y_gbp": 8.50,
	}, DomainPriceColumns, -10)

	assert.Equal(t, map[string]interface{}{
		"reg_1y_gbp":      9.00,
		"renew_1y_gbp":    10.80,
		"transfer_1y_gbp": 7.65,
	}, got)
}
