package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontyx/ontyx/internal/money"
)

func item(qty, price, discount, tax string) money.LineItem {
	return money.LineItem{
		Description:     "test item",
		Quantity:        decimal.RequireFromString(qty),
		UnitPrice:       decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discount),
		TaxRatePercent:  decimal.RequireFromString(tax),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestComputeAmount(t *testing.T) {
	t.Run("DiscountAndTax", func(t *testing.T) {
		// 2 * 100 * 0.9 * 1.13
		amount, err := money.ComputeAmount(item("2", "100", "10", "13"))
		require.NoError(t, err)
		assertDecimal(t, "203.40", amount)
	})

	t.Run("NoDiscountNoTax", func(t *testing.T) {
		amount, err := money.ComputeAmount(item("3", "19.99", "0", "0"))
		require.NoError(t, err)
		assertDecimal(t, "59.97", amount)
	})

	t.Run("FullDiscount", func(t *testing.T) {
		amount, err := money.ComputeAmount(item("5", "10", "100", "13"))
		require.NoError(t, err)
		assertDecimal(t, "0", amount)
	})
}

func TestComputeAmount_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		item  money.LineItem
		field string
	}{
		{name: "ZeroQuantity", item: item("0", "10", "0", "0"), field: "quantity"},
		{name: "NegativeQuantity", item: item("-1", "10", "0", "0"), field: "quantity"},
		{name: "NegativePrice", item: item("1", "-10", "0", "0"), field: "unit_price"},
		{name: "NegativeDiscount", item: item("1", "10", "-5", "0"), field: "discount_percent"},
		{name: "DiscountOverHundred", item: item("1", "10", "101", "0"), field: "discount_percent"},
		{name: "NegativeTax", item: item("1", "10", "0", "-1"), field: "tax_rate_percent"},
		{name: "TaxOverHundred", item: item("1", "10", "0", "100.5"), field: "tax_rate_percent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := money.ComputeAmount(tt.item)

			var itemErr *money.InvalidLineItemError
			require.ErrorAs(t, err, &itemErr)
			assert.Equal(t, tt.field, itemErr.Field)
		})
	}
}

func TestComputeAmount_Monotonic(t *testing.T) {
	base, err := money.ComputeAmount(item("2", "50", "10", "13"))
	require.NoError(t, err)

	moreQty, err := money.ComputeAmount(item("3", "50", "10", "13"))
	require.NoError(t, err)
	assert.True(t, moreQty.GreaterThanOrEqual(base))

	higherPrice, err := money.ComputeAmount(item("2", "60", "10", "13"))
	require.NoError(t, err)
	assert.True(t, higherPrice.GreaterThanOrEqual(base))

	moreDiscount, err := money.ComputeAmount(item("2", "50", "25", "13"))
	require.NoError(t, err)
	assert.True(t, moreDiscount.LessThanOrEqual(base))

	assert.False(t, base.IsNegative())
}

func TestAggregate(t *testing.T) {
	totals, err := money.Aggregate([]money.LineItem{item("2", "100", "10", "13")})
	require.NoError(t, err)

	assertDecimal(t, "200", totals.Subtotal)
	assertDecimal(t, "20", totals.DiscountTotal)
	assertDecimal(t, "23.40", totals.TaxTotal)
	assertDecimal(t, "203.40", totals.Total)
}

func TestAggregate_Empty(t *testing.T) {
	totals, err := money.Aggregate(nil)
	require.NoError(t, err)

	assertDecimal(t, "0", totals.Subtotal)
	assertDecimal(t, "0", totals.DiscountTotal)
	assertDecimal(t, "0", totals.TaxTotal)
	assertDecimal(t, "0", totals.Total)
}

func TestAggregate_InvalidItemReported(t *testing.T) {
	_, err := money.Aggregate([]money.LineItem{
		item("1", "10", "0", "0"),
		item("-2", "10", "0", "0"),
	})

	var itemErr *money.InvalidLineItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Contains(t, err.Error(), "item 2")
}

func TestAggregate_TotalIdentity(t *testing.T) {
	tests := []struct {
		name  string
		items []money.LineItem
	}{
		{
			name:  "SingleLine",
			items: []money.LineItem{item("7", "3.33", "12.5", "7.25")},
		},
		{
			name: "MixedLines",
			items: []money.LineItem{
				item("1", "0.10", "0", "5"),
				item("3", "99.99", "15", "13"),
				item("250", "0.01", "2", "0"),
				item("0.5", "1999", "50", "20"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := money.Aggregate(tt.items)
			require.NoError(t, err)

			want := totals.Subtotal.Sub(totals.DiscountTotal).Add(totals.TaxTotal)
			assert.True(t, totals.Total.Equal(want), "total %s != %s", totals.Total, want)
		})
	}
}

// Per-line figures are kept at full precision; only the stored totals are
// rounded, so many small lines do not drift from compounding round-offs.
func TestAggregate_RoundsOnlyTotals(t *testing.T) {
	items := make([]money.LineItem, 0, 100)
	for i := 0; i < 100; i++ {
		items = append(items, item("1", "0.10", "0", "4.5"))
	}

	totals, err := money.Aggregate(items)
	require.NoError(t, err)

	// 100 * 0.10 * 0.045 = 0.45 exactly; rounding each 0.0045 line first
	// would have given 0 instead.
	assertDecimal(t, "10", totals.Subtotal)
	assertDecimal(t, "0.45", totals.TaxTotal)
	assertDecimal(t, "10.45", totals.Total)
}
