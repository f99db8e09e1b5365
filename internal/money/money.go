package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one priced row of a quote or invoice. Amount is always
// derived from the other fields, never stored on the item itself.
type LineItem struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
}

// InvalidLineItemError reports a line item field that fails validation.
type InvalidLineItemError struct {
	Field string
	Msg   string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item: %s %s", e.Field, e.Msg)
}

// Validate checks the raw fields before any amount is derived. Callers
// must not clamp out-of-range values silently.
func (it LineItem) Validate() error {
	if !it.Quantity.IsPositive() {
		return &InvalidLineItemError{Field: "quantity", Msg: "must be greater than zero"}
	}

	if it.UnitPrice.IsNegative() {
		return &InvalidLineItemError{Field: "unit_price", Msg: "must not be negative"}
	}

	if it.DiscountPercent.IsNegative() || it.DiscountPercent.GreaterThan(hundred) {
		return &InvalidLineItemError{Field: "discount_percent", Msg: "must be between 0 and 100"}
	}

	if it.TaxRatePercent.IsNegative() || it.TaxRatePercent.GreaterThan(hundred) {
		return &InvalidLineItemError{Field: "tax_rate_percent", Msg: "must be between 0 and 100"}
	}

	return nil
}

// ComputeAmount returns the line total: quantity times unit price, minus
// the discount percentage, plus tax on the discounted base.
func ComputeAmount(it LineItem) (decimal.Decimal, error) {
	if err := it.Validate(); err != nil {
		return decimal.Decimal{}, err
	}

	return amount(it), nil
}

func amount(it LineItem) decimal.Decimal {
	base := it.Quantity.Mul(it.UnitPrice)
	afterDiscount := base.Sub(base.Mul(it.DiscountPercent).Div(hundred))

	return afterDiscount.Add(afterDiscount.Mul(it.TaxRatePercent).Div(hundred))
}

// Totals holds the aggregate figures of a document's line items, rounded
// to the currency minor unit.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
}

// Aggregate folds a collection of line items into document totals.
// Per-line figures are accumulated at full precision; only the stored
// totals are rounded, so rounding error never compounds across lines.
// Total = Subtotal - DiscountTotal + TaxTotal holds exactly.
func Aggregate(items []LineItem) (Totals, error) {
	var subtotal, discountTotal, taxTotal decimal.Decimal

	for i, it := range items {
		if err := it.Validate(); err != nil {
			return Totals{}, fmt.Errorf("item %d: %w", i+1, err)
		}

		base := it.Quantity.Mul(it.UnitPrice)
		lineDiscount := base.Mul(it.DiscountPercent).Div(hundred)

		subtotal = subtotal.Add(base)
		discountTotal = discountTotal.Add(lineDiscount)
		taxTotal = taxTotal.Add(base.Sub(lineDiscount).Mul(it.TaxRatePercent).Div(hundred))
	}

	subtotal = subtotal.Round(2)
	discountTotal = discountTotal.Round(2)
	taxTotal = taxTotal.Round(2)

	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxTotal:      taxTotal,
		Total:         subtotal.Sub(discountTotal).Add(taxTotal),
	}, nil
}
