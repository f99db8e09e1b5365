package journal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the epsilon under which an entry counts as
// balanced, one currency minor unit.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Validate enforces the double-entry invariant before any persistence
// attempt. It returns the normalized line set with zero-amount lines
// dropped, or a *ValidationError / *UnbalancedEntryError describing what
// the caller must fix.
func Validate(lines []Line) ([]Line, error) {
	normalized := make([]Line, 0, len(lines))

	var totalDebit, totalCredit decimal.Decimal

	for i, l := range lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return nil, &ValidationError{Msg: fmt.Sprintf("line %d: amounts must not be negative", i+1)}
		}

		if l.Debit.IsPositive() && l.Credit.IsPositive() {
			return nil, &ValidationError{Msg: fmt.Sprintf("line %d: only one of debit or credit may be set", i+1)}
		}

		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}

		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
		normalized = append(normalized, l)
	}

	if len(normalized) < 2 {
		return nil, &ValidationError{Msg: "entry requires at least two lines with a nonzero amount"}
	}

	if diff := totalDebit.Sub(totalCredit).Abs(); diff.GreaterThanOrEqual(balanceTolerance) {
		return nil, &UnbalancedEntryError{
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Difference:  diff,
		}
	}

	return normalized, nil
}
