// Package pricing turns price triggers into display-ready alerts.
//
// Everything here is pure: no I/O, no shared state, inputs are never mutated.
// Callers validate triggers (see internal/validate) before they get here.
package pricing

import (
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOnSale      Status = "ON_SALE"
	StatusAboveTarget Status = "ABOVE_TARGET"
	StatusUnknown     Status = "UNKNOWN"
)

// Comparison is the relationship between a target and an observed price.
// Delta (current - target) is only valid when the current price was known.
type Comparison struct {
	Status Status
	Delta  decimal.NullDecimal
}

// Compare classifies current against target. Meeting the target exactly
// counts as on sale.
func Compare(target decimal.Decimal, current decimal.NullDecimal) Comparison {
	if !current.Valid {
		return Comparison{Status: StatusUnknown}
	}
	delta := current.Decimal.Sub(target)
	status := StatusAboveTarget
	if delta.Sign() <= 0 {
		status = StatusOnSale
	}
	return Comparison{Status: status, Delta: decimal.NewNullDecimal(delta)}
}

// FormatAmount renders d with exactly two decimals, rounding half away from
// zero (half-up for the non-negative amounts shown to users).
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
