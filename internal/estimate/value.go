// Package estimate computes deal values for leads.
package estimate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// revenueRatio converts annual revenue to an expected deal size (0.1%).
var revenueRatio = decimal.RequireFromString("0.001")

// Clamp bounds for revenue-derived values, in whole dollars.
var (
	minValue = decimal.NewFromInt(1000)
	maxValue = decimal.NewFromInt(500000)
)

// layoutDefaults is the fallback deal value per source layout when no
// revenue is known.
var layoutDefaults = map[model.Layout]decimal.Decimal{
	model.LayoutCRMExport: decimal.NewFromInt(10000), // sales-qualified CRM contacts
	model.LayoutExecutive: decimal.NewFromInt(7500),  // executive lead lists
}

var defaultValue = decimal.NewFromInt(5000)

// Value computes the estimated deal value for a lead. With positive annual
// revenue the value is revenue * 0.001 clamped to [1000, 500000]; without
// it, a default keyed by source layout. The result is always inside the
// clamp range.
func Value(lead model.Lead) decimal.Decimal {
	if lead.AnnualRevenue != nil && lead.AnnualRevenue.IsPositive() {
		v := lead.AnnualRevenue.Mul(revenueRatio)
		if v.LessThan(minValue) {
			return minValue
		}
		if v.GreaterThan(maxValue) {
			return maxValue
		}
		return v
	}
	if v, ok := layoutDefaults[lead.SourceLayout]; ok {
		return v
	}
	return defaultValue
}

// FormatValue formats a dollar amount in human-readable form.
func FormatValue(v decimal.Decimal) string {
	f := v.InexactFloat64()
	switch {
	case f >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", f/1_000_000_000)
	case f >= 1_000_000:
		return fmt.Sprintf("$%.1fM", f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("$%.0fK", f/1_000)
	default:
		return fmt.Sprintf("$%.0f", f)
	}
}
