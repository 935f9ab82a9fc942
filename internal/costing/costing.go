// Package costing holds the pure arithmetic shared by receiving, cutting,
// sales and reconciliation. Every function is stateless and total: a zero
// denominator returns zero instead of an error, because screens render these
// numbers for half-entered records all the time.
package costing

// CostPerKg allocates a total acquisition cost across weight.
func CostPerKg(totalCost, weightKg float64) float64 {
	if weightKg <= 0 {
		return 0
	}
	return totalCost / weightKg
}

// YieldPercent reports accounted-for weight (products plus recorded waste) as
// a percentage of the reference input weight. Waste counts as accounted: the
// quantity operators drive toward zero is the unaccounted remainder
// (reference - output - waste), not the waste itself.
func YieldPercent(outputKg, wasteKg, referenceKg float64) float64 {
	if referenceKg <= 0 {
		return 0
	}
	return (outputKg + wasteKg) / referenceKg * 100
}

// UnaccountedKg is the shrinkage left after output and waste are removed
// from the input weight.
func UnaccountedKg(inputKg, outputKg, wasteKg float64) float64 {
	return inputKg - outputKg - wasteKg
}

// MarginPercent expresses margin as a share of revenue.
func MarginPercent(marginAmount, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return marginAmount / revenue * 100
}

// Variance is signed actual minus expected. Positive means surplus.
func Variance(actual, expected float64) float64 {
	return actual - expected
}

// VariancePercent is the variance relative to expected, zero when expected
// is zero.
func VariancePercent(actual, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return Variance(actual, expected) / expected * 100
}

// LineTotal computes a sale line total from weight, unit price and discount.
func LineTotal(quantityKg, unitPrice, lineDiscount float64) float64 {
	return quantityKg*unitPrice - lineDiscount
}
