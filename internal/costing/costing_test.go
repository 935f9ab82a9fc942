package costing

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestCostPerKgRoundTrip(t *testing.T) {
	cases := []struct {
		cost   float64
		weight float64
	}{
		{570, 285},
		{1234.56, 78.9},
		{0.01, 0.2},
		{99999, 1},
	}

	for _, c := range cases {
		perKg := CostPerKg(c.cost, c.weight)
		if !almostEqual(perKg*c.weight, c.cost) {
			t.Errorf("CostPerKg(%v, %v)*weight = %v, want %v", c.cost, c.weight, perKg*c.weight, c.cost)
		}
	}
}

func TestCostPerKgZeroWeight(t *testing.T) {
	if got := CostPerKg(500, 0); got != 0 {
		t.Errorf("expected 0 for zero weight, got %v", got)
	}
	if got := CostPerKg(500, -3); got != 0 {
		t.Errorf("expected 0 for negative weight, got %v", got)
	}
}

func TestYieldPercent(t *testing.T) {
	// Reference scenario: 285kg carcass, 250kg output, 30kg waste.
	got := YieldPercent(250, 30, 285)
	want := 280.0 / 285.0 * 100
	if !almostEqual(got, want) {
		t.Errorf("YieldPercent(250, 30, 285) = %v, want %v", got, want)
	}

	if got := YieldPercent(100, 10, 0); got != 0 {
		t.Errorf("expected 0 for zero reference weight, got %v", got)
	}
}

func TestYieldPercentMonotonicInOutput(t *testing.T) {
	prev := -1.0
	for output := 0.0; output <= 250; output += 10 {
		y := YieldPercent(output, 30, 285)
		if y <= prev {
			t.Fatalf("yield not monotonically increasing: output=%v yield=%v prev=%v", output, y, prev)
		}
		prev = y
	}
}

func TestUnaccountedKg(t *testing.T) {
	if got := UnaccountedKg(285, 250, 30); !almostEqual(got, 5) {
		t.Errorf("UnaccountedKg(285, 250, 30) = %v, want 5", got)
	}
}

func TestMarginPercent(t *testing.T) {
	if got := MarginPercent(50, 200); !almostEqual(got, 25) {
		t.Errorf("MarginPercent(50, 200) = %v, want 25", got)
	}
	if got := MarginPercent(50, 0); got != 0 {
		t.Errorf("expected 0 for zero revenue, got %v", got)
	}
}

func TestVarianceSignConvention(t *testing.T) {
	// Shortage: counted less than expected.
	if got := Variance(48.5, 50.0); !almostEqual(got, -1.5) {
		t.Errorf("Variance(48.5, 50) = %v, want -1.5", got)
	}
	if got := VariancePercent(48.5, 50.0); !almostEqual(got, -3.0) {
		t.Errorf("VariancePercent(48.5, 50) = %v, want -3.0", got)
	}

	// Surplus is positive.
	if got := Variance(52, 50); got <= 0 {
		t.Errorf("surplus should be positive, got %v", got)
	}

	if got := VariancePercent(10, 0); got != 0 {
		t.Errorf("expected 0 when expected is 0, got %v", got)
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(1.2, 12, 0); !almostEqual(got, 14.4) {
		t.Errorf("LineTotal(1.2, 12, 0) = %v, want 14.4", got)
	}
	if got := LineTotal(2, 10, 5); !almostEqual(got, 15) {
		t.Errorf("LineTotal(2, 10, 5) = %v, want 15", got)
	}
}
