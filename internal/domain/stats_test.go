package domain

import (
	"math"
	"testing"
)

// TestFieldStats_IgnoresMissing tests that masked cells do not contribute.
func TestFieldStats_IgnoresMissing(t *testing.T) {
	f := Field{
		{1, 2},
		{3, math.NaN()},
	}

	s := FieldStats(f, true)

	// Valid cells are {1, 2, 3}: mean 2, population std sqrt(2/3)
	if math.Abs(s.Mean-2.0) > 1e-9 {
		t.Errorf("Mean: expected 2.0, got %.10f", s.Mean)
	}
	wantStd := math.Sqrt(2.0 / 3.0)
	if math.Abs(s.Std-wantStd) > 1e-9 {
		t.Errorf("Std: expected %.10f, got %.10f", wantStd, s.Std)
	}
	if math.Abs(s.Min-1.0) > 1e-9 {
		t.Errorf("Min: expected 1.0, got %.10f", s.Min)
	}
	if math.Abs(s.Max-3.0) > 1e-9 {
		t.Errorf("Max: expected 3.0, got %.10f", s.Max)
	}
}

// TestFieldStats_AllMissing tests that a fully masked window yields NaN,
// not a panic or an error.
func TestFieldStats_AllMissing(t *testing.T) {
	f := Field{
		{math.NaN(), math.NaN()},
		{math.NaN(), math.NaN()},
	}

	s := FieldStats(f, true)

	if !math.IsNaN(s.Mean) {
		t.Errorf("Mean: expected NaN, got %.10f", s.Mean)
	}
	if !math.IsNaN(s.Std) {
		t.Errorf("Std: expected NaN, got %.10f", s.Std)
	}
	if !math.IsNaN(s.Min) {
		t.Errorf("Min: expected NaN, got %.10f", s.Min)
	}
	if !math.IsNaN(s.Max) {
		t.Errorf("Max: expected NaN, got %.10f", s.Max)
	}
}

// TestFieldStats_WithoutMinMax tests that Min and Max stay NaN when not
// requested.
func TestFieldStats_WithoutMinMax(t *testing.T) {
	f := Field{{1, 2, 3, 4}}

	s := FieldStats(f, false)

	if math.Abs(s.Mean-2.5) > 1e-9 {
		t.Errorf("Mean: expected 2.5, got %.10f", s.Mean)
	}
	if !math.IsNaN(s.Min) || !math.IsNaN(s.Max) {
		t.Errorf("Min/Max: expected NaN, got %.10f / %.10f", s.Min, s.Max)
	}
}

// TestApplyMask tests that non-ocean cells become NaN and shape is kept.
func TestApplyMask(t *testing.T) {
	f := Field{
		{1, 2},
		{3, 4},
	}
	mask := [][]float64{
		{1, 0},
		{2, 1},
	}

	if err := f.ApplyMask(mask); err != nil {
		t.Fatalf("ApplyMask: unexpected error %v", err)
	}
	if f[0][0] != 1 || f[1][1] != 4 {
		t.Errorf("Ocean cells changed: got %v, %v", f[0][0], f[1][1])
	}
	// Land (0) and anything else but 1 are both excluded.
	if !math.IsNaN(f[0][1]) || !math.IsNaN(f[1][0]) {
		t.Errorf("Masked cells not NaN: got %v, %v", f[0][1], f[1][0])
	}
	if len(f) != 2 || len(f[0]) != 2 {
		t.Errorf("Shape changed: %dx%d", len(f), len(f[0]))
	}
}

// TestApplyMask_ShapeMismatch tests rejection of a wrongly sized mask.
func TestApplyMask_ShapeMismatch(t *testing.T) {
	f := Field{{1, 2}}
	if err := f.ApplyMask([][]float64{{1}, {1}}); err == nil {
		t.Error("ApplyMask: expected error for row mismatch")
	}
	if err := f.ApplyMask([][]float64{{1, 1, 1}}); err == nil {
		t.Error("ApplyMask: expected error for column mismatch")
	}
}

// TestQuantile tests the linear-interpolation quantile against hand-worked
// values.
func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0.0, 1.0},
		{0.10, 1.9},  // h = 0.9: 1 + 0.9*(2-1)
		{0.50, 5.5},  // h = 4.5: midpoint of 5 and 6
		{0.90, 9.1},  // h = 8.1: 9 + 0.1*(10-9)
		{1.0, 10.0},
	}

	for _, tt := range tests {
		got := Quantile(xs, tt.p)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Quantile(p=%.2f): expected %.4f, got %.10f", tt.p, tt.expected, got)
		}
	}
}

// TestQuantile_IgnoresNaN tests that NaN samples are dropped before
// interpolation.
func TestQuantile_IgnoresNaN(t *testing.T) {
	xs := []float64{math.NaN(), 1, 2, math.NaN(), 3}

	got := Quantile(xs, 0.5)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Quantile(0.5): expected 2.0, got %.10f", got)
	}
}

// TestQuantile_Degenerate tests the empty, all-NaN and single-value cases.
func TestQuantile_Degenerate(t *testing.T) {
	if got := Quantile(nil, 0.9); !math.IsNaN(got) {
		t.Errorf("Quantile(empty): expected NaN, got %.10f", got)
	}
	if got := Quantile([]float64{math.NaN()}, 0.9); !math.IsNaN(got) {
		t.Errorf("Quantile(all NaN): expected NaN, got %.10f", got)
	}
	if got := Quantile([]float64{7}, 0.9); math.Abs(got-7.0) > 1e-9 {
		t.Errorf("Quantile(single): expected 7.0, got %.10f", got)
	}
	if got := Quantile([]float64{1, 2}, 1.5); !math.IsNaN(got) {
		t.Errorf("Quantile(p>1): expected NaN, got %.10f", got)
	}
}

// TestMedian tests the even and odd sample counts.
func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Median(odd): expected 2.0, got %.10f", got)
	}
	if got := Median([]float64{1, 2, 3, 4}); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("Median(even): expected 2.5, got %.10f", got)
	}
}
