package scoring

import "testing"

func TestPiecewiseLinearClampsBelowDomain(t *testing.T) {
	pts := []point{{1.0, 0}, {2.5, 60}, {5, 85}, {10, 100}}
	if got := piecewiseLinear(0.5, pts); got != 0 {
		t.Fatalf("piecewiseLinear(0.5) = %v, want 0", got)
	}
}

func TestPiecewiseLinearClampsAboveDomain(t *testing.T) {
	pts := []point{{1.0, 0}, {2.5, 60}, {5, 85}, {10, 100}}
	if got := piecewiseLinear(20, pts); got != 100 {
		t.Fatalf("piecewiseLinear(20) = %v, want 100", got)
	}
}

func TestPiecewiseLinearInterpolatesBetweenKnots(t *testing.T) {
	pts := []point{{0, 0}, {10, 100}}
	if got := piecewiseLinear(5, pts); got != 50 {
		t.Fatalf("piecewiseLinear(5) = %v, want 50", got)
	}
}

func TestClamp(t *testing.T) {
	if clamp(-5, 0, 100) != 0 {
		t.Fatal("clamp did not floor")
	}
	if clamp(150, 0, 100) != 100 {
		t.Fatal("clamp did not ceiling")
	}
	if clamp(50, 0, 100) != 50 {
		t.Fatal("clamp altered an in-range value")
	}
}
