package regime

import "testing"

func TestDetectHighVolOnATRAlone(t *testing.T) {
	d := NewDetector()
	got := d.Detect(Indicators{SPYATRPct: 3.5, VIXProxy: 10})
	if got != HighVol {
		t.Fatalf("Detect() = %v, want HighVol when ATR alone exceeds 3%%", got)
	}
}

func TestDetectHighVolOnVIXAlone(t *testing.T) {
	d := NewDetector()
	got := d.Detect(Indicators{SPYATRPct: 1.0, VIXProxy: 30})
	if got != HighVol {
		t.Fatalf("Detect() = %v, want HighVol when VIX alone exceeds 25", got)
	}
}

func TestDetectLowVolRequiresBothVotes(t *testing.T) {
	d := NewDetector()
	got := d.Detect(Indicators{SPYATRPct: 1.0, VIXProxy: 10})
	if got != LowVol {
		t.Fatalf("Detect() = %v, want LowVol when both ATR and VIX are low", got)
	}
}

func TestDetectNormalWhenVotesSplitLow(t *testing.T) {
	d := NewDetector()
	got := d.Detect(Indicators{SPYATRPct: 1.0, VIXProxy: 20})
	if got != Normal {
		t.Fatalf("Detect() = %v, want Normal when only one vote is low", got)
	}
}

func TestBandByRegime(t *testing.T) {
	cases := []struct {
		r    Regime
		want RSIBand
	}{
		{HighVol, RSIBand{Low: 65, High: 75}},
		{LowVol, RSIBand{Low: 55, High: 65}},
		{Normal, RSIBand{Low: 60, High: 70}},
	}
	for _, c := range cases {
		if got := c.r.Band(); got != c.want {
			t.Errorf("Band(%v) = %v, want %v", c.r, got, c.want)
		}
	}
}
