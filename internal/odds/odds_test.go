package odds

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Threshold pricer ---

func TestThreshold_FreshMarketBaseOdds(t *testing.T) {
	p := NewThresholdPricer()
	a, b := p.Price(decimal.Zero, decimal.Zero)
	if !a.Equal(d(1.90)) || !b.Equal(d(1.90)) {
		t.Errorf("expected 1.90/1.90 for empty market, got %s/%s", a, b)
	}
}

func TestThreshold_OneSidedFixedPair(t *testing.T) {
	p := NewThresholdPricer()

	a, b := p.Price(d(20), decimal.Zero)
	if !a.Equal(d(1.85)) || !b.Equal(d(1.95)) {
		t.Errorf("stake only on A: expected 1.85/1.95, got %s/%s", a, b)
	}

	a, b = p.Price(decimal.Zero, d(20))
	if !a.Equal(d(1.95)) || !b.Equal(d(1.85)) {
		t.Errorf("stake only on B: expected 1.95/1.85, got %s/%s", a, b)
	}
}

func TestThreshold_OneSidedIsNotProportionDerived(t *testing.T) {
	// A naive proportion formula would give the staked side
	// (1/1)×0.95 = 0.95, not 1.85. The fixed pair must win.
	p := NewThresholdPricer()
	a, _ := p.Price(d(500), decimal.Zero)
	if !a.Equal(d(1.85)) {
		t.Errorf("one-sided odds must be the fixed 1.85, got %s", a)
	}
}

func TestThreshold_BalancedBookPaysBase(t *testing.T) {
	// 50/50 split: (1/0.5)×0.95 = 1.90 on both sides.
	p := NewThresholdPricer()
	a, b := p.Price(d(20), d(20))
	if !a.Equal(d(1.90)) || !b.Equal(d(1.90)) {
		t.Errorf("expected 1.90/1.90 for balanced book, got %s/%s", a, b)
	}
}

func TestThreshold_ProportionCurve(t *testing.T) {
	p := NewThresholdPricer()

	tests := []struct {
		name           string
		sideA, sideB   float64
		wantA, wantB   float64
	}{
		// 30 vs 10: A pays (40/30)×0.95=1.2666→1.27, B pays (40/10)×0.95=3.8→clamped 3.0
		{"three to one", 30, 10, 1.27, 3.0},
		// 60 vs 40: A (100/60)×0.95=1.5833→1.58, B (100/40)×0.95=2.375→2.38
		{"three to two", 60, 40, 1.58, 2.38},
		// 1000 vs 1: A side rounds below the floor and clamps to 1.05
		{"runaway favourite", 1000, 1, 1.05, 3.0},
	}

	for _, tt := range tests {
		a, b := p.Price(d(tt.sideA), d(tt.sideB))
		if !a.Equal(d(tt.wantA)) || !b.Equal(d(tt.wantB)) {
			t.Errorf("%s: expected %.2f/%.2f, got %s/%s",
				tt.name, tt.wantA, tt.wantB, a, b)
		}
	}
}

func TestThreshold_OddsAlwaysWithinBounds(t *testing.T) {
	p := NewThresholdPricer()
	amounts := []float64{0, 1, 5, 50, 500, 100000}
	for _, av := range amounts {
		for _, bv := range amounts {
			a, b := p.Price(d(av), d(bv))
			for _, o := range []decimal.Decimal{a, b} {
				if o.LessThan(p.MinOdds) || o.GreaterThan(p.MaxOdds) {
					t.Errorf("odds %s out of bounds for totals %v/%v", o, av, bv)
				}
			}
		}
	}
}

// --- Team pricer ---

func TestTeam_FreshMarketBaseOdds(t *testing.T) {
	p := NewTeamPricer()
	a, b := p.Price(d(1.90), d(1.90), decimal.Zero, decimal.Zero)
	if !a.Equal(d(1.90)) || !b.Equal(d(1.90)) {
		t.Errorf("expected base odds for empty market, got %s/%s", a, b)
	}
}

func TestTeam_OneSidedNudge(t *testing.T) {
	p := NewTeamPricer()
	a, b := p.Price(d(1.90), d(1.90), d(20), decimal.Zero)
	if !a.Equal(d(1.85)) || !b.Equal(d(1.95)) {
		t.Errorf("expected 1.85/1.95 after one-sided stake, got %s/%s", a, b)
	}
}

func TestTeam_EqualTotalsNoShift(t *testing.T) {
	p := NewTeamPricer()
	a, b := p.Price(d(1.85), d(1.95), d(20), d(20))
	if !a.Equal(d(1.85)) || !b.Equal(d(1.95)) {
		t.Errorf("equal totals must not shift odds, got %s/%s", a, b)
	}
}

func TestTeam_RatioShift(t *testing.T) {
	p := NewTeamPricer()

	// ratio 2.0 → shift floor(200)/100 × 0.05 = 0.10
	a, b := p.Price(d(1.90), d(1.90), d(40), d(20))
	if !a.Equal(d(1.80)) || !b.Equal(d(2.00)) {
		t.Errorf("ratio 2 shift: expected 1.80/2.00, got %s/%s", a, b)
	}

	// heavier B side shifts the other way
	a, b = p.Price(d(1.90), d(1.90), d(20), d(40))
	if !a.Equal(d(2.00)) || !b.Equal(d(1.80)) {
		t.Errorf("ratio 2 shift (B heavy): expected 2.00/1.80, got %s/%s", a, b)
	}
}

func TestTeam_RatioTruncatedBeforeScaling(t *testing.T) {
	// ratio 40/30 = 1.333… → floor(133.33)/100 = 1.33 → shift 0.0665,
	// odds 1.8335/1.9665 round to 1.83/1.97.
	p := NewTeamPricer()
	a, b := p.Price(d(1.90), d(1.90), d(40), d(30))
	if !a.Equal(d(1.83)) || !b.Equal(d(1.97)) {
		t.Errorf("expected 1.83/1.97, got %s/%s", a, b)
	}
}

func TestTeam_ShiftCapped(t *testing.T) {
	// ratio 100 would give shift 5.0; cap holds it at 0.5.
	p := NewTeamPricer()
	a, b := p.Price(d(1.90), d(1.90), d(100), d(1))
	if !a.Equal(d(1.40)) || !b.Equal(d(2.40)) {
		t.Errorf("expected capped shift 1.40/2.40, got %s/%s", a, b)
	}
}

func TestTeam_NudgeIsIncremental(t *testing.T) {
	// Two successive one-way stakes keep walking the same direction
	// instead of recomputing from base each time.
	p := NewTeamPricer()
	a, b := p.Price(d(1.90), d(1.90), d(10), decimal.Zero)
	a, b = p.Price(a, b, d(20), decimal.Zero)
	if !a.Equal(d(1.80)) || !b.Equal(d(2.00)) {
		t.Errorf("expected 1.80/2.00 after two one-sided stakes, got %s/%s", a, b)
	}
}

func TestTeam_ClampedToBounds(t *testing.T) {
	p := NewTeamPricer()
	a, b := p.Price(d(1.12), d(2.95), d(30), decimal.Zero)
	if !a.Equal(d(1.10)) {
		t.Errorf("expected floor clamp to 1.10, got %s", a)
	}
	if !b.Equal(d(3.00)) {
		t.Errorf("expected ceiling clamp to 3.00, got %s", b)
	}
}

// --- Payout ---

func TestPayout_Floors(t *testing.T) {
	tests := []struct {
		amount, odds, want float64
	}{
		{20, 1.95, 39},
		{10, 1.85, 18}, // 18.5 floors to 18
		{20, 1.90, 38},
		{1, 1.05, 1},
	}
	for _, tt := range tests {
		got := Payout(d(tt.amount), d(tt.odds))
		if !got.Equal(d(tt.want)) {
			t.Errorf("Payout(%v, %v) = %s, want %v", tt.amount, tt.odds, got, tt.want)
		}
	}
}
