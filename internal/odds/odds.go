// Package odds implements the pari-mutuel style pricing curves for the
// two binary market families.
//
// Threshold (over/under) markets recompute odds from the current stake
// proportions with a flat house edge. Team (match winner) markets nudge
// the previous odds toward the lighter side on every stake instead of
// recomputing from scratch.
//
// All amounts and odds use shopspring/decimal — never float64 for money.
package odds

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places odds are rounded to.
const Scale int32 = 2

var (
	// BaseOdds is the starting price for both sides of a fresh market
	// in either family (a 1.90/1.90 book, ~5% over-round).
	BaseOdds = decimal.NewFromFloat(1.90)

	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Payout returns the points paid to a winning stake: floor(amount × odds).
func Payout(amount, odds decimal.Decimal) decimal.Decimal {
	return amount.Mul(odds).Floor()
}

// ThresholdPricer prices over/under markets. It is stateless — side
// totals are passed as arguments, not stored.
type ThresholdPricer struct {
	Base      decimal.Decimal // odds when both sides are empty
	StakedOne decimal.Decimal // odds for the only staked side
	EmptyOne  decimal.Decimal // odds for the opposite, empty side
	HouseEdge decimal.Decimal // fractional discount off fair odds
	MinOdds   decimal.Decimal
	MaxOdds   decimal.Decimal
}

// NewThresholdPricer returns a pricer with the reference parameters:
// base 1.90, one-sided book 1.85/1.95, 5% house edge, bounds [1.05, 3.00].
func NewThresholdPricer() *ThresholdPricer {
	return &ThresholdPricer{
		Base:      BaseOdds,
		StakedOne: decimal.NewFromFloat(1.85),
		EmptyOne:  decimal.NewFromFloat(1.95),
		HouseEdge: decimal.NewFromFloat(0.05),
		MinOdds:   decimal.NewFromFloat(1.05),
		MaxOdds:   decimal.NewFromFloat(3.0),
	}
}

// Price maps the cumulative staked amounts on each side to a fresh odds
// pair. With both sides staked each side pays
//
//	(1 / proportion) × (1 − houseEdge)
//
// where proportion = side amount / total. A one-sided book gets the
// fixed asymmetric pair instead of a proportion-derived value, so the
// lone early stake cannot see degenerate 0.95 odds.
func (p *ThresholdPricer) Price(sideA, sideB decimal.Decimal) (oddsA, oddsB decimal.Decimal) {
	aStaked := sideA.IsPositive()
	bStaked := sideB.IsPositive()

	switch {
	case !aStaked && !bStaked:
		return p.Base, p.Base
	case aStaked && !bStaked:
		oddsA, oddsB = p.StakedOne, p.EmptyOne
	case bStaked && !aStaked:
		oddsA, oddsB = p.EmptyOne, p.StakedOne
	default:
		// (1/proportion) = total/side; fold the edge in once.
		total := sideA.Add(sideB)
		keep := one.Sub(p.HouseEdge)
		oddsA = total.Div(sideA).Mul(keep)
		oddsB = total.Div(sideB).Mul(keep)
	}

	return p.clamp(oddsA), p.clamp(oddsB)
}

func (p *ThresholdPricer) clamp(o decimal.Decimal) decimal.Decimal {
	o = o.Round(Scale)
	if o.LessThan(p.MinOdds) {
		return p.MinOdds
	}
	if o.GreaterThan(p.MaxOdds) {
		return p.MaxOdds
	}
	return o
}

// TeamPricer prices match-winner markets with an incremental nudge
// model: each accepted stake shifts the existing odds pair rather than
// recomputing it from the totals.
type TeamPricer struct {
	Base     decimal.Decimal
	Step     decimal.Decimal // one-sided shift per stake
	MaxShift decimal.Decimal // cap on a single ratio-derived shift
	MinOdds  decimal.Decimal
	MaxOdds  decimal.Decimal
}

// NewTeamPricer returns a pricer with the reference parameters:
// base 1.90, 0.05 step, 0.5 shift cap, bounds [1.10, 3.00].
func NewTeamPricer() *TeamPricer {
	return &TeamPricer{
		Base:     BaseOdds,
		Step:     decimal.NewFromFloat(0.05),
		MaxShift: decimal.NewFromFloat(0.5),
		MinOdds:  decimal.NewFromFloat(1.1),
		MaxOdds:  decimal.NewFromFloat(3.0),
	}
}

// Price shifts the current odds pair based on the cumulative totals
// after a stake is applied:
//
//   - both sides empty: reset to base odds
//   - one side staked: shift Step away from the staked side
//   - both staked, unequal: shift min(MaxShift, floor(ratio×100)/100 × Step)
//     away from the heavier side, where ratio = larger/smaller
//   - equal totals: no shift
//
// The shift is applied to the existing odds, so repeated one-way flow
// walks the price toward the bounds instead of snapping there.
func (p *TeamPricer) Price(currentA, currentB, amountA, amountB decimal.Decimal) (oddsA, oddsB decimal.Decimal) {
	oddsA, oddsB = currentA, currentB

	aStaked := amountA.IsPositive()
	bStaked := amountB.IsPositive()

	switch {
	case !aStaked && !bStaked:
		return p.Base, p.Base
	case aStaked && !bStaked:
		oddsA = oddsA.Sub(p.Step)
		oddsB = oddsB.Add(p.Step)
	case bStaked && !aStaked:
		oddsA = oddsA.Add(p.Step)
		oddsB = oddsB.Sub(p.Step)
	case amountA.GreaterThan(amountB):
		shift := p.shiftFor(amountA, amountB)
		oddsA = oddsA.Sub(shift)
		oddsB = oddsB.Add(shift)
	case amountB.GreaterThan(amountA):
		shift := p.shiftFor(amountB, amountA)
		oddsA = oddsA.Add(shift)
		oddsB = oddsB.Sub(shift)
	}

	return p.clamp(oddsA), p.clamp(oddsB)
}

// shiftFor computes min(MaxShift, floor(ratio×100)/100 × Step) for
// ratio = larger/smaller.
func (p *TeamPricer) shiftFor(larger, smaller decimal.Decimal) decimal.Decimal {
	ratio := larger.Div(smaller)
	truncated := ratio.Mul(hundred).Floor().Div(hundred)
	shift := truncated.Mul(p.Step)
	if shift.GreaterThan(p.MaxShift) {
		return p.MaxShift
	}
	return shift
}

func (p *TeamPricer) clamp(o decimal.Decimal) decimal.Decimal {
	if o.LessThan(p.MinOdds) {
		o = p.MinOdds
	}
	if o.GreaterThan(p.MaxOdds) {
		o = p.MaxOdds
	}
	return o.Round(Scale)
}
