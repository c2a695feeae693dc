package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a single symbol's holding inside a portfolio: the quantity
// currently held and the weighted-average price paid per share. A position
// exists only while its quantity is positive; selling the entire quantity
// removes it from the portfolio.
type Position struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	OpenDate  time.Time       `json:"open_date"`
}

// TotalCost returns the total amount paid for the held quantity.
func (p Position) TotalCost() decimal.Decimal {
	return p.Quantity.Mul(p.CostBasis)
}

// CurrentValue returns the market value of the position at the given price.
func (p Position) CurrentValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealizedGainLoss returns the paper profit or loss of the position at
// the given price.
func (p Position) UnrealizedGainLoss(price decimal.Decimal) decimal.Decimal {
	return p.CurrentValue(price).Sub(p.TotalCost())
}

// UnrealizedGainLossPercent returns the paper profit or loss as a
// percentage of total cost. The percentage is undefined when the total
// cost is zero (e.g. shares acquired at zero price); ok is false in that
// case rather than coercing the result to zero.
func (p Position) UnrealizedGainLossPercent(price decimal.Decimal) (float64, bool) {
	totalCost := p.TotalCost()
	if totalCost.IsZero() {
		return 0, false
	}
	pct, _ := p.UnrealizedGainLoss(price).Div(totalCost).Mul(decimal.NewFromInt(100)).Float64()
	return pct, true
}
