package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceLookup resolves the current price for a symbol. ok is false when no
// price is available; positions with no resolvable price are excluded from
// valuation and reported as gaps instead of being silently valued at zero.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

var hundred = decimal.NewFromInt(100)

// Valuation is a point-in-time market valuation of a portfolio snapshot.
type Valuation struct {
	CashBalance    decimal.Decimal `json:"cash_balance"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	PriceGaps      []string        `json:"price_gaps,omitempty"`
}

// Value computes the market value of the snapshot using the given price
// source. Symbols the source cannot resolve contribute nothing and are
// listed in PriceGaps, sorted for deterministic output.
func Value(p Portfolio, lookup PriceLookup) Valuation {
	v := Valuation{CashBalance: p.CashBalance, PositionsValue: decimal.Zero}
	for sym, pos := range p.Positions {
		price, ok := lookup(sym)
		if !ok {
			v.PriceGaps = append(v.PriceGaps, sym)
			continue
		}
		v.PositionsValue = v.PositionsValue.Add(pos.CurrentValue(price))
	}
	sort.Strings(v.PriceGaps)
	v.TotalValue = v.CashBalance.Add(v.PositionsValue)
	return v
}

// TotalValue returns cash plus the market value of all priced positions.
func TotalValue(p Portfolio, lookup PriceLookup) decimal.Decimal {
	return Value(p, lookup).TotalValue
}

// RealizedGainLoss computes the profit crystallized by sell transactions,
// replaying the journal in application order with an average-cost pool per
// symbol: each buy adds shares and cost to the pool, each sell removes the
// sold shares at the pool's average cost and books the difference against
// the sale amount. Fees are not netted here; they show up in the cash
// ledger and in performance reports.
func RealizedGainLoss(p Portfolio) decimal.Decimal {
	type pool struct {
		quantity decimal.Decimal
		cost     decimal.Decimal
	}
	pools := map[string]*pool{}
	realized := decimal.Zero

	for _, tx := range p.Transactions {
		switch tx.Kind {
		case KindBuy:
			pl, ok := pools[tx.Symbol]
			if !ok {
				pl = &pool{quantity: decimal.Zero, cost: decimal.Zero}
				pools[tx.Symbol] = pl
			}
			pl.quantity = pl.quantity.Add(tx.Quantity)
			pl.cost = pl.cost.Add(tx.Amount)

		case KindSell:
			pl, ok := pools[tx.Symbol]
			if !ok || !pl.quantity.IsPositive() {
				continue
			}
			avgCost := pl.cost.Div(pl.quantity)
			consumed := decimal.Min(tx.Quantity, pl.quantity)
			consumedCost := consumed.Mul(avgCost)
			realized = realized.Add(tx.Amount.Sub(consumedCost))
			pl.quantity = pl.quantity.Sub(consumed)
			pl.cost = pl.cost.Sub(consumedCost)
		}
	}

	return realized
}

// PositionGain is the unrealized gain breakdown for one open position.
// Price-dependent fields are nil when the position's symbol has no
// resolvable price; the percentage is additionally nil when the cost basis
// total is zero.
type PositionGain struct {
	Symbol                    string           `json:"symbol"`
	Quantity                  decimal.Decimal  `json:"quantity"`
	CostBasis                 decimal.Decimal  `json:"cost_basis"`
	TotalCost                 decimal.Decimal  `json:"total_cost"`
	CurrentPrice              *decimal.Decimal `json:"current_price,omitempty"`
	CurrentValue              *decimal.Decimal `json:"current_value,omitempty"`
	UnrealizedGainLoss        *decimal.Decimal `json:"unrealized_gain_loss,omitempty"`
	UnrealizedGainLossPercent *float64         `json:"unrealized_gain_loss_percent,omitempty"`
}

// GainsReport combines realized gains from the journal with unrealized
// gains on the open positions.
type GainsReport struct {
	Realized                  decimal.Decimal `json:"realized_gain_loss"`
	Unrealized                decimal.Decimal `json:"unrealized_gain_loss"`
	UnrealizedGainLossPercent *float64        `json:"unrealized_gain_loss_percent,omitempty"`
	Positions                 []PositionGain  `json:"positions"`
	PriceGaps                 []string        `json:"price_gaps,omitempty"`
}

// Gains computes realized and unrealized gain/loss for the snapshot.
// Aggregate unrealized figures cover priced positions only.
func Gains(p Portfolio, lookup PriceLookup) GainsReport {
	report := GainsReport{
		Realized:   RealizedGainLoss(p),
		Unrealized: decimal.Zero,
		Positions:  make([]PositionGain, 0, len(p.Positions)),
	}

	pricedCost := decimal.Zero
	symbols := make([]string, 0, len(p.Positions))
	for sym := range p.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		pos := p.Positions[sym]
		pg := PositionGain{
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			CostBasis: pos.CostBasis,
			TotalCost: pos.TotalCost(),
		}
		price, ok := lookup(sym)
		if !ok {
			report.PriceGaps = append(report.PriceGaps, sym)
			report.Positions = append(report.Positions, pg)
			continue
		}
		value := pos.CurrentValue(price)
		gain := pos.UnrealizedGainLoss(price)
		pg.CurrentPrice = &price
		pg.CurrentValue = &value
		pg.UnrealizedGainLoss = &gain
		if pct, defined := pos.UnrealizedGainLossPercent(price); defined {
			pg.UnrealizedGainLossPercent = &pct
		}
		report.Unrealized = report.Unrealized.Add(gain)
		pricedCost = pricedCost.Add(pos.TotalCost())
		report.Positions = append(report.Positions, pg)
	}

	if !pricedCost.IsZero() {
		pct, _ := report.Unrealized.Div(pricedCost).Mul(hundred).Float64()
		report.UnrealizedGainLossPercent = &pct
	}

	return report
}

// PerformanceReport summarizes cash flows and returns over a date range.
// When the net contributed capital over the range is not positive the
// return figures are zero; the cash-flow sums are always populated.
type PerformanceReport struct {
	Start              time.Time       `json:"start"`
	End                time.Time       `json:"end"`
	Deposits           decimal.Decimal `json:"deposits"`
	Withdrawals        decimal.Decimal `json:"withdrawals"`
	Fees               decimal.Decimal `json:"fees"`
	Dividends          decimal.Decimal `json:"dividends"`
	CurrentValue       decimal.Decimal `json:"current_value"`
	InitialValue       decimal.Decimal `json:"initial_value"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent float64         `json:"total_return_percent"`
	AnnualizedReturn   float64         `json:"annualized_return"`
}

// Performance computes the performance report over [start, end]. It is a
// pure function of the snapshot: calling it twice with the same inputs
// yields the same report.
func Performance(p Portfolio, lookup PriceLookup, start, end time.Time) PerformanceReport {
	report := PerformanceReport{
		Start:       start,
		End:         end,
		Deposits:    decimal.Zero,
		Withdrawals: decimal.Zero,
		Fees:        decimal.Zero,
		Dividends:   decimal.Zero,
		TotalReturn: decimal.Zero,
	}

	for _, tx := range p.Transactions {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		report.Fees = report.Fees.Add(tx.Fees)
		switch tx.Kind {
		case KindDeposit:
			report.Deposits = report.Deposits.Add(tx.Amount)
		case KindWithdrawal:
			report.Withdrawals = report.Withdrawals.Add(tx.Amount)
		case KindDividend:
			report.Dividends = report.Dividends.Add(tx.Amount)
		}
	}

	report.CurrentValue = TotalValue(p, lookup)
	report.InitialValue = report.Deposits.Sub(report.Withdrawals)
	if !report.InitialValue.IsPositive() {
		report.InitialValue = decimal.Zero
		return report
	}

	report.TotalReturn = report.CurrentValue.Sub(report.InitialValue)
	ratio, _ := report.TotalReturn.Div(report.InitialValue).Float64()
	report.TotalReturnPercent = ratio * 100

	days := end.Sub(start).Hours() / 24
	if days > 0 {
		report.AnnualizedReturn = (math.Pow(1+ratio, 365.25/days) - 1) * 100
	}

	return report
}

// Allocation returns each position's share of total portfolio value as a
// percentage, plus a "CASH" entry for the cash balance. Unpriced positions
// get no entry. The mapping is empty when total value is zero.
func Allocation(p Portfolio, lookup PriceLookup) map[string]float64 {
	v := Value(p, lookup)
	if v.TotalValue.IsZero() {
		return map[string]float64{}
	}

	allocation := make(map[string]float64, len(p.Positions)+1)
	for sym, pos := range p.Positions {
		price, ok := lookup(sym)
		if !ok {
			continue
		}
		pct, _ := pos.CurrentValue(price).Div(v.TotalValue).Mul(hundred).Float64()
		allocation[sym] = pct
	}
	cashPct, _ := p.CashBalance.Div(v.TotalValue).Mul(hundred).Float64()
	allocation["CASH"] = cashPct
	return allocation
}
