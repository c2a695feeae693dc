package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is an immutable snapshot of one portfolio: its cash balance,
// its open positions keyed by symbol, and the append-only transaction
// journal. The journal is the sole source of truth; positions and the cash
// balance are derived from it and updated together on every Apply.
type Portfolio struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	OwnerID         string              `json:"owner_id"`
	CashBalance     decimal.Decimal     `json:"cash_balance"`
	InceptionDate   time.Time           `json:"inception_date"`
	BenchmarkSymbol string              `json:"benchmark_symbol"`
	Positions       map[string]Position `json:"positions"`
	Transactions    []Transaction       `json:"transactions"`
}

// NewPortfolio returns an empty portfolio snapshot with the given identity
// and starting cash balance.
func NewPortfolio(id, name, ownerID string, cash decimal.Decimal, inception time.Time) Portfolio {
	return Portfolio{
		ID:            id,
		Name:          name,
		OwnerID:       ownerID,
		CashBalance:   cash,
		InceptionDate: inception,
		Positions:     map[string]Position{},
	}
}

// Position returns the holding for a symbol, if any.
func (p Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.Positions[symbol]
	return pos, ok
}

// TransactionsFor returns the journal entries for one symbol, in
// application order.
func (p Portfolio) TransactionsFor(symbol string) []Transaction {
	var out []Transaction
	for _, tx := range p.Transactions {
		if tx.Symbol == symbol {
			out = append(out, tx)
		}
	}
	return out
}

// clone returns a copy sharing nothing mutable with the receiver, so a
// failed or partial Apply can never be observed through the original.
func (p Portfolio) clone() Portfolio {
	next := p
	next.Positions = make(map[string]Position, len(p.Positions)+1)
	for sym, pos := range p.Positions {
		next.Positions[sym] = pos
	}
	next.Transactions = make([]Transaction, len(p.Transactions), len(p.Transactions)+1)
	copy(next.Transactions, p.Transactions)
	return next
}

// Apply validates a transaction and applies it to the snapshot, returning
// a new snapshot with the cash balance, positions, and journal updated
// together. On any error the original snapshot is returned unchanged.
//
// Buys create a position on the first purchase of a symbol and fold
// subsequent purchases into a weighted-average cost basis. Sells reduce
// quantity only — the cost basis of the remaining shares never changes —
// and remove the position when the entire quantity is sold. A sell against
// an absent position fails with PositionNotFoundError; a sell exceeding
// the held quantity fails with InsufficientQuantityError.
func Apply(p Portfolio, tx Transaction) (Portfolio, error) {
	tx = tx.Normalized()
	if err := Validate(tx); err != nil {
		return p, err
	}

	next := p.clone()
	next.CashBalance = next.CashBalance.Add(NetAmount(tx))

	switch tx.Kind {
	case KindBuy:
		if pos, ok := next.Positions[tx.Symbol]; ok {
			newQty := pos.Quantity.Add(tx.Quantity)
			totalCost := pos.TotalCost().Add(tx.Price.Mul(tx.Quantity))
			pos.Quantity = newQty
			pos.CostBasis = totalCost.Div(newQty)
			next.Positions[tx.Symbol] = pos
		} else {
			next.Positions[tx.Symbol] = Position{
				Symbol:    tx.Symbol,
				Quantity:  tx.Quantity,
				CostBasis: tx.Price,
				OpenDate:  tx.Date,
			}
		}

	case KindSell:
		pos, ok := next.Positions[tx.Symbol]
		if !ok {
			return p, &PositionNotFoundError{Symbol: tx.Symbol}
		}
		if tx.Quantity.GreaterThan(pos.Quantity) {
			return p, &InsufficientQuantityError{
				Symbol:    tx.Symbol,
				Held:      pos.Quantity.String(),
				Requested: tx.Quantity.String(),
			}
		}
		remaining := pos.Quantity.Sub(tx.Quantity)
		if remaining.IsZero() {
			delete(next.Positions, tx.Symbol)
		} else {
			pos.Quantity = remaining
			next.Positions[tx.Symbol] = pos
		}

	case KindDividend, KindSplit, KindDeposit, KindWithdrawal, KindFee, KindInterest, KindOther:
		// Cash-only or no-op events; the net amount above is the whole effect.
	}

	next.Transactions = append(next.Transactions, tx)
	return next, nil
}

// Replay folds a sequence of transactions into the snapshot, stopping at
// the first failure. It is how a snapshot is rebuilt from a persisted
// journal.
func Replay(p Portfolio, txs []Transaction) (Portfolio, error) {
	for _, tx := range txs {
		next, err := Apply(p, tx)
		if err != nil {
			return p, err
		}
		p = next
	}
	return p, nil
}
