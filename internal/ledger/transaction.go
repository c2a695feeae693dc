// Package ledger implements the portfolio accounting engine: applying
// financial transactions to a portfolio's cash balance and holdings, and
// deriving valuation, allocation, and return metrics from the resulting
// transaction journal.
//
// The package is pure: Apply takes a Portfolio snapshot and returns a new
// one, performing no I/O and touching no shared state. Persistence and the
// single-writer-per-portfolio guarantee belong to the caller (see the
// services package).
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the type of a ledger transaction. It is a closed set;
// NetAmount and Apply switch over every value so a new kind cannot be added
// without updating every consumer.
type Kind string

const (
	KindBuy        Kind = "buy"
	KindSell       Kind = "sell"
	KindDividend   Kind = "dividend"
	KindSplit      Kind = "split"
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindFee        Kind = "fee"
	KindInterest   Kind = "interest"
	KindOther      Kind = "other"
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindDividend, KindSplit, KindDeposit,
		KindWithdrawal, KindFee, KindInterest, KindOther:
		return true
	}
	return false
}

// Transaction is an immutable record of one ledger event. Symbol, Quantity,
// and Price are required for buy/sell transactions; Amount is the total
// currency value of the event and defaults to Quantity×Price when unset.
type Transaction struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Symbol   string          `json:"symbol,omitempty"`
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Fees     decimal.Decimal `json:"fees"`
	Notes    string          `json:"notes,omitempty"`
}

// Normalized returns a copy of the transaction with Amount derived as
// Quantity×Price when Amount is unset and both quantity and price are set.
func (t Transaction) Normalized() Transaction {
	if t.Amount.IsZero() && !t.Quantity.IsZero() && !t.Price.IsZero() {
		t.Amount = t.Quantity.Mul(t.Price)
	}
	return t
}

// Validate checks a transaction against the ledger's invariants without
// mutating any state. Buy and sell transactions must carry a symbol, a
// positive quantity, and a non-negative price; every kind must carry a
// non-negative amount (after derivation) and non-negative fees.
func Validate(t Transaction) error {
	t = t.Normalized()

	if !t.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown transaction kind"}
	}

	if t.Kind == KindBuy || t.Kind == KindSell {
		if t.Symbol == "" {
			return &ValidationError{Field: "symbol", Reason: "required for buy and sell transactions"}
		}
		if !t.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
		}
		if t.Price.IsNegative() {
			return &ValidationError{Field: "price", Reason: "must not be negative"}
		}
	}

	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if t.Fees.IsNegative() {
		return &ValidationError{Field: "fees", Reason: "must not be negative"}
	}

	return nil
}

// NetAmount returns the signed effect of the transaction on the cash
// balance. Splits and "other" events have no direct cash effect.
func NetAmount(t Transaction) decimal.Decimal {
	switch t.Kind {
	case KindBuy, KindWithdrawal, KindFee:
		return t.Amount.Add(t.Fees).Neg()
	case KindSell, KindDividend, KindDeposit, KindInterest:
		return t.Amount.Sub(t.Fees)
	case KindSplit, KindOther:
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
