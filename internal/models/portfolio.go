package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio represents a user's portfolio of stock positions and cash.
// Positions and CashBalance are derived state: they are rebuilt by replaying
// the transaction journal and must never be edited directly.
type Portfolio struct {
	Base
	OwnerID         string          `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name            string          `gorm:"not null" json:"name"`
	CashBalance     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"cash_balance"`
	InceptionDate   time.Time       `gorm:"not null" json:"inception_date"`
	BenchmarkSymbol string          `json:"benchmark_symbol,omitempty"`

	// Version guards against concurrent writers. Every successful
	// transaction application increments it; updates that carry a stale
	// version affect zero rows and are rejected.
	Version int `gorm:"not null;default:0" json:"version"`

	Owner        User          `gorm:"foreignKey:OwnerID" json:"-"`
	Positions    []Position    `gorm:"foreignKey:PortfolioID" json:"positions,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:PortfolioID" json:"transactions,omitempty"`
}

// Position represents an open holding within a portfolio. There is at most
// one row per (portfolio, symbol); a fully sold position is deleted.
type Position struct {
	Base
	PortfolioID string          `gorm:"type:uuid;not null;uniqueIndex:uq_positions_portfolio_symbol" json:"portfolio_id"`
	Symbol      string          `gorm:"not null;uniqueIndex:uq_positions_portfolio_symbol" json:"symbol"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	CostBasis   decimal.Decimal `gorm:"type:numeric;not null" json:"cost_basis"`
	OpenDate    time.Time       `gorm:"not null" json:"open_date"`

	Portfolio Portfolio `gorm:"foreignKey:PortfolioID" json:"-"`
}

// Transaction represents one journal entry in a portfolio's ledger.
// Rows are append-only: never updated, never deleted.
type Transaction struct {
	Base
	PortfolioID string          `gorm:"type:uuid;not null;uniqueIndex:uq_transactions_portfolio_seq" json:"portfolio_id"`
	Sequence    int             `gorm:"not null;uniqueIndex:uq_transactions_portfolio_seq" json:"sequence"`
	Kind        string          `gorm:"not null" json:"kind"`
	Symbol      string          `json:"symbol,omitempty"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"price"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amount"`
	Fees        decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"fees"`
	Notes       string          `json:"notes,omitempty"`

	Portfolio Portfolio `gorm:"foreignKey:PortfolioID" json:"-"`
}
