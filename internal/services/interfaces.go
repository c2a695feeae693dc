package services

import (
	"time"

	"github.com/shopspring/decimal"

	"stocker/internal/ledger"
	"stocker/internal/models"
	"stocker/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// StockPriceInput is one price observation to record for a symbol.
type StockPriceInput struct {
	Symbol     string
	Price      decimal.Decimal
	RecordedAt time.Time
}

// StockServicer defines the contract for the stock directory and its price
// history.
type StockServicer interface {
	CreateStock(symbol, name string, exchange models.Exchange, sector models.Sector, currency string) (*models.Stock, error)
	GetStockBySymbol(symbol string) (*models.Stock, error)
	ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error)
	SymbolExists(symbol string) (bool, error)
	RecordPrices(prices []StockPriceInput) (int, error)
	GetPriceHistory(symbol string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.StockPrice], error)
	LatestPrice(symbol string) (decimal.Decimal, error)
	LatestPrices(symbols []string) (map[string]decimal.Decimal, error)
}

// PortfolioUpdate carries the editable metadata fields of a portfolio.
// Nil fields are left unchanged; derived state (cash, positions) cannot be
// edited.
type PortfolioUpdate struct {
	Name            *string
	BenchmarkSymbol *string
}

// TransactionInput carries one journal entry to append to a portfolio.
type TransactionInput struct {
	Kind     string
	Symbol   string
	Date     time.Time
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Amount   decimal.Decimal
	Fees     decimal.Decimal
	Notes    string
}

// TransactionFilter holds optional filter parameters for listing journal
// entries.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Kind     *string
	Symbol   *string
}

// PortfolioServicer defines the contract for portfolio bookkeeping and
// reporting. All state changes go through ApplyTransaction; positions and
// cash balances are never edited directly.
type PortfolioServicer interface {
	CreatePortfolio(ownerID, name, benchmarkSymbol string, inceptionDate time.Time) (*models.Portfolio, error)
	GetUserPortfolios(ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	GetPortfolioByID(ownerID, portfolioID string) (*models.Portfolio, error)
	UpdatePortfolio(ownerID, portfolioID string, update PortfolioUpdate) (*models.Portfolio, error)
	DeletePortfolio(ownerID, portfolioID string) error

	ApplyTransaction(ownerID, portfolioID string, input TransactionInput) (*models.Transaction, error)
	ListTransactions(ownerID, portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)

	Valuation(ownerID, portfolioID string) (*ledger.Valuation, error)
	Performance(ownerID, portfolioID string, start, end time.Time) (*ledger.PerformanceReport, error)
	Allocation(ownerID, portfolioID string) (map[string]float64, error)
	Gains(ownerID, portfolioID string) (*ledger.GainsReport, error)
}
