package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stocker/internal/errors"
	"stocker/internal/ledger"
	"stocker/internal/models"
	"stocker/internal/pagination"
)

// portfolioService handles portfolio bookkeeping on top of the pure ledger.
// It owns the load-apply-save cycle: every write loads the persisted
// snapshot, runs ledger.Apply, and stores the journal row, the affected
// position, and the new cash balance in one database transaction.
type portfolioService struct {
	db     *gorm.DB
	stocks StockServicer
	locks  *portfolioLocks
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB, stocks StockServicer) PortfolioServicer {
	return &portfolioService{db: db, stocks: stocks, locks: newPortfolioLocks()}
}

// CreatePortfolio creates an empty portfolio for a user.
func (s *portfolioService) CreatePortfolio(ownerID, name, benchmarkSymbol string, inceptionDate time.Time) (*models.Portfolio, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if inceptionDate.IsZero() {
		inceptionDate = time.Now()
	}

	if benchmarkSymbol != "" {
		benchmarkSymbol = strings.ToUpper(benchmarkSymbol)
		exists, err := s.stocks.SymbolExists(benchmarkSymbol)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.WithMessage(apperrors.ErrStockNotFound, "Benchmark symbol is not in the stock directory")
		}
	}

	portfolio := &models.Portfolio{
		OwnerID:         ownerID,
		Name:            name,
		InceptionDate:   inceptionDate,
		BenchmarkSymbol: benchmarkSymbol,
	}

	if err := s.db.Create(portfolio).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return portfolio, nil
}

// GetUserPortfolios returns a paginated list of the user's portfolios.
func (s *portfolioService) GetUserPortfolios(ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Portfolio{}).Where("owner_id = ?", ownerID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var portfolios []models.Portfolio
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(portfolios, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPortfolioByID returns one of the user's portfolios with its open
// positions loaded.
func (s *portfolioService) GetPortfolioByID(ownerID, portfolioID string) (*models.Portfolio, error) {
	return s.loadPortfolio(ownerID, portfolioID, false)
}

// UpdatePortfolio changes a portfolio's editable metadata. Cash and
// positions are derived from the journal and cannot be edited here.
func (s *portfolioService) UpdatePortfolio(ownerID, portfolioID string, update PortfolioUpdate) (*models.Portfolio, error) {
	portfolio, err := s.loadPortfolio(ownerID, portfolioID, false)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name must not be empty")
		}
		changes["name"] = *update.Name
	}
	if update.BenchmarkSymbol != nil {
		benchmark := strings.ToUpper(*update.BenchmarkSymbol)
		if benchmark != "" {
			exists, err := s.stocks.SymbolExists(benchmark)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, apperrors.WithMessage(apperrors.ErrStockNotFound, "Benchmark symbol is not in the stock directory")
			}
		}
		changes["benchmark_symbol"] = benchmark
	}

	if len(changes) == 0 {
		return portfolio, nil
	}

	if err := s.db.Model(portfolio).Updates(changes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// DeletePortfolio soft-deletes a portfolio. The journal rows are kept; a
// deleted portfolio's history stays reconstructible.
func (s *portfolioService) DeletePortfolio(ownerID, portfolioID string) error {
	portfolio, err := s.loadPortfolio(ownerID, portfolioID, false)
	if err != nil {
		return err
	}
	if err := s.db.Delete(portfolio).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// loadPortfolio fetches a portfolio owned by the user. With journal=true it
// also loads the full transaction journal in sequence order; positions are
// always loaded.
func (s *portfolioService) loadPortfolio(ownerID, portfolioID string, journal bool) (*models.Portfolio, error) {
	query := s.db.Preload("Positions")
	if journal {
		query = query.Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		})
	}

	var portfolio models.Portfolio
	if err := query.Where("id = ? AND owner_id = ?", portfolioID, ownerID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &portfolio, nil
}

// snapshot converts a persisted portfolio into a ledger snapshot.
func snapshot(portfolio *models.Portfolio) ledger.Portfolio {
	snap := ledger.NewPortfolio(portfolio.ID, portfolio.Name, portfolio.OwnerID, portfolio.CashBalance, portfolio.InceptionDate)
	snap.BenchmarkSymbol = portfolio.BenchmarkSymbol
	for _, pos := range portfolio.Positions {
		snap.Positions[pos.Symbol] = ledger.Position{
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			CostBasis: pos.CostBasis,
			OpenDate:  pos.OpenDate,
		}
	}
	for _, row := range portfolio.Transactions {
		snap.Transactions = append(snap.Transactions, ledger.Transaction{
			ID:       row.ID,
			Kind:     ledger.Kind(row.Kind),
			Symbol:   row.Symbol,
			Date:     row.Date,
			Quantity: row.Quantity,
			Price:    row.Price,
			Amount:   row.Amount,
			Fees:     row.Fees,
			Notes:    row.Notes,
		})
	}
	return snap
}

// mapLedgerError converts ledger errors into API errors.
func mapLedgerError(err error) error {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		return apperrors.WithMessage(apperrors.ErrTransactionInvalid, verr.Error())
	}
	var perr *ledger.PositionNotFoundError
	if errors.As(err, &perr) {
		return apperrors.WithMessage(apperrors.ErrPositionNotFound, perr.Error())
	}
	var qerr *ledger.InsufficientQuantityError
	if errors.As(err, &qerr) {
		return apperrors.WithMessage(apperrors.ErrInsufficientQuantity, qerr.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// ApplyTransaction appends one journal entry to the portfolio and persists
// the resulting snapshot. The portfolio's lock serializes writers in this
// process; the version check rejects writes racing from elsewhere.
func (s *portfolioService) ApplyTransaction(ownerID, portfolioID string, input TransactionInput) (*models.Transaction, error) {
	unlock := s.locks.Lock(portfolioID)
	defer unlock()

	portfolio, err := s.loadPortfolio(ownerID, portfolioID, true)
	if err != nil {
		return nil, err
	}

	tx := ledger.Transaction{
		Kind:     ledger.Kind(input.Kind),
		Symbol:   strings.ToUpper(input.Symbol),
		Date:     input.Date,
		Quantity: input.Quantity,
		Price:    input.Price,
		Amount:   input.Amount,
		Fees:     input.Fees,
		Notes:    input.Notes,
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}

	// Buys and sells must reference a known symbol.
	if tx.Kind == ledger.KindBuy || tx.Kind == ledger.KindSell {
		exists, err := s.stocks.SymbolExists(tx.Symbol)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.ErrStockNotFound
		}
	}

	before := snapshot(portfolio)
	after, err := ledger.Apply(before, tx)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	applied := after.Transactions[len(after.Transactions)-1]

	row := models.Transaction{
		PortfolioID: portfolio.ID,
		Sequence:    len(before.Transactions) + 1,
		Kind:        string(applied.Kind),
		Symbol:      applied.Symbol,
		Date:        applied.Date,
		Quantity:    applied.Quantity,
		Price:       applied.Price,
		Amount:      applied.Amount,
		Fees:        applied.Fees,
		Notes:       applied.Notes,
	}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if applied.Kind == ledger.KindBuy || applied.Kind == ledger.KindSell {
			if err := syncPosition(dbtx, portfolio, after, applied.Symbol); err != nil {
				return err
			}
		}

		result := dbtx.Model(&models.Portfolio{}).
			Where("id = ? AND version = ?", portfolio.ID, portfolio.Version).
			Updates(map[string]interface{}{
				"cash_balance": after.CashBalance,
				"version":      portfolio.Version + 1,
			})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrPersistenceConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// syncPosition makes the persisted position row for a symbol match the
// applied snapshot: created on first buy, updated in place, deleted when the
// position is fully closed.
func syncPosition(dbtx *gorm.DB, portfolio *models.Portfolio, after ledger.Portfolio, symbol string) error {
	next, open := after.Position(symbol)

	var existing *models.Position
	for i := range portfolio.Positions {
		if portfolio.Positions[i].Symbol == symbol {
			existing = &portfolio.Positions[i]
			break
		}
	}

	switch {
	case open && existing != nil:
		result := dbtx.Model(existing).Updates(map[string]interface{}{
			"quantity":   next.Quantity,
			"cost_basis": next.CostBasis,
		})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}

	case open && existing == nil:
		row := models.Position{
			PortfolioID: portfolio.ID,
			Symbol:      symbol,
			Quantity:    next.Quantity,
			CostBasis:   next.CostBasis,
			OpenDate:    next.OpenDate,
		}
		if err := dbtx.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

	case !open && existing != nil:
		if err := dbtx.Unscoped().Delete(existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return nil
}

// ListTransactions returns a paginated, optionally filtered view of the
// journal in application order.
func (s *portfolioService) ListTransactions(ownerID, portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	if _, err := s.loadPortfolio(ownerID, portfolioID, false); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Kind != nil {
		base = base.Where("kind = ?", *filter.Kind)
	}
	if filter.Symbol != nil {
		base = base.Where("symbol = ?", strings.ToUpper(*filter.Symbol))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rows []models.Transaction
	if err := base.Order("sequence ASC").Scopes(pagination.Paginate(page)).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rows, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// priceLookup builds a ledger price source from the latest recorded prices
// for the snapshot's open positions.
func (s *portfolioService) priceLookup(snap ledger.Portfolio) (ledger.PriceLookup, error) {
	symbols := make([]string, 0, len(snap.Positions))
	for sym := range snap.Positions {
		symbols = append(symbols, sym)
	}

	prices, err := s.stocks.LatestPrices(symbols)
	if err != nil {
		return nil, err
	}

	return func(symbol string) (decimal.Decimal, bool) {
		price, found := prices[symbol]
		return price, found
	}, nil
}

// Valuation computes the portfolio's current market value.
func (s *portfolioService) Valuation(ownerID, portfolioID string) (*ledger.Valuation, error) {
	portfolio, err := s.loadPortfolio(ownerID, portfolioID, false)
	if err != nil {
		return nil, err
	}

	snap := snapshot(portfolio)
	lookup, err := s.priceLookup(snap)
	if err != nil {
		return nil, err
	}

	v := ledger.Value(snap, lookup)
	return &v, nil
}

// Performance computes the cash-flow and return report over a date range.
func (s *portfolioService) Performance(ownerID, portfolioID string, start, end time.Time) (*ledger.PerformanceReport, error) {
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "End date must not be before start date")
	}

	portfolio, err := s.loadPortfolio(ownerID, portfolioID, true)
	if err != nil {
		return nil, err
	}

	snap := snapshot(portfolio)
	lookup, err := s.priceLookup(snap)
	if err != nil {
		return nil, err
	}

	report := ledger.Performance(snap, lookup, start, end)
	return &report, nil
}

// Allocation computes each holding's share of total portfolio value.
func (s *portfolioService) Allocation(ownerID, portfolioID string) (map[string]float64, error) {
	portfolio, err := s.loadPortfolio(ownerID, portfolioID, false)
	if err != nil {
		return nil, err
	}

	snap := snapshot(portfolio)
	lookup, err := s.priceLookup(snap)
	if err != nil {
		return nil, err
	}

	return ledger.Allocation(snap, lookup), nil
}

// Gains computes realized and unrealized gain/loss for the portfolio.
func (s *portfolioService) Gains(ownerID, portfolioID string) (*ledger.GainsReport, error) {
	portfolio, err := s.loadPortfolio(ownerID, portfolioID, true)
	if err != nil {
		return nil, err
	}

	snap := snapshot(portfolio)
	lookup, err := s.priceLookup(snap)
	if err != nil {
		return nil, err
	}

	report := ledger.Gains(snap, lookup)
	return &report, nil
}
