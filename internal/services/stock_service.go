package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stocker/internal/errors"
	"stocker/internal/models"
	"stocker/internal/pagination"
)

// stockService handles the stock directory and its price history.
type stockService struct {
	db *gorm.DB
}

// NewStockService creates a new StockServicer.
func NewStockService(db *gorm.DB) StockServicer {
	return &stockService{db: db}
}

// CreateStock creates a new stock directory entry. Symbols are stored
// uppercase and must be unique.
func (s *stockService) CreateStock(symbol, name string, exchange models.Exchange, sector models.Sector, currency string) (*models.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if currency == "" {
		currency = "USD"
	}
	if sector == "" {
		sector = models.SectorOther
	}

	stock := &models.Stock{
		Symbol:   symbol,
		Name:     name,
		Exchange: exchange,
		Sector:   sector,
		Currency: currency,
	}

	if err := s.db.Create(stock).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateSymbol
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return stock, nil
}

// GetStockBySymbol returns a stock by its ticker symbol.
func (s *stockService) GetStockBySymbol(symbol string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Where("symbol = ?", strings.ToUpper(symbol)).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

// ListStocks returns a paginated list of stocks ordered by symbol.
func (s *stockService) ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Stock{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stocks []models.Stock
	if err := base.Order("symbol ASC").Scopes(pagination.Paginate(page)).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(stocks, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// SymbolExists reports whether a symbol is present in the directory.
func (s *stockService) SymbolExists(symbol string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Stock{}).Where("symbol = ?", strings.ToUpper(symbol)).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// RecordPrices bulk-inserts price observations, skipping duplicates for the
// same symbol and timestamp. Returns the number of rows actually inserted.
func (s *stockService) RecordPrices(prices []StockPriceInput) (int, error) {
	if len(prices) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Prices array is empty")
	}

	count := 0
	for _, p := range prices {
		stock, err := s.GetStockBySymbol(p.Symbol)
		if err != nil {
			return count, err
		}
		if p.Price.IsNegative() {
			return count, apperrors.WithMessage(apperrors.ErrInvalidInput, "Price must not be negative")
		}

		sp := models.StockPrice{
			StockID:    stock.ID,
			Price:      p.Price,
			RecordedAt: p.RecordedAt,
		}
		result := s.db.Where("stock_id = ? AND recorded_at = ?", sp.StockID, sp.RecordedAt).
			FirstOrCreate(&sp)
		if result.Error != nil {
			return count, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected > 0 {
			count++
		}
	}

	return count, nil
}

// GetPriceHistory returns paginated price history for a symbol within a date range.
func (s *stockService) GetPriceHistory(symbol string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.StockPrice], error) {
	page.Defaults()

	stock, err := s.GetStockBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	var totalItems int64
	base := s.db.Model(&models.StockPrice{}).
		Where("stock_id = ? AND recorded_at >= ? AND recorded_at <= ?", stock.ID, from, to)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var prices []models.StockPrice
	if err := base.Order("recorded_at DESC").Scopes(pagination.Paginate(page)).Find(&prices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(prices, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// LatestPrice returns the most recent recorded price for a symbol.
func (s *stockService) LatestPrice(symbol string) (decimal.Decimal, error) {
	prices, err := s.LatestPrices([]string{strings.ToUpper(symbol)})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, apperrors.ErrPriceUnavailable
	}
	return price, nil
}

// LatestPrices fetches the most recent price for each symbol. Symbols with no
// price entries are not included in the map.
func (s *stockService) LatestPrices(symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	upper := make([]string, len(symbols))
	for i, sym := range symbols {
		upper[i] = strings.ToUpper(sym)
	}

	type priceRow struct {
		Symbol string
		Price  decimal.Decimal
	}
	var rows []priceRow

	subq := s.db.Table("stock_prices").
		Select("stock_id, MAX(recorded_at) AS max_recorded").
		Group("stock_id")

	if err := s.db.Table("stock_prices sp").
		Select("st.symbol, sp.price").
		Joins("INNER JOIN (?) latest ON sp.stock_id = latest.stock_id AND sp.recorded_at = latest.max_recorded", subq).
		Joins("INNER JOIN stocks st ON st.id = sp.stock_id").
		Where("st.symbol IN ?", upper).
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		result[r.Symbol] = r.Price
	}
	return result, nil
}

// isUniqueConstraintError checks if a GORM error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
