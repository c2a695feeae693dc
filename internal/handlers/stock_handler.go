package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "stocker/internal/errors"
	"stocker/internal/models"
	"stocker/internal/pagination"
	"stocker/internal/services"
)

// StockHandler handles stock directory and price history requests.
type StockHandler struct {
	stockService services.StockServicer
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService services.StockServicer) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// CreateStockRequest represents the request payload for creating a stock.
type CreateStockRequest struct {
	Symbol   string `json:"symbol" binding:"required,min=1,max=10"`
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Exchange string `json:"exchange" binding:"required,exchange"`
	Sector   string `json:"sector" binding:"omitempty,sector"`
	Currency string `json:"currency" binding:"omitempty,iso4217"`
}

// RecordPricesRequest represents the request payload for bulk price recording.
type RecordPricesRequest struct {
	Prices []RecordPriceEntry `json:"prices" binding:"required,min=1,dive"`
}

// RecordPriceEntry represents a single price observation in a bulk request.
type RecordPriceEntry struct {
	Symbol     string          `json:"symbol" binding:"required"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	RecordedAt time.Time       `json:"recorded_at" binding:"required"`
}

// CreateStock handles adding a stock to the directory.
func (h *StockHandler) CreateStock(c *gin.Context) {
	var req CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stock, err := h.stockService.CreateStock(
		req.Symbol, req.Name, models.Exchange(req.Exchange), models.Sector(req.Sector), req.Currency,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stock": stock})
}

// ListStocks handles listing the stock directory.
func (h *StockHandler) ListStocks(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.stockService.ListStocks(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStock handles fetching one stock by symbol.
func (h *StockHandler) GetStock(c *gin.Context) {
	stock, err := h.stockService.GetStockBySymbol(c.Param("symbol"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// RecordPrices handles bulk price recording.
func (h *StockHandler) RecordPrices(c *gin.Context) {
	var req RecordPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inputs := make([]services.StockPriceInput, len(req.Prices))
	for i, p := range req.Prices {
		inputs[i] = services.StockPriceInput{
			Symbol:     p.Symbol,
			Price:      p.Price,
			RecordedAt: p.RecordedAt,
		}
	}

	count, err := h.stockService.RecordPrices(inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recorded": count})
}

// GetLatestPrice handles fetching the most recent price for a symbol.
func (h *StockHandler) GetLatestPrice(c *gin.Context) {
	symbol := c.Param("symbol")
	price, err := h.stockService.LatestPrice(symbol)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

// priceHistoryQuery holds the query parameters for price history requests.
type priceHistoryQuery struct {
	pagination.PageRequest
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// GetPriceHistory handles fetching a symbol's price history in a date range.
func (h *StockHandler) GetPriceHistory(c *gin.Context) {
	var query priceHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	from := time.Time{}
	if query.From != nil {
		from = *query.From
	}
	to := time.Now()
	if query.To != nil {
		to = *query.To
	}

	result, err := h.stockService.GetPriceHistory(c.Param("symbol"), from, to, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
