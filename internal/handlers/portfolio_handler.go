package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "stocker/internal/errors"
	"stocker/internal/pagination"
	"stocker/internal/services"
)

// PortfolioHandler handles portfolio bookkeeping and reporting requests.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// CreatePortfolioRequest represents the request payload for creating a portfolio.
type CreatePortfolioRequest struct {
	Name            string     `json:"name" binding:"required,min=1,max=200"`
	BenchmarkSymbol string     `json:"benchmark_symbol" binding:"omitempty,max=10"`
	InceptionDate   *time.Time `json:"inception_date,omitempty"`
}

// UpdatePortfolioRequest represents the request payload for editing portfolio
// metadata. Omitted fields are left unchanged.
type UpdatePortfolioRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=200"`
	BenchmarkSymbol *string `json:"benchmark_symbol" binding:"omitempty,max=10"`
}

// AddTransactionRequest represents the request payload for a journal entry.
// Amount may be omitted for buys and sells; it defaults to quantity times
// price.
type AddTransactionRequest struct {
	Kind     string          `json:"kind" binding:"required,transaction_kind"`
	Symbol   string          `json:"symbol" binding:"omitempty,max=10"`
	Date     *time.Time      `json:"date,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Fees     decimal.Decimal `json:"fees"`
	Notes    string          `json:"notes" binding:"max=500"`
}

// CreatePortfolio handles creating a portfolio.
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inception := time.Time{}
	if req.InceptionDate != nil {
		inception = *req.InceptionDate
	}

	portfolio, err := h.portfolioService.CreatePortfolio(userID, req.Name, req.BenchmarkSymbol, inception)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"portfolio": portfolio})
}

// ListPortfolios handles listing the user's portfolios.
func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.portfolioService.GetUserPortfolios(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPortfolio handles fetching one portfolio with its open positions.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolio, err := h.portfolioService.GetPortfolioByID(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

// UpdatePortfolio handles editing a portfolio's name or benchmark symbol.
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.PortfolioUpdate{
		Name:            req.Name,
		BenchmarkSymbol: req.BenchmarkSymbol,
	}

	portfolio, err := h.portfolioService.UpdatePortfolio(userID, portfolioID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

// DeletePortfolio handles deleting a portfolio.
func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.portfolioService.DeletePortfolio(userID, portfolioID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Portfolio deleted"})
}

// AddTransaction handles appending a journal entry to a portfolio.
func (h *PortfolioHandler) AddTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.TransactionInput{
		Kind:     req.Kind,
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Price:    req.Price,
		Amount:   req.Amount,
		Fees:     req.Fees,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		input.Date = *req.Date
	}

	row, err := h.portfolioService.ApplyTransaction(userID, portfolioID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": row})
}

// transactionListQuery holds the query parameters for listing journal entries.
type transactionListQuery struct {
	pagination.PageRequest
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Kind   *string    `form:"kind"`
	Symbol *string    `form:"symbol"`
}

// ListTransactions handles listing a portfolio's journal.
func (h *PortfolioHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query transactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		FromDate: query.From,
		ToDate:   query.To,
		Kind:     query.Kind,
		Symbol:   query.Symbol,
	}

	result, err := h.portfolioService.ListTransactions(userID, portfolioID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetValuation handles the portfolio value report.
func (h *PortfolioHandler) GetValuation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	valuation, err := h.portfolioService.Valuation(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valuation": valuation})
}

// performanceQuery holds the date range for performance reports.
type performanceQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// GetPerformance handles the portfolio performance report. The range defaults
// to inception through today.
func (h *PortfolioHandler) GetPerformance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query performanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	portfolio, err := h.portfolioService.GetPortfolioByID(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start := portfolio.InceptionDate
	if query.From != nil {
		start = *query.From
	}
	end := time.Now()
	if query.To != nil {
		end = *query.To
	}

	report, err := h.portfolioService.Performance(userID, portfolioID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"performance": report})
}

// GetAllocation handles the portfolio allocation report.
func (h *PortfolioHandler) GetAllocation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	allocation, err := h.portfolioService.Allocation(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// GetGains handles the realized/unrealized gains report.
func (h *PortfolioHandler) GetGains(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.portfolioService.Gains(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gains": report})
}
