package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stocker/internal/handlers"
	"stocker/internal/logger"
	"stocker/internal/middleware"
	"stocker/internal/models"
	"stocker/internal/services"
	"stocker/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Stock{},
		&models.StockPrice{},
		&models.Portfolio{},
		&models.Position{},
		&models.Transaction{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	stockService := services.NewStockService(db)
	portfolioService := services.NewPortfolioService(db, stockService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	stockHandler := handlers.NewStockHandler(stockService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	stocks := protected.Group("/stocks")
	stocks.POST("", stockHandler.CreateStock)
	stocks.GET("", stockHandler.ListStocks)
	stocks.POST("/prices", stockHandler.RecordPrices)
	stocks.GET("/:symbol", stockHandler.GetStock)
	stocks.GET("/:symbol/price", stockHandler.GetLatestPrice)
	stocks.GET("/:symbol/prices", stockHandler.GetPriceHistory)

	portfolios := protected.Group("/portfolios")
	portfolios.POST("", portfolioHandler.CreatePortfolio)
	portfolios.GET("", portfolioHandler.ListPortfolios)
	portfolios.GET("/:id", portfolioHandler.GetPortfolio)
	portfolios.PUT("/:id", portfolioHandler.UpdatePortfolio)
	portfolios.DELETE("/:id", portfolioHandler.DeletePortfolio)
	portfolios.POST("/:id/transactions", portfolioHandler.AddTransaction)
	portfolios.GET("/:id/transactions", portfolioHandler.ListTransactions)
	portfolios.GET("/:id/value", portfolioHandler.GetValuation)
	portfolios.GET("/:id/performance", portfolioHandler.GetPerformance)
	portfolios.GET("/:id/allocation", portfolioHandler.GetAllocation)
	portfolios.GET("/:id/gains", portfolioHandler.GetGains)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// createStock adds a stock to the directory.
func (app *testApp) createStock(t *testing.T, token, symbol, name string) {
	t.Helper()
	body := fmt.Sprintf(`{"symbol":%q,"name":%q,"exchange":"NASDAQ","sector":"technology"}`, symbol, name)
	rec := app.request("POST", "/api/v1/stocks", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stock failed: %d %s", rec.Code, rec.Body.String())
	}
}

// recordPrice records one price observation for a symbol.
func (app *testApp) recordPrice(t *testing.T, token, symbol, price, recordedAt string) {
	t.Helper()
	body := fmt.Sprintf(`{"prices":[{"symbol":%q,"price":%q,"recorded_at":%q}]}`, symbol, price, recordedAt)
	rec := app.request("POST", "/api/v1/stocks/prices", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record price failed: %d %s", rec.Code, rec.Body.String())
	}
}

// createPortfolio creates a portfolio and returns its ID.
func (app *testApp) createPortfolio(t *testing.T, token, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"inception_date":"2024-01-01T00:00:00Z"}`, name)
	rec := app.request("POST", "/api/v1/portfolios", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	portfolio := result["portfolio"].(map[string]interface{})
	return portfolio["id"].(string)
}

// addTransaction appends a journal entry and fails the test on error.
func (app *testApp) addTransaction(t *testing.T, token, portfolioID, body string) map[string]interface{} {
	t.Helper()
	rec := app.request("POST", "/api/v1/portfolios/"+portfolioID+"/transactions", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add transaction failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}
