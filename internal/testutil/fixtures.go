package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stocker/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestStock creates a stock with a unique symbol.
func CreateTestStock(t *testing.T, db *gorm.DB) *models.Stock {
	t.Helper()
	symbol := fmt.Sprintf("TST%d", nextID())
	return CreateTestStockWithSymbol(t, db, symbol)
}

// CreateTestStockWithSymbol creates a stock with the given symbol.
func CreateTestStockWithSymbol(t *testing.T, db *gorm.DB, symbol string) *models.Stock {
	t.Helper()

	stock := &models.Stock{
		Symbol:   symbol,
		Name:     fmt.Sprintf("Test Stock %s", symbol),
		Exchange: models.ExchangeNASDAQ,
		Sector:   models.SectorTechnology,
		Currency: "USD",
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// CreateTestPrice records a price for a stock at the given time.
func CreateTestPrice(t *testing.T, db *gorm.DB, stockID string, price decimal.Decimal, recordedAt time.Time) *models.StockPrice {
	t.Helper()

	sp := &models.StockPrice{
		StockID:    stockID,
		Price:      price,
		RecordedAt: recordedAt,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("failed to create test price: %v", err)
	}
	return sp
}

// CreateTestPortfolio creates an empty portfolio for a user.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, ownerID string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		OwnerID:       ownerID,
		Name:          fmt.Sprintf("Test Portfolio %d", nextID()),
		InceptionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}
