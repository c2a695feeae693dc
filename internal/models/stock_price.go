package models

import (
	"time"

	"stocker/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockPrice represents a historical price entry for a stock.
// This is immutable time-series data — no Base embed, no soft deletes.
type StockPrice struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	StockID    string          `gorm:"type:uuid;not null;index" json:"stock_id"`
	Price      decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	RecordedAt time.Time       `gorm:"not null;index" json:"recorded_at"`
	Stock      Stock           `gorm:"foreignKey:StockID" json:"stock,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *StockPrice) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}
	return nil
}
