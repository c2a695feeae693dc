package models

// Exchange represents the stock exchange a listing trades on.
type Exchange string

const (
	ExchangeNYSE   Exchange = "NYSE"
	ExchangeNASDAQ Exchange = "NASDAQ"
	ExchangeAMEX   Exchange = "AMEX"
	ExchangeLSE    Exchange = "LSE"
	ExchangeTSE    Exchange = "TSE"
	ExchangeOther  Exchange = "OTHER"
)

// Sector represents the broad industry classification of a stock.
type Sector string

const (
	SectorTechnology    Sector = "technology"
	SectorHealthcare    Sector = "healthcare"
	SectorFinancials    Sector = "financials"
	SectorConsumer      Sector = "consumer"
	SectorIndustrials   Sector = "industrials"
	SectorEnergy        Sector = "energy"
	SectorUtilities     Sector = "utilities"
	SectorMaterials     Sector = "materials"
	SectorRealEstate    Sector = "real_estate"
	SectorCommunication Sector = "communication"
	SectorOther         Sector = "other"
)

// Stock represents a listed instrument in the stock directory.
type Stock struct {
	Base
	Symbol   string   `gorm:"not null;uniqueIndex" json:"symbol"`
	Name     string   `gorm:"not null" json:"name"`
	Exchange Exchange `gorm:"not null" json:"exchange"`
	Sector   Sector   `gorm:"not null;default:'other'" json:"sector"`
	Currency string   `gorm:"not null;default:'USD'" json:"currency"`

	Prices []StockPrice `gorm:"foreignKey:StockID" json:"prices,omitempty"`
}
