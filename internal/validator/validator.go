// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validCurrencies contains the ISO 4217 currency codes the API accepts.
var validCurrencies = map[string]bool{
	"AUD": true, "BRL": true, "CAD": true, "CHF": true, "CNY": true,
	"DKK": true, "EUR": true, "GBP": true, "HKD": true, "IDR": true,
	"ILS": true, "INR": true, "JPY": true, "KRW": true, "MXN": true,
	"MYR": true, "NOK": true, "NZD": true, "PHP": true, "PLN": true,
	"SEK": true, "SGD": true, "THB": true, "TRY": true, "TWD": true,
	"USD": true, "ZAR": true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("transaction_kind", validateTransactionKind)
		_ = v.RegisterValidation("exchange", validateExchange)
		_ = v.RegisterValidation("sector", validateSector)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateTransactionKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "buy", "sell", "dividend", "split", "deposit", "withdrawal", "fee", "interest", "other":
		return true
	}
	return false
}

func validateExchange(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "NYSE", "NASDAQ", "AMEX", "LSE", "TSE", "OTHER":
		return true
	}
	return false
}

func validateSector(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "technology", "healthcare", "financials", "consumer", "industrials",
		"energy", "utilities", "materials", "real_estate", "communication", "other":
		return true
	}
	return false
}
