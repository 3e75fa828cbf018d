package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultInvestmentType is used when a holding is saved without a type.
const DefaultInvestmentType = "outro"

// Investment is a holding recorded by the user.
type Investment struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"-"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	PurchaseDate Date            `json:"purchase_date"`
	Notes        string          `json:"notes"`
	Type         string          `json:"type"`
}

// Normalize upper-cases the currency and symbol and applies defaults.
func (i *Investment) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Symbol = strings.ToUpper(strings.TrimSpace(i.Symbol))
	i.Currency = strings.ToUpper(strings.TrimSpace(i.Currency))
	if i.Currency == "" {
		i.Currency = "BRL"
	}
	i.Type = strings.TrimSpace(i.Type)
	if i.Type == "" {
		i.Type = DefaultInvestmentType
	}
}

// Validate checks required fields and that the currency is a known ISO 4217 code.
func (i *Investment) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if money.GetCurrency(i.Currency) == nil {
		return fmt.Errorf("unknown currency %q", i.Currency)
	}
	if i.Quantity.IsNegative() {
		return fmt.Errorf("quantity must not be negative")
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}

// PositionValue is quantity × price rendered in the holding's currency,
// e.g. "R$1.234,50".
func (i *Investment) PositionValue() string {
	cur := money.GetCurrency(i.Currency)
	if cur == nil {
		return i.Quantity.Mul(i.Price).StringFixed(2)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := i.Quantity.Mul(i.Price).Mul(factor).Round(0).IntPart()
	return money.New(minor, i.Currency).Display()
}
