package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// ParseTransactionType normalizes case and surrounding space, rejecting
// anything other than credit or debit.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case TransactionCredit, TransactionDebit:
		return t, nil
	default:
		return "", fmt.Errorf("ParseTransactionType: unknown type %q", s)
	}
}

// MaxDescriptionLength mirrors the description column width.
const MaxDescriptionLength = 255

// Transaction is one stored money movement. The tuple (UserID, Date, Amount,
// Type) identifies it; Description and CategoryID are only set on creation
// by the statement importer.
type Transaction struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"-"`
	Date         Date            `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	CategoryID   *int64          `json:"category"`
	CategoryName string          `json:"category_name,omitempty"`
}

// AmountKey is the canonical two-decimal representation used for identity.
func (t *Transaction) AmountKey() string {
	return t.Amount.StringFixed(2)
}

// RawTransaction is a record as returned by the extraction model, before
// category resolution and validation. A missing or null amount leaves
// Amount invalid.
type RawTransaction struct {
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Amount      decimal.NullDecimal `json:"amount"`
	Type        string              `json:"type"`
	Category    string              `json:"category,omitempty"`
}
