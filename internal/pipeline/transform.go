package pipeline

import (
	"fmt"

	"github.com/dvloznov/carteira/internal/domain"
)

// toTransaction validates a raw record and builds the transaction to insert.
// The category is resolved separately by the persister.
func toTransaction(userID int64, raw domain.RawTransaction) (*domain.Transaction, error) {
	date, err := domain.ParseDate(raw.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw.Date)
	}
	txType, err := domain.ParseTransactionType(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("invalid type %q", raw.Type)
	}
	if !raw.Amount.Valid {
		return nil, fmt.Errorf("missing amount")
	}

	return &domain.Transaction{
		UserID:      userID,
		Date:        date,
		Description: normalizeLabel(raw.Description, domain.MaxDescriptionLength),
		Amount:      raw.Amount.Decimal.Round(2),
		Type:        txType,
	}, nil
}
