package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/rs/zerolog"
)

// Persister stores extracted records, skipping any whose identity
// (user, date, amount, type) already exists.
type Persister struct {
	categories   CategoryStore
	transactions TransactionStore
	log          zerolog.Logger
}

// NewPersister creates a persister over the given stores.
func NewPersister(categories CategoryStore, transactions TransactionStore, log zerolog.Logger) *Persister {
	return &Persister{categories: categories, transactions: transactions, log: log}
}

// Persist inserts records in order and returns only the newly created
// transactions. Existing rows are left untouched, so description and
// category are only ever set on first insert. Invalid records are skipped.
func (p *Persister) Persist(ctx context.Context, userID int64, records []domain.RawTransaction) ([]*domain.Transaction, error) {
	created := make([]*domain.Transaction, 0, len(records))
	categoryIDs := make(map[string]int64)

	for i, raw := range records {
		tx, err := toTransaction(userID, raw)
		if err != nil {
			p.log.Warn().Err(err).Int("index", i).Msg("Skipping invalid record")
			continue
		}

		if label := normalizeLabel(raw.Category, MaxCategoryLabelLength); label != "" {
			id, ok := categoryIDs[label]
			if !ok {
				cat, err := p.categories.GetOrCreateCategory(ctx, userID, label)
				if err != nil {
					return created, fmt.Errorf("Persist: record %d: resolving category %q: %w", i, label, err)
				}
				id = cat.ID
				categoryIDs[label] = id
			}
			tx.CategoryID = &id
			tx.CategoryName = label
		}

		inserted, err := p.transactions.InsertTransactionIfAbsent(ctx, tx)
		if err != nil {
			return created, fmt.Errorf("Persist: record %d: %w", i, err)
		}
		if !inserted {
			p.log.Debug().
				Str("date", tx.Date.String()).
				Str("amount", tx.AmountKey()).
				Str("type", string(tx.Type)).
				Msg("Transaction already exists, skipping")
			continue
		}
		created = append(created, tx)
	}

	return created, nil
}
