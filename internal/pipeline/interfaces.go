package pipeline

import (
	"context"

	"github.com/dvloznov/carteira/internal/domain"
)

// Generator provides single-turn text generation.
// This interface enables mocking and testing of the model call.
type Generator interface {
	// Generate sends prompt to the model and returns its raw text response.
	Generate(ctx context.Context, prompt string) (string, error)
}

// TransactionExtractor turns statement text into raw transaction records.
type TransactionExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.RawTransaction, error)
}

// CategoryStore is the minimal category dependency of the persister.
type CategoryStore interface {
	GetOrCreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error)
}

// TransactionStore is the minimal transaction dependency of the persister.
type TransactionStore interface {
	InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error)
}

// Archiver keeps a copy of an uploaded statement and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, userID int64, filename string, content []byte) (string, error)
}
