package sqlite

import (
	"database/sql"
	"time"

	"github.com/dvloznov/carteira/internal/store"
)

// Repository is the SQLite implementation of the store repositories. It holds
// a shared *sql.DB; one value serves every interface.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository wraps an open, migrated database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// DB exposes the underlying handle for callers that manage its lifecycle.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var (
	_ store.TransactionRepository = (*Repository)(nil)
	_ store.CategoryRepository    = (*Repository)(nil)
	_ store.InvestmentRepository  = (*Repository)(nil)
	_ store.ProfileRepository     = (*Repository)(nil)
	_ store.UserRepository        = (*Repository)(nil)
)
