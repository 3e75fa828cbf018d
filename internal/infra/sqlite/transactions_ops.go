package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/shopspring/decimal"
)

const transactionColumns = `
	t.id, t.user_id, t.date, t.description, t.amount, t.type, t.category_id, COALESCE(c.name, '')`

const transactionFrom = `
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

// ListTransactions returns the user's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where = []string{"t.user_id = ?"}
		args  = []interface{}{userID}
	)
	if !filter.StartDate.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, filter.StartDate.String())
	}
	if !filter.EndDate.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, filter.EndDate.String())
	}

	query := "SELECT" + transactionColumns + transactionFrom +
		" WHERE " + strings.Join(where, " AND ") +
		" ORDER BY t.date DESC, t.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterate: %w", err)
	}
	return out, nil
}

// GetTransaction returns one of the user's transactions.
func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+transactionColumns+transactionFrom+" WHERE t.user_id = ? AND t.id = ?",
		userID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// CreateTransaction inserts tx and fills its ID.
func (r *Repository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := r.checkCategory(ctx, tx.UserID, tx.CategoryID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, date, description, amount, type, category_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Date.String(), tx.Description, tx.AmountKey(), string(tx.Type), nullInt64(tx.CategoryID))
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("CreateTransaction: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateTransaction: last insert id: %w", err)
	}
	tx.ID = id
	return r.fillCategoryName(ctx, tx)
}

// InsertTransactionIfAbsent inserts tx unless a row with the same
// (user, date, amount, type) exists. The uniqueness constraint makes the
// check and the insert a single atomic statement.
func (r *Repository) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, date, description, amount, type, category_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date, amount, type) DO NOTHING
		RETURNING id`,
		tx.UserID, tx.Date.String(), tx.Description, tx.AmountKey(), string(tx.Type), nullInt64(tx.CategoryID),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("InsertTransactionIfAbsent: %w", err)
	}
	tx.ID = id
	return true, nil
}

// UpdateTransaction overwrites the mutable fields of tx.
func (r *Repository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := r.checkCategory(ctx, tx.UserID, tx.CategoryID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, description = ?, amount = ?, type = ?, category_id = ?
		WHERE id = ? AND user_id = ?`,
		tx.Date.String(), tx.Description, tx.AmountKey(), string(tx.Type), nullInt64(tx.CategoryID),
		tx.ID, tx.UserID)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	return r.fillCategoryName(ctx, tx)
}

// DeleteTransaction removes one of the user's transactions.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return expectOneRow(res)
}

func (r *Repository) checkCategory(ctx context.Context, userID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE id = ? AND user_id = ?`, *categoryID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrUnknownCategory
	}
	if err != nil {
		return fmt.Errorf("checkCategory: %w", err)
	}
	return nil
}

func (r *Repository) fillCategoryName(ctx context.Context, tx *domain.Transaction) error {
	tx.CategoryName = ""
	if tx.CategoryID == nil {
		return nil
	}
	err := r.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, *tx.CategoryID).Scan(&tx.CategoryName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("fillCategoryName: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s rowScanner) (*domain.Transaction, error) {
	var (
		tx         domain.Transaction
		amount     string
		txType     string
		categoryID sql.NullInt64
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &tx.Date, &tx.Description, &amount, &txType, &categoryID, &tx.CategoryName); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	tx.Amount = d
	tx.Type = domain.TransactionType(txType)
	if categoryID.Valid {
		id := categoryID.Int64
		tx.CategoryID = &id
	}
	return &tx, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
