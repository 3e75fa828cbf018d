package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/shopspring/decimal"
)

const investmentColumns = `id, user_id, name, symbol, quantity, price, currency, purchase_date, notes, type`

// ListInvestments returns the user's holdings by purchase date then id.
func (r *Repository) ListInvestments(ctx context.Context, userID int64) ([]*domain.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE user_id = ? ORDER BY purchase_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListInvestments: scan: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInvestments: iterate: %w", err)
	}
	return out, nil
}

// GetInvestment returns one holding.
func (r *Repository) GetInvestment(ctx context.Context, userID, id int64) (*domain.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvestment: %w", err)
	}
	return inv, nil
}

// CreateInvestment inserts inv and fills its ID.
func (r *Repository) CreateInvestment(ctx context.Context, inv *domain.Investment) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO investments (user_id, name, symbol, quantity, price, currency, purchase_date, notes, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.Name, inv.Symbol, inv.Quantity.String(), inv.Price.String(),
		inv.Currency, inv.PurchaseDate, inv.Notes, inv.Type)
	if err != nil {
		return fmt.Errorf("CreateInvestment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateInvestment: last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// UpdateInvestment overwrites every field of an existing holding.
func (r *Repository) UpdateInvestment(ctx context.Context, inv *domain.Investment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE investments
		SET name = ?, symbol = ?, quantity = ?, price = ?, currency = ?, purchase_date = ?, notes = ?, type = ?
		WHERE id = ? AND user_id = ?`,
		inv.Name, inv.Symbol, inv.Quantity.String(), inv.Price.String(), inv.Currency,
		inv.PurchaseDate, inv.Notes, inv.Type, inv.ID, inv.UserID)
	if err != nil {
		return fmt.Errorf("UpdateInvestment: %w", err)
	}
	return expectOneRow(res)
}

// DeleteInvestment removes one holding.
func (r *Repository) DeleteInvestment(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteInvestment: %w", err)
	}
	return expectOneRow(res)
}

func scanInvestment(s rowScanner) (*domain.Investment, error) {
	var (
		inv             domain.Investment
		quantity, price string
	)
	err := s.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Symbol, &quantity, &price,
		&inv.Currency, &inv.PurchaseDate, &inv.Notes, &inv.Type)
	if err != nil {
		return nil, err
	}
	if inv.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("invalid stored quantity %q: %w", quantity, err)
	}
	if inv.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	return &inv, nil
}
