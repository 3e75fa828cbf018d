package sqlite

import (
	"context"
	"fmt"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
)

// ListCategories returns the user's categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterate: %w", err)
	}
	return out, nil
}

// CreateCategory inserts c and fills its ID.
func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?)`, c.UserID, c.Name)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("CreateCategory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateCategory: last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetOrCreateCategory resolves (userID, name), inserting the row if needed.
// Concurrent callers converge on the same row through the unique index.
func (r *Repository) GetOrCreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name) VALUES (?, ?)
		ON CONFLICT (user_id, name) DO NOTHING`, userID, name); err != nil {
		return nil, fmt.Errorf("GetOrCreateCategory: insert: %w", err)
	}

	c := domain.Category{UserID: userID, Name: name}
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`, userID, name).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateCategory: select: %w", err)
	}
	return &c, nil
}

// RenameCategory updates the name of one of the user's categories.
func (r *Repository) RenameCategory(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`, c.Name, c.ID, c.UserID)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("RenameCategory: %w", err)
	}
	return expectOneRow(res)
}

// DeleteCategory removes the category; referencing transactions are kept
// with a NULL category by the foreign key.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return expectOneRow(res)
}
