package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
)

// UpsertGoogleUser creates the user keyed by email, or refreshes the name,
// picture and Google id of an existing one.
func (r *Repository) UpsertGoogleUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, name, picture_url, google_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			picture_url = excluded.picture_url,
			google_id = excluded.google_id`,
		u.Email, u.Name, u.PictureURL, u.GoogleID, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("UpsertGoogleUser: %w", err)
	}
	return r.GetUserByEmail(ctx, u.Email)
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `WHERE email = ?`, email)
}

func (r *Repository) getUser(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	var (
		u       domain.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, picture_url, google_id, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PictureURL, &u.GoogleID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getUser: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("getUser: parsing created_at: %w", err)
	}
	return &u, nil
}
