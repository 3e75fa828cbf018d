package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/carteira/internal/domain"
)

// GetOrCreateProfile returns the user's profile, inserting the default row
// on first access.
func (r *Repository) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, theme, filtered_categories)
		VALUES (?, ?, '[]')
		ON CONFLICT (user_id) DO NOTHING`, userID, domain.DefaultTheme); err != nil {
		return nil, fmt.Errorf("GetOrCreateProfile: insert: %w", err)
	}

	var (
		p         = domain.UserProfile{UserID: userID}
		filtered  string
		lastLogin sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT theme, start_date, end_date, filtered_categories, last_login
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.Theme, &p.StartDate, &p.EndDate, &filtered, &lastLogin)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateProfile: select: %w", err)
	}

	if err := json.Unmarshal([]byte(filtered), &p.FilteredCategories); err != nil {
		return nil, fmt.Errorf("GetOrCreateProfile: decoding filtered_categories: %w", err)
	}
	if p.FilteredCategories == nil {
		p.FilteredCategories = []string{}
	}
	if lastLogin.Valid && lastLogin.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("GetOrCreateProfile: parsing last_login: %w", err)
		}
		p.LastLogin = &t
	}
	return &p, nil
}

// SaveProfile writes every field of p.
func (r *Repository) SaveProfile(ctx context.Context, p *domain.UserProfile) error {
	filtered := p.FilteredCategories
	if filtered == nil {
		filtered = []string{}
	}
	encoded, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("SaveProfile: encoding filtered_categories: %w", err)
	}

	var lastLogin sql.NullString
	if p.LastLogin != nil {
		lastLogin = sql.NullString{String: p.LastLogin.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, theme, start_date, end_date, filtered_categories, last_login)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = excluded.theme,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			filtered_categories = excluded.filtered_categories,
			last_login = excluded.last_login`,
		p.UserID, p.Theme, p.StartDate, p.EndDate, string(encoded), lastLogin)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	return nil
}
