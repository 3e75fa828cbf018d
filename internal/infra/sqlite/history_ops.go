package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/store"
)

// GetDocument loads a cached price-history document.
func (r *Repository) GetDocument(ctx context.Context, symbol, rangeKey string) (*history.Document, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM historical_data WHERE doc_id = ?",
		history.DocID(symbol, rangeKey)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}

	var doc history.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("GetDocument: decoding %s: %w", history.DocID(symbol, rangeKey), err)
	}
	return &doc, nil
}

// PutDocument overwrites the document stored under doc.ID().
func (r *Repository) PutDocument(ctx context.Context, doc *history.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("PutDocument: encoding %s: %w", doc.ID(), err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO historical_data (doc_id, symbol, range_key, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		doc.ID(), doc.Symbol, doc.Range, string(raw), r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("PutDocument: %w", err)
	}
	return nil
}

// ListSymbols returns every symbol with at least one stored document.
func (r *Repository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM historical_data ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("ListSymbols: query: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("ListSymbols: scan: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSymbols: iterate: %w", err)
	}
	return symbols, nil
}

var _ history.Store = (*Repository)(nil)
