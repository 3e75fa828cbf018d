package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory CategoryStore and TransactionStore keyed the
// same way as the database unique indexes.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	categories   map[string]*domain.Category
	transactions map[string]*domain.Transaction
	categoryErr  error
}

func newMemStore() *memStore {
	return &memStore{
		categories:   make(map[string]*domain.Category),
		transactions: make(map[string]*domain.Transaction),
	}
}

func (m *memStore) GetOrCreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	key := fmt.Sprintf("%d|%s", userID, name)
	if c, ok := m.categories[key]; ok {
		return c, nil
	}
	m.nextID++
	c := &domain.Category{ID: m.nextID, UserID: userID, Name: name}
	m.categories[key] = c
	return c, nil
}

func (m *memStore) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d|%s|%s|%s", tx.UserID, tx.Date, tx.AmountKey(), tx.Type)
	if _, ok := m.transactions[key]; ok {
		return false, nil
	}
	m.nextID++
	tx.ID = m.nextID
	stored := *tx
	m.transactions[key] = &stored
	return true, nil
}

func newTestPersister(s *memStore) *Persister {
	return NewPersister(s, s, zerolog.New(io.Discard))
}

func rawTx(date, desc, amount, typ, category string) domain.RawTransaction {
	return domain.RawTransaction{
		Date:        date,
		Description: desc,
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Type:        typ,
		Category:    category,
	}
}

func TestPersist_PagueMenosIsIdempotent(t *testing.T) {
	s := newMemStore()
	p := newTestPersister(s)
	records := []domain.RawTransaction{
		rawTx("2023-10-26", "Supermercado Pague Menos", "345.60", "debit", "Alimentação"),
	}

	created, err := p.Persist(context.Background(), 1, records)
	if err != nil {
		t.Fatalf("first Persist failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created transaction, got %d", len(created))
	}
	tx := created[0]
	if tx.CategoryID == nil || tx.CategoryName != "Alimentação" || tx.AmountKey() != "345.60" {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if len(s.categories) != 1 {
		t.Errorf("expected 1 category, got %d", len(s.categories))
	}

	created, err = p.Persist(context.Background(), 1, records)
	if err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("second run should create nothing, got %d", len(created))
	}
	if len(s.transactions) != 1 || len(s.categories) != 1 {
		t.Errorf("expected 1 transaction and 1 category, got %d and %d", len(s.transactions), len(s.categories))
	}
}

func TestPersist_DescriptionIsCreationOnly(t *testing.T) {
	s := newMemStore()
	p := newTestPersister(s)

	if _, err := p.Persist(context.Background(), 1, []domain.RawTransaction{
		rawTx("2023-10-27", "Posto Shell", "150.00", "debit", "Transporte"),
	}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	created, err := p.Persist(context.Background(), 1, []domain.RawTransaction{
		rawTx("2023-10-27", "Posto Shell Av. Central", "150", "debit", "Combustível"),
	})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("same identity with a new description must not insert, got %d", len(created))
	}
	for _, tx := range s.transactions {
		if tx.Description != "Posto Shell" {
			t.Errorf("description changed to %q", tx.Description)
		}
	}
}

func TestPersist_UnionNotMultiset(t *testing.T) {
	s := newMemStore()
	p := newTestPersister(s)

	first := []domain.RawTransaction{
		rawTx("2023-10-26", "A", "10.00", "debit", "Lazer"),
		rawTx("2023-10-26", "B", "10.00", "credit", "Lazer"),
	}
	second := []domain.RawTransaction{
		rawTx("2023-10-26", "A", "10.00", "debit", "Lazer"),
		rawTx("2023-10-27", "C", "10.00", "debit", ""),
		rawTx("2023-10-27", "C again", "10.00", "debit", ""),
	}

	if _, err := p.Persist(context.Background(), 1, first); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	created, err := p.Persist(context.Background(), 1, second)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if len(created) != 1 || created[0].CategoryID != nil {
		t.Errorf("expected one uncategorized transaction, got %+v", created)
	}
	if len(s.transactions) != 3 {
		t.Errorf("expected 3 stored transactions, got %d", len(s.transactions))
	}

	// Same identity for another user is a different transaction.
	created, err = p.Persist(context.Background(), 2, first[:1])
	if err != nil || len(created) != 1 {
		t.Errorf("expected insert for another user, got %d %v", len(created), err)
	}
}

func TestPersist_SkipsInvalidRecords(t *testing.T) {
	s := newMemStore()
	p := newTestPersister(s)

	records := []domain.RawTransaction{
		rawTx("not a date", "x", "1", "debit", "Lazer"),
		rawTx("2023-10-26", "x", "1", "refund", "Lazer"),
		{Date: "2023-10-26", Type: "debit"},
		rawTx("2023-10-26", "ok", "1", "debit", "  <i>Lazer</i> "),
	}
	created, err := p.Persist(context.Background(), 1, records)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if len(created) != 1 || created[0].CategoryName != "Lazer" {
		t.Errorf("expected only the valid record with a clean category, got %+v", created)
	}
	if len(s.categories) != 1 {
		t.Errorf("invalid records must not create categories, got %d", len(s.categories))
	}
}

func TestPersist_CategoryError(t *testing.T) {
	s := newMemStore()
	s.categoryErr = errors.New("db down")
	p := newTestPersister(s)

	_, err := p.Persist(context.Background(), 1, []domain.RawTransaction{
		rawTx("2023-10-26", "x", "1", "debit", "Lazer"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
