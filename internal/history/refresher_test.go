package history

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string]*Document
	puts []string
}

func newMemStore(docs ...*Document) *memStore {
	s := &memStore{docs: make(map[string]*Document)}
	for _, d := range docs {
		s.docs[d.ID()] = d
	}
	return s
}

func (s *memStore) GetDocument(ctx context.Context, symbol, rangeKey string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[DocID(symbol, rangeKey)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (s *memStore) PutDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID()] = doc
	s.puts = append(s.puts, doc.ID())
	return nil
}

func (s *memStore) ListSymbols(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, d := range s.docs {
		if !seen[d.Symbol] {
			seen[d.Symbol] = true
			out = append(out, d.Symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

// mockFetcher is a mock implementation of Fetcher for testing.
type mockFetcher struct {
	FetchHistoryFunc func(ctx context.Context, symbol, rangeKey string) ([]PricePoint, error)
	calls            []string
}

func (m *mockFetcher) FetchHistory(ctx context.Context, symbol, rangeKey string) ([]PricePoint, error) {
	m.calls = append(m.calls, symbol)
	if m.FetchHistoryFunc != nil {
		return m.FetchHistoryFunc(ctx, symbol, rangeKey)
	}
	return []PricePoint{{Date: 1700000000, Close: 10}}, nil
}

// mockRecorder records audit calls.
type mockRecorder struct {
	started   int
	failed    []error
	succeeded []store.RunStats
}

func (m *mockRecorder) StartRun(ctx context.Context, kind, subject string, userID int64) (string, error) {
	m.started++
	return "run-1", nil
}

func (m *mockRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	m.failed = append(m.failed, runErr)
}

func (m *mockRecorder) MarkRunSucceeded(ctx context.Context, runID string, stats store.RunStats) error {
	m.succeeded = append(m.succeeded, stats)
	return nil
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestRefresher(s Store, f Fetcher, rec store.RunRecorder) *Refresher {
	r := NewRefresher(s, f, rec, zerolog.New(io.Discard))
	r.now = func() time.Time { return testNow }
	return r
}

func doc(symbol, status string, age time.Duration) *Document {
	return &Document{
		Status:    status,
		Data:      []PricePoint{},
		FetchedAt: testNow.Add(-age).Format(time.RFC3339),
		Symbol:    symbol,
		Range:     DefaultRange,
	}
}

func TestRefresher_Run(t *testing.T) {
	s := newMemStore(
		doc("BBAS3", StatusCompleted, 2*time.Hour),  // fresh
		doc("ITUB4", StatusCompleted, 13*time.Hour), // stale
		doc("PETR4", StatusError, time.Minute),      // errored
		doc("VALE3", StatusCompleted, 20*time.Hour), // stale, will fail
	)
	f := &mockFetcher{
		FetchHistoryFunc: func(ctx context.Context, symbol, rangeKey string) ([]PricePoint, error) {
			if symbol == "VALE3" {
				return nil, errors.New("No data found for symbol VALE3")
			}
			return []PricePoint{{Date: 1, Close: 1}, {Date: 2, Close: 2}}, nil
		},
	}
	rec := &mockRecorder{}

	summary, err := newTestRefresher(s, f, rec).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Total != 4 || summary.Succeeded != 3 || summary.Skipped != 1 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if _, ok := summary.Failures["VALE3"]; !ok {
		t.Errorf("expected VALE3 in failures, got %v", summary.Failures)
	}
	if len(f.calls) != 3 {
		t.Errorf("expected 3 fetches (fresh symbol skipped), got %v", f.calls)
	}

	vale, _ := s.GetDocument(context.Background(), "VALE3", DefaultRange)
	if vale.Status != StatusError || len(vale.Data) != 0 || vale.FetchedAt != testNow.Format(time.RFC3339) {
		t.Errorf("expected VALE3 overwritten with error document, got %+v", vale)
	}
	petr, _ := s.GetDocument(context.Background(), "PETR4", DefaultRange)
	if petr.Status != StatusCompleted || len(petr.Data) != 2 {
		t.Errorf("expected PETR4 refreshed, got %+v", petr)
	}

	if rec.started != 1 || len(rec.failed) != 1 || len(rec.succeeded) != 0 {
		t.Errorf("unexpected audit calls: %+v", rec)
	}
}

func TestRefresher_Run_CapsSymbols(t *testing.T) {
	s := newMemStore(
		doc("C", StatusError, 0),
		doc("A", StatusError, 0),
		doc("B", StatusError, 0),
	)
	f := &mockFetcher{}
	rec := &mockRecorder{}

	summary, err := newTestRefresher(s, f, rec).Run(context.Background(), Options{MaxSymbols: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("Total = %d, want 2", summary.Total)
	}
	if len(f.calls) != 2 || f.calls[0] != "A" || f.calls[1] != "B" {
		t.Errorf("expected sorted first two symbols, got %v", f.calls)
	}
	if len(rec.succeeded) != 1 || rec.succeeded[0].ItemsCreated != 2 {
		t.Errorf("expected success audit with 2 refreshed, got %+v", rec.succeeded)
	}
}

func TestRefresher_RefreshSymbol_Force(t *testing.T) {
	s := newMemStore(doc("BBAS3", StatusCompleted, time.Hour))
	f := &mockFetcher{}
	r := newTestRefresher(s, f, nil)

	outcome, _, err := r.RefreshSymbol(context.Background(), "BBAS3", DefaultRange, false)
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("expected skip, got %v %v", outcome, err)
	}

	outcome, d, err := r.RefreshSymbol(context.Background(), "BBAS3", DefaultRange, true)
	if err != nil || outcome != OutcomeRefreshed {
		t.Fatalf("expected forced refresh, got %v %v", outcome, err)
	}
	if d.Status != StatusCompleted || len(d.Data) != 1 {
		t.Errorf("unexpected document %+v", d)
	}
}

func TestRefresher_RefreshSymbol_Missing(t *testing.T) {
	s := newMemStore()
	r := newTestRefresher(s, &mockFetcher{}, nil)

	outcome, _, err := r.RefreshSymbol(context.Background(), "WEGE3", "1mo", false)
	if err != nil || outcome != OutcomeRefreshed {
		t.Fatalf("expected refresh of missing document, got %v %v", outcome, err)
	}
	if len(s.puts) != 1 || s.puts[0] != "WEGE3_1mo" {
		t.Errorf("unexpected puts %v", s.puts)
	}
}

func TestRefresher_Run_Empty(t *testing.T) {
	summary, err := newTestRefresher(newMemStore(), &mockFetcher{}, nil).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Total != 0 || summary.Failed != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
}
