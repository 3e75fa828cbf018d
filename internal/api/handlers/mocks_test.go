package handlers

import (
	"context"
	"sort"
	"sync"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
)

type txRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Transaction
}

func newTxRepo(seed ...*domain.Transaction) *txRepo {
	r := &txRepo{rows: map[int64]*domain.Transaction{}}
	for _, tx := range seed {
		r.nextID++
		tx.ID = r.nextID
		r.rows[tx.ID] = tx
	}
	return r
}

func (r *txRepo) conflicts(tx *domain.Transaction) bool {
	for _, other := range r.rows {
		if other.ID != tx.ID && other.UserID == tx.UserID && other.Date.Equal(tx.Date.Time) &&
			other.AmountKey() == tx.AmountKey() && other.Type == tx.Type {
			return true
		}
	}
	return false
}

func (r *txRepo) ListTransactions(ctx context.Context, userID int64, f store.TransactionFilter) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range r.rows {
		if tx.UserID != userID {
			continue
		}
		if !f.StartDate.IsZero() && tx.Date.Before(f.StartDate.Time) {
			continue
		}
		if !f.EndDate.IsZero() && tx.Date.After(f.EndDate.Time) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (r *txRepo) GetTransaction(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok || tx.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *txRepo) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(tx) {
		return store.ErrConflict
	}
	r.nextID++
	tx.ID = r.nextID
	cp := *tx
	r.rows[tx.ID] = &cp
	return nil
}

func (r *txRepo) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	err := r.CreateTransaction(ctx, tx)
	if err == store.ErrConflict {
		return false, nil
	}
	return err == nil, err
}

func (r *txRepo) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.rows[tx.ID]; !ok || old.UserID != tx.UserID {
		return store.ErrNotFound
	}
	if r.conflicts(tx) {
		return store.ErrConflict
	}
	cp := *tx
	r.rows[tx.ID] = &cp
	return nil
}

func (r *txRepo) DeleteTransaction(ctx context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.rows[id]; !ok || tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type categoryRepo struct {
	nextID int64
	rows   []*domain.Category
}

func (r *categoryRepo) ListCategories(ctx context.Context, userID int64) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *categoryRepo) CreateCategory(ctx context.Context, c *domain.Category) error {
	for _, other := range r.rows {
		if other.UserID == c.UserID && other.Name == c.Name {
			return store.ErrConflict
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.rows = append(r.rows, c)
	return nil
}

func (r *categoryRepo) GetOrCreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	for _, c := range r.rows {
		if c.UserID == userID && c.Name == name {
			return c, nil
		}
	}
	c := &domain.Category{UserID: userID, Name: name}
	return c, r.CreateCategory(ctx, c)
}

func (r *categoryRepo) RenameCategory(ctx context.Context, c *domain.Category) error {
	for _, other := range r.rows {
		if other.ID == c.ID && other.UserID == c.UserID {
			other.Name = c.Name
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *categoryRepo) DeleteCategory(ctx context.Context, userID, id int64) error {
	for i, c := range r.rows {
		if c.ID == id && c.UserID == userID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type investmentRepo struct {
	nextID int64
	rows   map[int64]*domain.Investment
}

func newInvestmentRepo() *investmentRepo {
	return &investmentRepo{rows: map[int64]*domain.Investment{}}
}

func (r *investmentRepo) ListInvestments(ctx context.Context, userID int64) ([]*domain.Investment, error) {
	var out []*domain.Investment
	for _, inv := range r.rows {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *investmentRepo) GetInvestment(ctx context.Context, userID, id int64) (*domain.Investment, error) {
	inv, ok := r.rows[id]
	if !ok || inv.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *investmentRepo) CreateInvestment(ctx context.Context, inv *domain.Investment) error {
	r.nextID++
	inv.ID = r.nextID
	cp := *inv
	r.rows[inv.ID] = &cp
	return nil
}

func (r *investmentRepo) UpdateInvestment(ctx context.Context, inv *domain.Investment) error {
	if _, ok := r.rows[inv.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *inv
	r.rows[inv.ID] = &cp
	return nil
}

func (r *investmentRepo) DeleteInvestment(ctx context.Context, userID, id int64) error {
	if inv, ok := r.rows[id]; !ok || inv.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type profileRepo struct {
	profiles map[int64]*domain.UserProfile
	saves    int
}

func newProfileRepo() *profileRepo {
	return &profileRepo{profiles: map[int64]*domain.UserProfile{}}
}

func (r *profileRepo) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		p = &domain.UserProfile{UserID: userID, Theme: domain.DefaultTheme, FilteredCategories: []string{}}
		r.profiles[userID] = p
	}
	cp := *p
	return &cp, nil
}

func (r *profileRepo) SaveProfile(ctx context.Context, p *domain.UserProfile) error {
	r.saves++
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

type userRepo struct {
	nextID int64
	byID   map[int64]*domain.User
}

func newUserRepo() *userRepo {
	return &userRepo{byID: map[int64]*domain.User{}}
}

func (r *userRepo) UpsertGoogleUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			existing.Name = u.Name
			existing.PictureURL = u.PictureURL
			return existing, nil
		}
	}
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	r.byID[cp.ID] = &cp
	return &cp, nil
}

func (r *userRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}
