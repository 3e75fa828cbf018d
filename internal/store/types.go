package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/carteira/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrUnknownCategory is returned when a transaction references a category
	// the user does not own.
	ErrUnknownCategory = errors.New("unknown category")
)

// TransactionFilter narrows ListTransactions. Zero dates are unbounded.
type TransactionFilter struct {
	StartDate domain.Date
	EndDate   domain.Date
}

// TransactionRepository provides user-scoped transaction persistence.
type TransactionRepository interface {
	// ListTransactions returns the user's transactions ordered by date descending.
	ListTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]*domain.Transaction, error)

	// GetTransaction returns one transaction or ErrNotFound.
	GetTransaction(ctx context.Context, userID, id int64) (*domain.Transaction, error)

	// CreateTransaction inserts a transaction, returning ErrConflict when the
	// identity tuple already exists.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	// InsertTransactionIfAbsent inserts tx unless its identity tuple already
	// exists. It reports whether a row was created.
	InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error)

	// UpdateTransaction overwrites all mutable fields of an existing transaction.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// DeleteTransaction removes a transaction or returns ErrNotFound.
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

// CategoryRepository provides user-scoped category persistence.
type CategoryRepository interface {
	// ListCategories returns the user's categories ordered by name.
	ListCategories(ctx context.Context, userID int64) ([]*domain.Category, error)

	// CreateCategory inserts a category, returning ErrConflict on a duplicate name.
	CreateCategory(ctx context.Context, c *domain.Category) error

	// GetOrCreateCategory resolves a category by (user, name), creating it if absent.
	GetOrCreateCategory(ctx context.Context, userID int64, name string) (*domain.Category, error)

	// RenameCategory changes a category name.
	RenameCategory(ctx context.Context, c *domain.Category) error

	// DeleteCategory removes a category; transactions keep a NULL category.
	DeleteCategory(ctx context.Context, userID, id int64) error
}

// InvestmentRepository provides user-scoped holding persistence.
type InvestmentRepository interface {
	ListInvestments(ctx context.Context, userID int64) ([]*domain.Investment, error)
	GetInvestment(ctx context.Context, userID, id int64) (*domain.Investment, error)
	CreateInvestment(ctx context.Context, inv *domain.Investment) error
	UpdateInvestment(ctx context.Context, inv *domain.Investment) error
	DeleteInvestment(ctx context.Context, userID, id int64) error
}

// ProfileRepository stores one profile per user.
type ProfileRepository interface {
	// GetOrCreateProfile returns the user's profile, creating the default one if needed.
	GetOrCreateProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)

	// SaveProfile writes every profile field.
	SaveProfile(ctx context.Context, p *domain.UserProfile) error
}

// UserRepository stores accounts created through social login.
type UserRepository interface {
	// UpsertGoogleUser creates the user on first login or refreshes name and picture.
	UpsertGoogleUser(ctx context.Context, u *domain.User) (*domain.User, error)

	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Run kinds recorded by a RunRecorder.
const (
	RunKindStatementImport = "statement_import"
	RunKindHistoryRefresh  = "history_refresh"
)

// RunStats are the counters written when a run succeeds.
type RunStats struct {
	ItemsTotal   int
	ItemsCreated int
}

// RunRow is one audited run.
type RunRow struct {
	RunID        string
	Kind         string
	Subject      string
	UserID       int64
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       string
	ErrorMessage string
	ItemsTotal   int
	ItemsCreated int
}

// RunRecorder audits long-running operations (statement imports, refreshes).
type RunRecorder interface {
	// StartRun records a RUNNING run and returns its id.
	StartRun(ctx context.Context, kind, subject string, userID int64) (string, error)

	// MarkRunFailed sets status=FAILED. Failures to record are logged, not returned.
	MarkRunFailed(ctx context.Context, runID string, runErr error)

	// MarkRunSucceeded sets status=SUCCESS with the final counters.
	MarkRunSucceeded(ctx context.Context, runID string, stats RunStats) error
}

// RunLister reads back recent runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]*RunRow, error)
}

// NopRunRecorder discards all run records. It is used when no audit backend is configured.
type NopRunRecorder struct{}

func (NopRunRecorder) StartRun(ctx context.Context, kind, subject string, userID int64) (string, error) {
	return "", nil
}

func (NopRunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {}

func (NopRunRecorder) MarkRunSucceeded(ctx context.Context, runID string, stats RunStats) error {
	return nil
}

var _ RunRecorder = NopRunRecorder{}
