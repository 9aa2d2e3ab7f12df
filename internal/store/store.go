// Package store defines persistence interfaces for behavior models and
// transactions. Implementations live in subpackages (in-memory, SQLite) and
// in internal/infra/bigquery for the hosted deployment.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/domain"
)

// ErrModelNotFound is returned when no behavior model exists for a user.
var ErrModelNotFound = errors.New("behavior model not found")

// ModelStore persists behavior model snapshots keyed by user ID.
type ModelStore interface {
	// GetModel retrieves the model for a user, or ErrModelNotFound.
	GetModel(ctx context.Context, userID string) (*behavior.Model, error)

	// UpsertModel saves or replaces the model for its user.
	UpsertModel(ctx context.Context, model *behavior.Model) error
}

// TransactionStore persists transactions and serves analysis windows.
type TransactionStore interface {
	// Insert stores a transaction.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// ListDebitsSince returns the user's debit transactions with a
	// timestamp at or after the cutoff, oldest first. Transactions without
	// a timestamp are excluded.
	ListDebitsSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error)
}
