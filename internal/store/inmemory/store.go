// Package inmemory provides map-backed implementations of the store
// interfaces. Data is lost on restart - suitable for development and tests.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/store"
)

// ModelStore is an in-memory implementation of store.ModelStore.
// It is safe for concurrent use.
type ModelStore struct {
	mu     sync.RWMutex
	models map[string]*behavior.Model
}

// NewModelStore creates a new in-memory model store.
func NewModelStore() *ModelStore {
	return &ModelStore{
		models: make(map[string]*behavior.Model),
	}
}

// GetModel implements store.ModelStore. The returned model is a deep copy,
// so callers can mutate it freely.
func (s *ModelStore) GetModel(ctx context.Context, userID string) (*behavior.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, exists := s.models[userID]
	if !exists {
		return nil, fmt.Errorf("GetModel: user %s: %w", userID, store.ErrModelNotFound)
	}
	return model.Clone(), nil
}

// UpsertModel implements store.ModelStore. A deep copy is stored, so later
// mutations of the argument do not leak into the store.
func (s *ModelStore) UpsertModel(ctx context.Context, model *behavior.Model) error {
	if model == nil || model.UserID == "" {
		return fmt.Errorf("UpsertModel: model with user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[model.UserID] = model.Clone()
	return nil
}

// TransactionStore is an in-memory implementation of store.TransactionStore.
// It is safe for concurrent use.
type TransactionStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Transaction
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byUser: make(map[string][]domain.Transaction),
	}
}

// Insert implements store.TransactionStore.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.UserID == "" {
		return fmt.Errorf("Insert: transaction with user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[tx.UserID] = append(s.byUser[tx.UserID], *tx)
	return nil
}

// ListDebitsSince implements store.TransactionStore.
func (s *TransactionStore) ListDebitsSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Transaction
	for _, tx := range s.byUser[userID] {
		if tx.Type != domain.TypeDebit || tx.Timestamp == nil {
			continue
		}
		if tx.Timestamp.Before(since) {
			continue
		}
		result = append(result, tx)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(*result[j].Timestamp)
	})
	return result, nil
}

var _ store.ModelStore = (*ModelStore)(nil)
var _ store.TransactionStore = (*TransactionStore)(nil)
