// Package sqlite provides SQLite-backed implementations of the store
// interfaces for single-instance deployments. Models are stored as JSON
// documents keyed by user; transactions get their own table so analysis
// windows can be served with a range query.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS behavior_models (
	user_id        TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	model_json     TEXT NOT NULL,
	updated_ts     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id TEXT,
	user_id        TEXT NOT NULL,
	amount         REAL NOT NULL,
	merchant       TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL,
	ts             INTEGER,
	raw_message    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_ts
	ON transactions (user_id, type, ts);
`

// Store implements store.ModelStore and store.TransactionStore on a single
// SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and initializes
// the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("Open: open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetModel implements store.ModelStore.
func (s *Store) GetModel(ctx context.Context, userID string) (*behavior.Model, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT model_json FROM behavior_models WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetModel: user %s: %w", userID, store.ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetModel: query model: %w", err)
	}

	var model behavior.Model
	if err := json.Unmarshal([]byte(raw), &model); err != nil {
		return nil, fmt.Errorf("GetModel: unmarshal model: %w", err)
	}
	return &model, nil
}

// UpsertModel implements store.ModelStore.
func (s *Store) UpsertModel(ctx context.Context, model *behavior.Model) error {
	if model == nil || model.UserID == "" {
		return fmt.Errorf("UpsertModel: model with user ID is required")
	}

	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("UpsertModel: marshal model: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO behavior_models (user_id, schema_version, model_json, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			model_json = excluded.model_json,
			updated_ts = excluded.updated_ts`,
		model.UserID, model.SchemaVersion, string(raw), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("UpsertModel: upsert model: %w", err)
	}
	return nil
}

// Insert implements store.TransactionStore.
func (s *Store) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.UserID == "" {
		return fmt.Errorf("Insert: transaction with user ID is required")
	}

	var ts any
	if tx.Timestamp != nil {
		ts = tx.Timestamp.UTC().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, user_id, amount, merchant, category, type, ts, raw_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.TransactionID, tx.UserID, tx.Amount, tx.Merchant, tx.Category, string(tx.Type), ts, tx.RawMessage,
	)
	if err != nil {
		return fmt.Errorf("Insert: insert transaction: %w", err)
	}
	return nil
}

// ListDebitsSince implements store.TransactionStore.
func (s *Store) ListDebitsSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, user_id, amount, merchant, category, type, ts, raw_message
		FROM transactions
		WHERE user_id = ? AND type = ? AND ts IS NOT NULL AND ts >= ?
		ORDER BY ts ASC`,
		userID, string(domain.TypeDebit), since.UTC().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("ListDebitsSince: query transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var (
			tx     domain.Transaction
			txType string
			unixTS int64
		)
		if err := rows.Scan(&tx.TransactionID, &tx.UserID, &tx.Amount, &tx.Merchant, &tx.Category, &txType, &unixTS, &tx.RawMessage); err != nil {
			return nil, fmt.Errorf("ListDebitsSince: scan row: %w", err)
		}
		tx.Type = domain.TransactionType(txType)
		ts := time.Unix(unixTS, 0).UTC()
		tx.Timestamp = &ts
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDebitsSince: iterate rows: %w", err)
	}
	return result, nil
}

var _ store.ModelStore = (*Store)(nil)
var _ store.TransactionStore = (*Store)(nil)
