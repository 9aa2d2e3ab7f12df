package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/store"
)

// Insert implements store.TransactionStore.
func (s *Store) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.UserID == "" {
		return fmt.Errorf("Insert: transaction with user ID is required")
	}

	amount, ok := new(big.Rat).SetString(fmt.Sprintf("%.2f", tx.Amount))
	if !ok {
		return fmt.Errorf("Insert: invalid amount %v", tx.Amount)
	}

	row := &TransactionRow{
		UserID:    tx.UserID,
		Amount:    amount,
		Merchant:  tx.Merchant,
		Category:  tx.Category,
		Type:      string(tx.Type),
		CreatedTS: time.Now().UTC(),
	}
	if tx.TransactionID != "" {
		row.TransactionID = bigquery.NullString{StringVal: tx.TransactionID, Valid: true}
	}
	if tx.RawMessage != "" {
		row.RawMessage = bigquery.NullString{StringVal: tx.RawMessage, Valid: true}
	}
	if tx.Timestamp != nil {
		ts := tx.Timestamp.UTC()
		row.TxDate = civil.DateOf(ts)
		row.TxTS = bigquery.NullTimestamp{Timestamp: ts, Valid: true}
	} else {
		row.TxDate = civil.DateOf(time.Now().UTC())
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, []*TransactionRow{row}); err != nil {
		return fmt.Errorf("Insert: inserting row: %w", err)
	}
	return nil
}

// ListDebitsSince implements store.TransactionStore.
func (s *Store) ListDebitsSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT transaction_id, user_id, amount, merchant, category, type, tx_ts, raw_message
		FROM %s
		WHERE user_id = @user_id
		  AND type = 'debit'
		  AND tx_ts IS NOT NULL
		  AND tx_ts >= @since
		ORDER BY tx_ts
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: since.UTC()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListDebitsSince: query read: %w", err)
	}

	var result []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListDebitsSince: iter next: %w", err)
		}

		tx := domain.Transaction{
			UserID:   r.UserID,
			Merchant: r.Merchant,
			Category: r.Category,
			Type:     domain.TransactionType(r.Type),
		}
		if r.TransactionID.Valid {
			tx.TransactionID = r.TransactionID.StringVal
		}
		if r.RawMessage.Valid {
			tx.RawMessage = r.RawMessage.StringVal
		}
		if r.Amount != nil {
			tx.Amount, _ = r.Amount.Float64()
		}
		if r.TxTS.Valid {
			ts := r.TxTS.Timestamp.UTC()
			tx.Timestamp = &ts
		}
		result = append(result, tx)
	}
	return result, nil
}

var _ store.TransactionStore = (*Store)(nil)
