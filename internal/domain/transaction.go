package domain

import (
	"fmt"
	"math"
	"time"
)

// TransactionType distinguishes money leaving the account from money
// arriving. Only debits feed the behavior model.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Transaction is one normalized transaction as produced by the ingestion
// pipeline. The behavior and simulation engines consume it read-only; the
// Category field is the only thing the update path ever assigns (when the
// categorizer runs), and the caller is responsible for persisting that.
type Transaction struct {
	TransactionID string          `json:"transaction_id,omitempty"`
	UserID        string          `json:"user_id"`
	Amount        float64         `json:"amount"` // always positive, 2 decimal places
	Merchant      string          `json:"merchant,omitempty"`
	Category      string          `json:"category,omitempty"`
	Type          TransactionType `json:"type"`
	Timestamp     *time.Time      `json:"timestamp,omitempty"` // nil excludes the tx from temporal analysis
	RawMessage    string          `json:"raw_message,omitempty"`
}

// Validate checks the invariants the engines rely on. It does not check the
// category label; unknown labels are coerced downstream.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("transaction: user_id is required")
	}
	if t.Type != TypeDebit && t.Type != TypeCredit {
		return fmt.Errorf("transaction: invalid type %q", t.Type)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("transaction: amount must be positive, got %v", t.Amount)
	}
	cents := t.Amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("transaction: amount %v has more than 2 decimal places", t.Amount)
	}
	return nil
}

// Hour returns the local hour of the transaction, or 12 (midday) when the
// timestamp is absent, matching the neutral default used by impulse scoring.
func (t *Transaction) Hour() int {
	if t.Timestamp == nil {
		return 12
	}
	return t.Timestamp.Hour()
}

// Weekday returns the day of week with Monday=0 .. Sunday=6, or -1 when the
// timestamp is absent.
func (t *Transaction) Weekday() int {
	if t.Timestamp == nil {
		return -1
	}
	return (int(t.Timestamp.Weekday()) + 6) % 7
}

// IsWeekend reports whether the transaction happened on Saturday or Sunday.
// Transactions without a timestamp are never treated as weekend spend.
func (t *Transaction) IsWeekend() bool {
	wd := t.Weekday()
	return wd == 5 || wd == 6
}
