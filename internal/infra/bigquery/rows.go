// Package bigquery provides BigQuery-backed implementations of the store
// interfaces for the hosted deployment. Models are stored as JSON documents;
// transactions get their own table so analysis windows can be served with a
// date-range query.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// BehaviorModelRow is one behavior model snapshot in <dataset>.behavior_models.
type BehaviorModelRow struct {
	UserID        string `bigquery:"user_id"`        // REQUIRED
	SchemaVersion int64  `bigquery:"schema_version"` // REQUIRED
	ModelJSON     string `bigquery:"model_json"`     // REQUIRED JSON document

	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

// TransactionRow is one transaction in <dataset>.transactions.
type TransactionRow struct {
	TransactionID bigquery.NullString `bigquery:"transaction_id"` // NULLABLE
	UserID        string              `bigquery:"user_id"`        // REQUIRED

	Amount   *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC
	Merchant string   `bigquery:"merchant"`
	Category string   `bigquery:"category"`
	Type     string   `bigquery:"type"` // REQUIRED: debit | credit

	TxDate civil.Date             `bigquery:"tx_date"` // REQUIRED, partition column
	TxTS   bigquery.NullTimestamp `bigquery:"tx_ts"`   // NULLABLE

	RawMessage bigquery.NullString `bigquery:"raw_message"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}
