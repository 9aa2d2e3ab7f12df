package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/store"
)

const (
	modelsTable       = "behavior_models"
	transactionsTable = "transactions"
)

// Store implements store.ModelStore and store.TransactionStore on BigQuery.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a BigQuery-backed store. The caller owns the client
// lifetime via Close.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// NewStoreWithClient creates a BigQuery-backed store using the provided
// client; useful when several components share one client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the underlying BigQuery client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// GetModel implements store.ModelStore. The latest snapshot per user wins;
// streaming inserts append rather than update, so the query orders by
// updated_ts and takes the newest row.
func (s *Store) GetModel(ctx context.Context, userID string) (*behavior.Model, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT model_json
		FROM %s
		WHERE user_id = @user_id
		ORDER BY updated_ts DESC
		LIMIT 1
	`, s.table(modelsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetModel: query read: %w", err)
	}

	var row struct {
		ModelJSON string `bigquery:"model_json"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetModel: user %s: %w", userID, store.ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetModel: iter next: %w", err)
	}

	var model behavior.Model
	if err := json.Unmarshal([]byte(row.ModelJSON), &model); err != nil {
		return nil, fmt.Errorf("GetModel: unmarshal model: %w", err)
	}
	return &model, nil
}

// UpsertModel implements store.ModelStore by appending a new snapshot row.
func (s *Store) UpsertModel(ctx context.Context, model *behavior.Model) error {
	if model == nil || model.UserID == "" {
		return fmt.Errorf("UpsertModel: model with user ID is required")
	}

	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("UpsertModel: marshal model: %w", err)
	}

	row := &BehaviorModelRow{
		UserID:        model.UserID,
		SchemaVersion: int64(model.SchemaVersion),
		ModelJSON:     string(raw),
		UpdatedTS:     time.Now().UTC(),
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(modelsTable)
	if err := table.Inserter().Put(ctx, []*BehaviorModelRow{row}); err != nil {
		return fmt.Errorf("UpsertModel: inserting row: %w", err)
	}
	return nil
}

var _ store.ModelStore = (*Store)(nil)
