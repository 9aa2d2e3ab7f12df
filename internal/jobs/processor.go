package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/store"
)

// Processor folds queued transactions into behavior models. It is the
// consumer-side counterpart of the API's ingest endpoint.
type Processor struct {
	engine *behavior.Engine
	models store.ModelStore
	txs    store.TransactionStore
	log    zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(engine *behavior.Engine, models store.ModelStore, txs store.TransactionStore, log zerolog.Logger) *Processor {
	return &Processor{engine: engine, models: models, txs: txs, log: log}
}

// Handle is the JobHandler for update_model jobs. It loads the user's model
// (a missing model means a first-time user), folds the transaction in, and
// persists both the updated model and the transaction. The transaction is
// stored with whatever category the fold assigned.
func (p *Processor) Handle(ctx context.Context, job *UpdateModelJob) error {
	if job.UserID == "" {
		return fmt.Errorf("Handle: job %s: user ID is required", job.JobID)
	}

	model, err := p.models.GetModel(ctx, job.UserID)
	if err != nil && !errors.Is(err, store.ErrModelNotFound) {
		return fmt.Errorf("Handle: load model: %w", err)
	}

	tx := job.Transaction
	updated, err := p.engine.UpdateModel(ctx, model, &tx)
	if err != nil {
		return fmt.Errorf("Handle: update model: %w", err)
	}

	if err := p.models.UpsertModel(ctx, updated); err != nil {
		return fmt.Errorf("Handle: save model: %w", err)
	}

	if err := p.txs.Insert(ctx, &tx); err != nil {
		// The model fold already succeeded; losing the raw transaction only
		// affects future analysis windows, so log and report the failure.
		p.log.Error().Err(err).Str("user_id", job.UserID).Msg("failed to store transaction")
		return fmt.Errorf("Handle: store transaction: %w", err)
	}

	p.log.Debug().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Str("category", tx.Category).
		Int("transaction_count", updated.TransactionCount).
		Msg("model updated")

	return nil
}
