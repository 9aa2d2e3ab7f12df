package behavior

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/categorizer"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/stats"
)

// baselineStdDevSpan is how many standard deviations below the mean the
// per-category baseline sits before the downward ratchet is applied.
const baselineStdDevSpan = 1.5

// Engine folds transactions into behavior models. It is stateless between
// calls; per-user serialization of UpdateModel is the caller's concern
// (see the jobs queue), as is persisting the returned snapshot.
type Engine struct {
	cfg        stats.Config
	cat        categorizer.Categorizer
	catTimeout time.Duration
	log        zerolog.Logger
}

// NewEngine creates an engine. The categorizer may have unbounded external
// latency, so every invocation is bounded by catTimeout with a deterministic
// fallback on error or expiry.
func NewEngine(cat categorizer.Categorizer, cfg stats.Config, catTimeout time.Duration, log zerolog.Logger) *Engine {
	if catTimeout <= 0 {
		catTimeout = 10 * time.Second
	}
	return &Engine{cfg: cfg, cat: cat, catTimeout: catTimeout, log: log}
}

// UpdateModel applies one transaction to a user's model and returns a new
// snapshot. A nil model means no model exists yet; one is created lazily.
// Credits are returned unchanged. Categorizer failures never abort the
// update: the transaction falls back to OTHER. The input model is not
// mutated; tx.Category is assigned in place when categorization ran so the
// caller can persist the label.
func (e *Engine) UpdateModel(ctx context.Context, model *Model, tx *domain.Transaction) (*Model, error) {
	if err := tx.Validate(); err != nil {
		return model, fmt.Errorf("UpdateModel: %w", err)
	}

	if model == nil {
		model = NewModel(tx.UserID)
	}

	if tx.Type != domain.TypeDebit {
		return model, nil
	}

	if tx.Category == "" {
		tx.Category = string(e.categorize(ctx, tx))
	}
	cat := categories.Coerce(tx.Category)

	next := model.Clone()

	// Decay relative to "this update": only the touched category decays,
	// and only before the new observation is folded in.
	cs, seen := next.CategoryStats[cat]
	if seen {
		cs = cs.Decayed(e.cfg.DecayFactor)
	}
	cs = cs.Update(tx.Amount)
	next.CategoryStats[cat] = cs

	next.Elasticity[cat] = stats.Elasticity(cat, cs, e.cfg)

	// Baselines only ratchet downward: best observed typical low spend.
	baseline := math.Max(0, cs.Mean-baselineStdDevSpan*cs.StdDev)
	if prior, ok := next.Baselines[cat]; ok {
		baseline = math.Min(prior, baseline)
	}
	next.Baselines[cat] = baseline

	flag := stats.Impulse(tx, next.CategoryStats, e.cfg)
	w := e.cfg.ImpulseEMAWeight
	next.ImpulseScore = w*next.ImpulseScore + (1-w)*flag

	if tx.Timestamp != nil {
		next.Habits.Hourly[tx.Hour()]++
		next.Habits.Weekly[tx.Weekday()]++
	}

	next.TransactionCount++
	next.LastUpdated = time.Now().UTC()

	return next, nil
}

// categorize runs the injected categorizer with a timeout and falls back to
// OTHER on any failure. The fallback is deliberate: an uncategorized debit
// must still update the model.
func (e *Engine) categorize(ctx context.Context, tx *domain.Transaction) categories.Category {
	if e.cat == nil {
		return categories.Other
	}

	cctx, cancel := context.WithTimeout(ctx, e.catTimeout)
	defer cancel()

	res, err := e.cat.Categorize(cctx, tx.Merchant, tx.Amount, tx.RawMessage, tx.Type)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("user_id", tx.UserID).
			Str("merchant", tx.Merchant).
			Msg("Categorization failed, falling back to OTHER")
		return categories.Other
	}
	return categories.Coerce(string(res.Category))
}
