// Package behavior holds the per-user spending model and the engine that
// folds transactions into it one at a time.
package behavior

import (
	"time"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/stats"
)

// SchemaVersion is stamped into every model so stored snapshots can be
// migrated if the shape of the model changes.
const SchemaVersion = 1

// Habits are cumulative temporal distributions of debit activity.
// Weekly uses the Monday=0 .. Sunday=6 convention.
type Habits struct {
	Hourly [24]int `json:"hourly_distribution"`
	Weekly [7]int  `json:"weekly_distribution"`
}

// Model is the persisted spending profile for a single user, the single
// source of truth consumed by the simulation engine. It is mutated only by
// Engine.UpdateModel, which returns a fresh snapshot rather than editing
// shared state in place.
type Model struct {
	SchemaVersion    int                                          `json:"schema_version"`
	UserID           string                                       `json:"user_id"`
	CategoryStats    map[categories.Category]stats.CategoryStats  `json:"category_stats"`
	Elasticity       map[categories.Category]float64              `json:"elasticity"`
	Baselines        map[categories.Category]float64              `json:"baselines"`
	ImpulseScore     float64                                      `json:"impulse_score"`
	Habits           Habits                                       `json:"habits"`
	TransactionCount int                                          `json:"transaction_count"`
	LastUpdated      time.Time                                    `json:"last_updated"`
}

// NewModel creates an empty model for a user. Models are created lazily on
// the first debit transaction and never deleted by this package.
func NewModel(userID string) *Model {
	return &Model{
		SchemaVersion: SchemaVersion,
		UserID:        userID,
		CategoryStats: make(map[categories.Category]stats.CategoryStats),
		Elasticity:    make(map[categories.Category]float64),
		Baselines:     make(map[categories.Category]float64),
	}
}

// Clone returns a deep copy. The engine works on a clone so callers holding
// the previous snapshot never observe a half-applied update.
func (m *Model) Clone() *Model {
	out := *m
	out.CategoryStats = make(map[categories.Category]stats.CategoryStats, len(m.CategoryStats))
	for k, v := range m.CategoryStats {
		out.CategoryStats[k] = v
	}
	out.Elasticity = make(map[categories.Category]float64, len(m.Elasticity))
	for k, v := range m.Elasticity {
		out.Elasticity[k] = v
	}
	out.Baselines = make(map[categories.Category]float64, len(m.Baselines))
	for k, v := range m.Baselines {
		out.Baselines[k] = v
	}
	return &out
}

// Categories lists the categories the model has statistics for, in no
// particular order.
func (m *Model) Categories() []categories.Category {
	out := make([]categories.Category, 0, len(m.CategoryStats))
	for c := range m.CategoryStats {
		out = append(out, c)
	}
	return out
}
