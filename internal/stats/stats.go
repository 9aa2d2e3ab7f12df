// Package stats implements the incremental statistics underlying the
// behavior model: Welford running mean/variance, exponential time decay,
// elasticity scoring and per-transaction impulse detection.
package stats

import (
	"math"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// CategoryStats is the running-statistics record for one spending category.
// Values are updated one observation at a time; M2 is Welford's second-moment
// accumulator, kept so variance can be derived without storing history.
type CategoryStats struct {
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	M2       float64 `json:"m2"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Update folds one observation into the record using Welford's one-pass
// algorithm and returns the new record. Welford is preferred over a naive
// sum-of-squares because it is numerically stable and O(1) per observation.
func (s CategoryStats) Update(amount float64) CategoryStats {
	n := s.Count + 1
	delta := amount - s.Mean
	mean := s.Mean + delta/float64(n)
	delta2 := amount - mean
	m2 := s.M2 + delta*delta2

	variance := 0.0
	if n > 1 {
		variance = m2 / float64(n)
	}

	out := CategoryStats{
		Count:    n,
		Sum:      s.Sum + amount,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		M2:       m2,
		Min:      math.Min(s.Min, amount),
		Max:      math.Max(s.Max, amount),
	}
	if s.Count == 0 {
		out.Min = amount
		out.Max = amount
	}
	return out
}

// Decayed scales Mean, Variance and M2 by factor so that recent observations
// dominate the running statistics. Count, Sum, Min and Max are untouched:
// Count still reflects total observations seen. No-op on an empty record.
func (s CategoryStats) Decayed(factor float64) CategoryStats {
	if s.Count == 0 {
		return s
	}
	out := s
	out.Mean *= factor
	out.Variance *= factor
	out.M2 *= factor
	out.StdDev = math.Sqrt(out.Variance)
	return out
}

// Config holds the tunable constants of the statistics engine. Zero values
// are not meaningful; always start from DefaultConfig.
type Config struct {
	// DecayFactor scales existing category stats once per update cycle.
	DecayFactor float64
	// ImpulseEMAWeight is the weight of the prior impulse score in the
	// exponential moving average; the new flag gets 1-weight.
	ImpulseEMAWeight float64
	// ZScoreDivisor normalizes the amount z-score into [0,1].
	ZScoreDivisor float64
	// Multipliers applied by impulse detection.
	DiscretionaryMult float64
	LateNightMult     float64
	WeekendMult       float64
	// Elasticity priors per category, plus the bounds of the volatility
	// bonus derived from the coefficient of variation.
	Priors             map[categories.Category]float64
	MaxVolatilityBonus float64
	VolatilityScale    float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DecayFactor:        0.98,
		ImpulseEMAWeight:   0.9,
		ZScoreDivisor:      2.5,
		DiscretionaryMult:  1.5,
		LateNightMult:      1.3,
		WeekendMult:        1.2,
		Priors:             categories.DefaultPriors(),
		MaxVolatilityBonus: 0.25,
		VolatilityScale:    0.5,
	}
}

// Elasticity estimates how flexible spending in a category is, in [0,1].
// It starts from the configured per-category prior and adds a bounded bonus
// when observed spend is noisy relative to its mean (coefficient of
// variation), so no category is ever treated as perfectly elastic.
func Elasticity(cat categories.Category, s CategoryStats, cfg Config) float64 {
	base, ok := cfg.Priors[cat]
	if !ok {
		base = cfg.Priors[categories.Other]
	}

	bonus := 0.0
	if s.Mean > 0 {
		cv := math.Sqrt(s.Variance) / s.Mean
		bonus = math.Min(cfg.MaxVolatilityBonus, cv*cfg.VolatilityScale)
	}
	return math.Min(1.0, base+bonus)
}

// Impulse scores how impulsive a single transaction looks, in [0,1]. Four
// multiplicative factors: amount z-score against the category's running
// stats, discretionary category, late-night hour (22:00-06:59) and weekend.
// The result is an instantaneous signal; only its EMA is persisted.
func Impulse(tx *domain.Transaction, byCategory map[categories.Category]CategoryStats, cfg Config) float64 {
	cat := categories.Coerce(tx.Category)
	cs := byCategory[cat]

	zFactor := 0.3
	if cs.Mean > 0 && cs.StdDev > 0 {
		z := math.Abs(tx.Amount-cs.Mean) / cs.StdDev
		zFactor = math.Min(1.0, z/cfg.ZScoreDivisor)
	}

	catMult := 1.0
	if categories.IsDiscretionary(cat) {
		catMult = cfg.DiscretionaryMult
	}

	timeMult := 1.0
	if hour := tx.Hour(); hour >= 22 || hour <= 6 {
		timeMult = cfg.LateNightMult
	}

	weekendMult := 1.0
	if tx.IsWeekend() {
		weekendMult = cfg.WeekendMult
	}

	return math.Min(1.0, zFactor*catMult*timeMult*weekendMult)
}
