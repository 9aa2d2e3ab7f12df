package stats

import (
	"math"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestUpdateMatchesBatchStatistics(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
	}{
		{"single", []float64{42.50}},
		{"uniform", []float64{50, 50, 50, 50}},
		{"spread", []float64{10, 200, 35.75, 80, 12.30, 150}},
		{"large values", []float64{10000, 25000, 18000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s CategoryStats
			for _, a := range tt.amounts {
				s = s.Update(a)
			}

			n := float64(len(tt.amounts))
			sum := 0.0
			for _, a := range tt.amounts {
				sum += a
			}
			mean := sum / n
			variance := 0.0
			for _, a := range tt.amounts {
				variance += (a - mean) * (a - mean)
			}
			variance /= n

			if s.Count != len(tt.amounts) {
				t.Errorf("Count = %d, want %d", s.Count, len(tt.amounts))
			}
			if !almostEqual(s.Sum, sum, 1e-9) {
				t.Errorf("Sum = %v, want %v", s.Sum, sum)
			}
			if !almostEqual(s.Mean, mean, 1e-9) {
				t.Errorf("Mean = %v, want %v", s.Mean, mean)
			}
			if !almostEqual(s.Variance, variance, 1e-9) {
				t.Errorf("Variance = %v, want %v", s.Variance, variance)
			}
			if !almostEqual(s.StdDev, math.Sqrt(variance), 1e-9) {
				t.Errorf("StdDev = %v, want %v", s.StdDev, math.Sqrt(variance))
			}
		})
	}
}

func TestUpdateMinMax(t *testing.T) {
	var s CategoryStats
	s = s.Update(100)
	if s.Min != 100 || s.Max != 100 {
		t.Fatalf("first observation: Min = %v, Max = %v, want 100, 100", s.Min, s.Max)
	}
	s = s.Update(40)
	s = s.Update(250)
	if s.Min != 40 {
		t.Errorf("Min = %v, want 40", s.Min)
	}
	if s.Max != 250 {
		t.Errorf("Max = %v, want 250", s.Max)
	}
}

func TestDecayed(t *testing.T) {
	var s CategoryStats
	for _, a := range []float64{50, 80, 120} {
		s = s.Update(a)
	}

	d := s.Decayed(0.98)

	if !almostEqual(d.Mean, s.Mean*0.98, 1e-9) {
		t.Errorf("Mean = %v, want %v", d.Mean, s.Mean*0.98)
	}
	if !almostEqual(d.Variance, s.Variance*0.98, 1e-9) {
		t.Errorf("Variance = %v, want %v", d.Variance, s.Variance*0.98)
	}
	if !almostEqual(d.StdDev, math.Sqrt(s.Variance*0.98), 1e-9) {
		t.Errorf("StdDev = %v, want sqrt of decayed variance", d.StdDev)
	}
	// Count, Sum, Min and Max survive decay.
	if d.Count != s.Count || d.Sum != s.Sum || d.Min != s.Min || d.Max != s.Max {
		t.Errorf("Decayed touched Count/Sum/Min/Max: %+v vs %+v", d, s)
	}
}

func TestDecayedEmptyIsNoop(t *testing.T) {
	var s CategoryStats
	if d := s.Decayed(0.98); d != s {
		t.Errorf("Decayed on empty record = %+v, want unchanged", d)
	}
}

func TestElasticity(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("no observations uses prior", func(t *testing.T) {
		got := Elasticity(categories.Dining, CategoryStats{}, cfg)
		if got != cfg.Priors[categories.Dining] {
			t.Errorf("Elasticity = %v, want prior %v", got, cfg.Priors[categories.Dining])
		}
	})

	t.Run("volatility bonus is bounded", func(t *testing.T) {
		// Extremely noisy spend: cv far above what the bonus cap allows.
		s := CategoryStats{Count: 10, Mean: 10, Variance: 10000, StdDev: 100}
		got := Elasticity(categories.Groceries, s, cfg)
		want := cfg.Priors[categories.Groceries] + cfg.MaxVolatilityBonus
		if !almostEqual(got, want, 1e-9) {
			t.Errorf("Elasticity = %v, want %v", got, want)
		}
	})

	t.Run("capped at one", func(t *testing.T) {
		s := CategoryStats{Count: 10, Mean: 10, Variance: 10000, StdDev: 100}
		got := Elasticity(categories.Travel, s, cfg)
		if got > 1.0 {
			t.Errorf("Elasticity = %v, want <= 1.0", got)
		}
	})

	t.Run("unknown category falls back to OTHER prior", func(t *testing.T) {
		got := Elasticity(categories.Category("MYSTERY"), CategoryStats{}, cfg)
		if got != cfg.Priors[categories.Other] {
			t.Errorf("Elasticity = %v, want %v", got, cfg.Priors[categories.Other])
		}
	})
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return &parsed
}

func TestImpulse(t *testing.T) {
	cfg := DefaultConfig()

	history := map[categories.Category]CategoryStats{
		categories.Groceries: {Count: 20, Mean: 50, Variance: 100, StdDev: 10},
		categories.Dining:    {Count: 20, Mean: 40, Variance: 64, StdDev: 8},
	}

	tests := []struct {
		name string
		tx   domain.Transaction
		want float64
	}{
		{
			// Tuesday midday, essential, amount exactly at the mean.
			name: "calm essential purchase",
			tx:   domain.Transaction{UserID: "u1", Amount: 50, Category: "GROCERIES", Type: domain.TypeDebit, Timestamp: ts(t, "2025-06-10T12:00:00Z")},
			want: 0,
		},
		{
			// z = 2.5 saturates the z-factor.
			name: "z factor saturates",
			tx:   domain.Transaction{UserID: "u1", Amount: 75, Category: "GROCERIES", Type: domain.TypeDebit, Timestamp: ts(t, "2025-06-10T12:00:00Z")},
			want: 1.0,
		},
		{
			// No history: zFactor 0.3, discretionary 1.5.
			name: "discretionary default z",
			tx:   domain.Transaction{UserID: "u1", Amount: 30, Category: "SHOPPING", Type: domain.TypeDebit, Timestamp: ts(t, "2025-06-10T12:00:00Z")},
			want: 0.3 * 1.5,
		},
		{
			// Saturday 23:00: late night and weekend both apply.
			name: "late night weekend discretionary",
			tx:   domain.Transaction{UserID: "u1", Amount: 40, Category: "SHOPPING", Type: domain.TypeDebit, Timestamp: ts(t, "2025-06-14T23:00:00Z")},
			want: 0.3 * 1.5 * 1.3 * 1.2,
		},
		{
			// Missing timestamp defaults to midday, no temporal multipliers.
			name: "no timestamp",
			tx:   domain.Transaction{UserID: "u1", Amount: 30, Category: "ENTERTAINMENT", Type: domain.TypeDebit},
			want: 0.3 * 1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Impulse(&tt.tx, history, cfg)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("Impulse = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Impulse = %v, want within [0,1]", got)
			}
		})
	}
}

func TestImpulseClampedAtOne(t *testing.T) {
	cfg := DefaultConfig()
	history := map[categories.Category]CategoryStats{
		categories.Dining: {Count: 20, Mean: 40, Variance: 64, StdDev: 8},
	}

	// Huge z-score, discretionary, late night, weekend: raw product is well
	// above 1 and must clamp.
	tx := domain.Transaction{UserID: "u1", Amount: 400, Category: "DINING", Type: domain.TypeDebit, Timestamp: ts(t, "2025-06-15T02:00:00Z")}
	if got := Impulse(&tx, history, cfg); got != 1.0 {
		t.Errorf("Impulse = %v, want clamped to 1.0", got)
	}
}
