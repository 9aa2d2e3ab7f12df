package behavior

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/categorizer"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/stats"
)

// stubCategorizer returns a fixed result or error and records invocations.
type stubCategorizer struct {
	result categorizer.Result
	err    error
	calls  int
}

func (s *stubCategorizer) Categorize(ctx context.Context, merchant string, amount float64, rawText string, txType domain.TransactionType) (categorizer.Result, error) {
	s.calls++
	if s.err != nil {
		return categorizer.Result{}, s.err
	}
	return s.result, nil
}

func newTestEngine(cat categorizer.Categorizer) *Engine {
	return NewEngine(cat, stats.DefaultConfig(), time.Second, zerolog.Nop())
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return &parsed
}

func debit(user string, amount float64, category string, when *time.Time) *domain.Transaction {
	return &domain.Transaction{
		UserID:    user,
		Amount:    amount,
		Category:  category,
		Type:      domain.TypeDebit,
		Timestamp: when,
	}
}

func TestUpdateModelCreatesLazily(t *testing.T) {
	e := newTestEngine(nil)

	got, err := e.UpdateModel(context.Background(), nil, debit("u1", 50, "GROCERIES", ts(t, "2025-06-10T12:00:00Z")))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", got.UserID)
	}
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", got.SchemaVersion, SchemaVersion)
	}
	if got.TransactionCount != 1 {
		t.Errorf("TransactionCount = %d, want 1", got.TransactionCount)
	}
	cs := got.CategoryStats[categories.Groceries]
	if cs.Count != 1 || cs.Mean != 50 {
		t.Errorf("CategoryStats = %+v, want count 1 mean 50", cs)
	}
}

func TestUpdateModelIgnoresCredits(t *testing.T) {
	e := newTestEngine(nil)
	model := NewModel("u1")

	tx := &domain.Transaction{UserID: "u1", Amount: 100, Type: domain.TypeCredit}
	got, err := e.UpdateModel(context.Background(), model, tx)
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if got.TransactionCount != 0 {
		t.Errorf("TransactionCount = %d, want 0", got.TransactionCount)
	}
	if len(got.CategoryStats) != 0 {
		t.Errorf("CategoryStats = %v, want empty", got.CategoryStats)
	}
}

func TestUpdateModelRejectsInvalid(t *testing.T) {
	e := newTestEngine(nil)
	model := NewModel("u1")

	tests := []struct {
		name string
		tx   *domain.Transaction
	}{
		{"missing user", &domain.Transaction{Amount: 10, Type: domain.TypeDebit}},
		{"zero amount", &domain.Transaction{UserID: "u1", Amount: 0, Type: domain.TypeDebit}},
		{"negative amount", &domain.Transaction{UserID: "u1", Amount: -5, Type: domain.TypeDebit}},
		{"bad type", &domain.Transaction{UserID: "u1", Amount: 10, Type: "transfer"}},
		{"sub-cent precision", &domain.Transaction{UserID: "u1", Amount: 10.001, Type: domain.TypeDebit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.UpdateModel(context.Background(), model, tt.tx)
			if err == nil {
				t.Fatal("expected error")
			}
			if got != model {
				t.Error("expected original model back on validation failure")
			}
		})
	}
}

func TestUpdateModelCategorizesWhenEmpty(t *testing.T) {
	stub := &stubCategorizer{result: categorizer.Result{Category: categories.Dining, Confidence: 0.9}}
	e := newTestEngine(stub)

	tx := debit("u1", 30, "", ts(t, "2025-06-10T12:00:00Z"))
	got, err := e.UpdateModel(context.Background(), nil, tx)
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("categorizer calls = %d, want 1", stub.calls)
	}
	if tx.Category != "DINING" {
		t.Errorf("tx.Category = %q, want DINING", tx.Category)
	}
	if _, ok := got.CategoryStats[categories.Dining]; !ok {
		t.Error("expected DINING stats in model")
	}
}

func TestUpdateModelSkipsCategorizerWhenSet(t *testing.T) {
	stub := &stubCategorizer{result: categorizer.Result{Category: categories.Dining}}
	e := newTestEngine(stub)

	_, err := e.UpdateModel(context.Background(), nil, debit("u1", 30, "GROCERIES", nil))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("categorizer calls = %d, want 0", stub.calls)
	}
}

func TestUpdateModelCategorizerFailureFallsBack(t *testing.T) {
	stub := &stubCategorizer{err: errors.New("model unavailable")}
	e := newTestEngine(stub)

	got, err := e.UpdateModel(context.Background(), nil, debit("u1", 30, "", nil))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if got.TransactionCount != 1 {
		t.Errorf("TransactionCount = %d, want 1 (update must proceed)", got.TransactionCount)
	}
	if _, ok := got.CategoryStats[categories.Other]; !ok {
		t.Error("expected fallback to OTHER stats")
	}
}

func TestUpdateModelDecaysOnlyTouchedCategory(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	when := ts(t, "2025-06-10T12:00:00Z")

	m1, err := e.UpdateModel(ctx, nil, debit("u1", 50, "GROCERIES", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	m2, err := e.UpdateModel(ctx, m1, debit("u1", 40, "DINING", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	m3, err := e.UpdateModel(ctx, m2, debit("u1", 50, "GROCERIES", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}

	// Untouched category is not decayed.
	if got, want := m3.CategoryStats[categories.Dining].Mean, 40.0; got != want {
		t.Errorf("DINING mean = %v, want %v (untouched)", got, want)
	}

	// Touched category: prior mean 50 decays to 49, then folds in 50.
	wantMean := 49.0 + (50.0-49.0)/2
	if got := m3.CategoryStats[categories.Groceries].Mean; math.Abs(got-wantMean) > 1e-9 {
		t.Errorf("GROCERIES mean = %v, want %v", got, wantMean)
	}
}

func TestUpdateModelImpulseEMA(t *testing.T) {
	e := newTestEngine(nil)

	// SHOPPING with no history: flag = 0.3 * 1.5 = 0.45 at midday on a
	// weekday, EMA from zero gives 0.045.
	got, err := e.UpdateModel(context.Background(), nil, debit("u1", 30, "SHOPPING", ts(t, "2025-06-10T12:00:00Z")))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if want := 0.1 * 0.45; math.Abs(got.ImpulseScore-want) > 1e-9 {
		t.Errorf("ImpulseScore = %v, want %v", got.ImpulseScore, want)
	}
}

func TestUpdateModelBaselineRatchetsDownward(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	when := ts(t, "2025-06-10T12:00:00Z")

	m1, err := e.UpdateModel(ctx, nil, debit("u1", 50, "GROCERIES", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	b1 := m1.Baselines[categories.Groceries]

	m2, err := e.UpdateModel(ctx, m1, debit("u1", 50, "GROCERIES", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	b2 := m2.Baselines[categories.Groceries]

	if b2 > b1 {
		t.Errorf("baseline rose from %v to %v, want monotone non-increasing", b1, b2)
	}
	if b2 < 0 {
		t.Errorf("baseline = %v, want >= 0", b2)
	}
}

func TestUpdateModelHabits(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	// Monday 09:00 and Sunday 23:00.
	m1, err := e.UpdateModel(ctx, nil, debit("u1", 10, "GROCERIES", ts(t, "2025-06-09T09:00:00Z")))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	m2, err := e.UpdateModel(ctx, m1, debit("u1", 10, "GROCERIES", ts(t, "2025-06-15T23:00:00Z")))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}

	if m2.Habits.Hourly[9] != 1 || m2.Habits.Hourly[23] != 1 {
		t.Errorf("Hourly = %v, want one count each at 9 and 23", m2.Habits.Hourly)
	}
	if m2.Habits.Weekly[0] != 1 {
		t.Errorf("Weekly[0] = %d, want 1 (Monday)", m2.Habits.Weekly[0])
	}
	if m2.Habits.Weekly[6] != 1 {
		t.Errorf("Weekly[6] = %d, want 1 (Sunday)", m2.Habits.Weekly[6])
	}
}

func TestUpdateModelNoTimestampSkipsHabits(t *testing.T) {
	e := newTestEngine(nil)

	got, err := e.UpdateModel(context.Background(), nil, debit("u1", 10, "GROCERIES", nil))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	for i, n := range got.Habits.Hourly {
		if n != 0 {
			t.Errorf("Hourly[%d] = %d, want 0", i, n)
		}
	}
	for i, n := range got.Habits.Weekly {
		if n != 0 {
			t.Errorf("Weekly[%d] = %d, want 0", i, n)
		}
	}
}

func TestUpdateModelDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	when := ts(t, "2025-06-10T12:00:00Z")

	m1, err := e.UpdateModel(ctx, nil, debit("u1", 50, "GROCERIES", when))
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	snapshot := m1.Clone()

	if _, err := e.UpdateModel(ctx, m1, debit("u1", 75, "GROCERIES", when)); err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}

	if m1.TransactionCount != snapshot.TransactionCount {
		t.Error("input model transaction count changed")
	}
	if m1.CategoryStats[categories.Groceries] != snapshot.CategoryStats[categories.Groceries] {
		t.Error("input model category stats changed")
	}
	if m1.ImpulseScore != snapshot.ImpulseScore {
		t.Error("input model impulse score changed")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := NewModel("u1")
	m.CategoryStats[categories.Dining] = stats.CategoryStats{Count: 1, Mean: 40}
	m.Elasticity[categories.Dining] = 0.7
	m.Baselines[categories.Dining] = 10

	c := m.Clone()
	c.CategoryStats[categories.Dining] = stats.CategoryStats{Count: 9}
	c.Elasticity[categories.Dining] = 0.1
	c.Baselines[categories.Dining] = 99

	if m.CategoryStats[categories.Dining].Count != 1 {
		t.Error("CategoryStats shared between clone and original")
	}
	if m.Elasticity[categories.Dining] != 0.7 {
		t.Error("Elasticity shared between clone and original")
	}
	if m.Baselines[categories.Dining] != 10 {
		t.Error("Baselines shared between clone and original")
	}
}
