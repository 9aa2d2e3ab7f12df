package simulation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// Caps applied when simulating spending changes.
const (
	// impulseBoostScale converts the model's impulse score into extra
	// achievable reduction percentage points for discretionary categories.
	impulseBoostScale = 15.0
	// Essential categories have natural limits on upward flexibility.
	essentialIncreaseCap       = 50.0
	essentialIncreaseElastic   = 80.0
	discretionaryIncreaseCap   = 200.0
	discretionaryIncreaseScale = 150.0
	// defaultElasticity is assumed for categories with stats but no
	// elasticity entry (should not happen with a consistent model).
	defaultElasticity = 0.3
	// confidenceObservations is the observation count at which category
	// confidence saturates.
	confidenceObservations = 20.0
	// recommendationImpulseThreshold triggers the behavioral suggestion.
	recommendationImpulseThreshold = 0.6
)

// Engine computes simulations over a behavior model snapshot plus a window
// of recent debit transactions supplied by the caller. The baseline monthly
// figure always comes from the window, not from the model's running sums,
// so the analysis period stays configurable.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a simulation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// baselineFromWindow sums debit amounts in the window. Credits are skipped
// defensively even though callers are expected to pass debit-only windows.
func baselineFromWindow(window []domain.Transaction) (float64, error) {
	total := 0.0
	seen := false
	for i := range window {
		if window[i].Type != domain.TypeDebit {
			continue
		}
		total += window[i].Amount
		seen = true
	}
	if !seen {
		return 0, ErrEmptyWindow
	}
	return total, nil
}

// SimulateScenario evaluates a single reduction or increase scenario. When
// targetCategories is empty, every category in the model is analyzed; when
// it is not, at least one requested category must exist in the model.
func (e *Engine) SimulateScenario(
	model *behavior.Model,
	window []domain.Transaction,
	scenarioType ScenarioType,
	targetPercent float64,
	targetCategories []categories.Category,
) (*ScenarioResult, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if scenarioType != Reduction && scenarioType != Increase {
		return nil, fmt.Errorf("SimulateScenario: invalid scenario type %q", scenarioType)
	}
	if targetPercent <= 0 {
		return nil, fmt.Errorf("SimulateScenario: target percent must be positive, got %v", targetPercent)
	}

	baseline, err := baselineFromWindow(window)
	if err != nil {
		return nil, err
	}

	analyzed := e.resolveCategories(model, targetCategories)
	if len(analyzed) == 0 {
		return nil, &UnknownCategoriesError{Categories: targetCategories}
	}

	breakdown := make(map[categories.Category]CategoryAnalysis, len(analyzed))
	totalChange := 0.0

	for _, cat := range analyzed {
		cs := model.CategoryStats[cat]
		elasticity, ok := model.Elasticity[cat]
		if !ok {
			elasticity = defaultElasticity
		}

		var maxPct, achievablePct float64
		switch scenarioType {
		case Reduction:
			maxPct = elasticity * 100
			achievablePct = math.Min(targetPercent, maxPct)
			// Impulsive spenders have extra headroom in discretionary
			// categories, still bounded by elasticity.
			if categories.IsDiscretionary(cat) {
				boost := model.ImpulseScore * impulseBoostScale
				achievablePct = math.Min(achievablePct+boost, maxPct)
			}
		case Increase:
			if categories.IsEssential(cat) {
				maxPct = math.Min(essentialIncreaseCap, elasticity*essentialIncreaseElastic)
			} else {
				maxPct = math.Min(discretionaryIncreaseCap, elasticity*discretionaryIncreaseScale)
			}
			achievablePct = math.Min(targetPercent, maxPct)
		}

		monthlyChange := cs.Mean * achievablePct / 100
		totalChange += monthlyChange

		confidence := math.Min(1.0,
			(float64(cs.Count)/confidenceObservations)*(1-cs.Variance/(cs.Mean*cs.Mean+1)))

		difficulty := DifficultyChallenging
		switch {
		case achievablePct >= targetPercent*0.9:
			difficulty = DifficultyEasy
		case achievablePct >= targetPercent*0.6:
			difficulty = DifficultyModerate
		}

		breakdown[cat] = CategoryAnalysis{
			CurrentMonthly:      round2(cs.Mean),
			MaxChangePct:        round1(maxPct),
			AchievableChangePct: round1(achievablePct),
			MonthlyChange:       round2(monthlyChange),
			Confidence:          round2(confidence),
			Difficulty:          difficulty,
		}
	}

	projected := baseline + totalChange
	if scenarioType == Reduction {
		projected = baseline - totalChange
	}

	actualPct := 0.0
	if baseline > 0 {
		actualPct = totalChange / baseline * 100
	}

	feasibility := FeasibilityUnrealistic
	switch {
	case actualPct >= targetPercent*0.9:
		feasibility = FeasibilityHighlyAchievable
	case actualPct >= targetPercent*0.7:
		feasibility = FeasibilityAchievable
	case actualPct >= targetPercent*0.5:
		feasibility = FeasibilityChallenging
	}

	return &ScenarioResult{
		ScenarioType:       scenarioType,
		TargetPercent:      targetPercent,
		AchievablePercent:  round1(actualPct),
		BaselineMonthly:    round2(baseline),
		ProjectedMonthly:   round2(projected),
		TotalChange:        round2(totalChange),
		AnnualImpact:       round2(totalChange * 12),
		Feasibility:        feasibility,
		CategoryBreakdown:  breakdown,
		Recommendations:    buildRecommendations(breakdown, model.ImpulseScore, scenarioType, targetCategories),
		TargetedCategories: targetCategories,
	}, nil
}

// resolveCategories returns the categories to analyze, sorted for stable
// iteration: the requested ones that exist in the model, or every modeled
// category when no explicit list was given.
func (e *Engine) resolveCategories(model *behavior.Model, requested []categories.Category) []categories.Category {
	var out []categories.Category
	if len(requested) > 0 {
		for _, c := range requested {
			if _, ok := model.CategoryStats[c]; ok {
				out = append(out, c)
			}
		}
	} else {
		out = model.Categories()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// buildRecommendations surfaces the top categories by achievable change
// with a materially sized dollar impact, plus a behavioral note for
// impulsive spenders.
func buildRecommendations(
	breakdown map[categories.Category]CategoryAnalysis,
	impulseScore float64,
	scenarioType ScenarioType,
	targetCategories []categories.Category,
) []Recommendation {
	type entry struct {
		cat categories.Category
		a   CategoryAnalysis
	}
	ranked := make([]entry, 0, len(breakdown))
	for c, a := range breakdown {
		ranked = append(ranked, entry{c, a})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].a.AchievableChangePct != ranked[j].a.AchievableChangePct {
			return ranked[i].a.AchievableChangePct > ranked[j].a.AchievableChangePct
		}
		return ranked[i].cat < ranked[j].cat
	})

	recs := make([]Recommendation, 0, 4)

	if scenarioType == Reduction {
		for _, e := range ranked {
			if len(recs) == 3 {
				break
			}
			if e.a.MonthlyChange <= 100 {
				continue
			}
			recs = append(recs, Recommendation{
				Category:        string(e.cat),
				Action:          fmt.Sprintf("Reduce %s spending by %.1f%%", lower(e.cat), e.a.AchievableChangePct),
				PotentialImpact: e.a.MonthlyChange,
				Difficulty:      e.a.Difficulty,
				Type:            "reduction",
			})
		}
		if impulseScore > recommendationImpulseThreshold {
			recs = append(recs, Recommendation{
				Category:        "IMPULSE_CONTROL",
				Action:          "Focus on reducing late-night and weekend purchases",
				PotentialImpact: round2(impulseScore * 500),
				Difficulty:      DifficultyModerate,
				Type:            "behavioral",
			})
		}
		return recs
	}

	for _, e := range ranked {
		if len(recs) == 3 {
			break
		}
		if e.a.MonthlyChange <= 50 {
			continue
		}
		action := fmt.Sprintf("Increasing %s by %.1f%% is feasible but monitor carefully", lower(e.cat), e.a.AchievableChangePct)
		if categories.IsDiscretionary(e.cat) {
			action = fmt.Sprintf("You could comfortably increase %s spending by %.1f%%", lower(e.cat), e.a.AchievableChangePct)
		}
		recs = append(recs, Recommendation{
			Category:        string(e.cat),
			Action:          action,
			PotentialImpact: e.a.MonthlyChange,
			Difficulty:      e.a.Difficulty,
			Type:            "increase",
		})
	}
	if len(targetCategories) > 0 {
		labels := make([]string, len(targetCategories))
		for i, c := range targetCategories {
			labels[i] = string(c)
		}
		recs = append(recs, Recommendation{
			Category:   "BUDGETING",
			Action:     fmt.Sprintf("Set up budget tracking for %s to monitor increased spending", strings.Join(labels, ", ")),
			Difficulty: DifficultyEasy,
			Type:       "monitoring",
		})
	}
	return recs
}

func lower(c categories.Category) string {
	return strings.ToLower(string(c))
}

// round2 rounds to cents; monetary amounts in responses carry at most two
// decimal places.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// round1 rounds percentages to one decimal place.
func round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
