// Package simulation answers what-if questions against a behavior model
// snapshot: single scenarios, reallocations, future projections and
// multi-scenario comparisons. Everything here is a pure read; the model is
// never mutated and operations can run with unlimited parallelism.
package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spendlens/spendlens/internal/categories"
)

// ScenarioType selects the direction of a simulated spending change.
type ScenarioType string

const (
	Reduction ScenarioType = "reduction"
	Increase  ScenarioType = "increase"
)

// Feasibility tiers for a whole scenario.
const (
	FeasibilityHighlyAchievable = "highly_achievable"
	FeasibilityAchievable       = "achievable"
	FeasibilityChallenging      = "challenging"
	FeasibilityUnrealistic      = "unrealistic"
)

// Difficulty buckets for a single category within a scenario.
const (
	DifficultyEasy        = "easy"
	DifficultyModerate    = "moderate"
	DifficultyChallenging = "challenging"
)

// ErrNoModel is returned when a simulation is requested for a user without
// a behavior model.
var ErrNoModel = errors.New("no behavior model for user")

// ErrEmptyWindow is returned when the supplied transaction window has no
// debit transactions to derive a baseline from.
var ErrEmptyWindow = errors.New("no transactions in the analysis window")

// UnknownCategoriesError reports requested categories absent from the model.
type UnknownCategoriesError struct {
	Categories []categories.Category
}

func (e *UnknownCategoriesError) Error() string {
	labels := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		labels[i] = string(c)
	}
	return fmt.Sprintf("none of the requested categories found in spending history: %s", strings.Join(labels, ", "))
}

// UnbalancedError reports a reallocation whose deltas do not net to zero.
type UnbalancedError struct {
	Net float64
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("reallocation deltas must net to zero, got %.2f", e.Net)
}

// CategoryAnalysis is the per-category breakdown of a scenario.
type CategoryAnalysis struct {
	CurrentMonthly      float64 `json:"current_monthly"`
	MaxChangePct        float64 `json:"max_change_pct"`
	AchievableChangePct float64 `json:"achievable_change_pct"`
	MonthlyChange       float64 `json:"monthly_change"`
	Confidence          float64 `json:"confidence"`
	Difficulty          string  `json:"difficulty"`
}

// Recommendation is one actionable suggestion attached to a scenario.
type Recommendation struct {
	Category        string  `json:"category"`
	Action          string  `json:"action"`
	PotentialImpact float64 `json:"potential_impact"`
	Difficulty      string  `json:"difficulty"`
	Type            string  `json:"type"`
}

// ScenarioResult is the outcome of a single spending scenario.
type ScenarioResult struct {
	ScenarioType       ScenarioType                                   `json:"scenario_type"`
	TargetPercent      float64                                        `json:"target_percent"`
	AchievablePercent  float64                                        `json:"achievable_percent"`
	BaselineMonthly    float64                                        `json:"baseline_monthly"`
	ProjectedMonthly   float64                                        `json:"projected_monthly"`
	TotalChange        float64                                        `json:"total_change"`
	AnnualImpact       float64                                        `json:"annual_impact"`
	Feasibility        string                                         `json:"feasibility"`
	CategoryBreakdown  map[categories.Category]CategoryAnalysis       `json:"category_breakdown"`
	Recommendations    []Recommendation                               `json:"recommendations"`
	TargetedCategories []categories.Category                          `json:"targeted_categories,omitempty"`
}

// CategoryReallocation describes the effect and feasibility of one delta.
type CategoryReallocation struct {
	Category       categories.Category `json:"category"`
	CurrentMonthly float64             `json:"current_monthly"`
	ChangeAmount   float64             `json:"change_amount"`
	NewMonthly     float64             `json:"new_monthly"`
	ChangePercent  float64             `json:"change_percent"`
	Feasibility    string              `json:"feasibility"`
	ImpactNote     string              `json:"impact_note"`
}

// ReallocationVisual is chart-ready data for the reallocation response.
type ReallocationVisual struct {
	Categories  []categories.Category `json:"categories"`
	Current     []float64             `json:"current"`
	Changes     []float64             `json:"changes"`
	New         []float64             `json:"new"`
	Feasibility []string              `json:"feasibility"`
}

// ReallocationResult is the outcome of a net-neutral budget reallocation.
// ProjectedMonthly always equals BaselineMonthly: reallocation is defined
// as net-neutral, and the net-zero precondition is validated up front.
type ReallocationResult struct {
	BaselineMonthly       float64                `json:"baseline_monthly"`
	ProjectedMonthly      float64                `json:"projected_monthly"`
	IsBalanced            bool                   `json:"is_balanced"`
	Reallocations         []CategoryReallocation `json:"reallocations"`
	FeasibilityAssessment string                 `json:"feasibility_assessment"`
	Warnings              []string               `json:"warnings"`
	Recommendations       []string               `json:"recommendations"`
	VisualData            ReallocationVisual     `json:"visual_data"`
}

// MonthlyProjection is one future month of a spending projection.
type MonthlyProjection struct {
	Month             int                             `json:"month"`
	MonthLabel        string                          `json:"month_label"`
	ProjectedSpending float64                         `json:"projected_spending"`
	CategoryBreakdown map[categories.Category]float64 `json:"category_breakdown"`
	CumulativeChange  float64                         `json:"cumulative_change"`
	Confidence        float64                         `json:"confidence"`
}

// ProjectionChart is chart-ready data for the projection response.
type ProjectionChart struct {
	Months           []string  `json:"months"`
	Projected        []float64 `json:"projected"`
	Baseline         []float64 `json:"baseline"`
	CumulativeChange []float64 `json:"cumulative_change"`
	Confidence       []float64 `json:"confidence"`
}

// ProjectionResult is the outcome of a multi-month spending projection.
type ProjectionResult struct {
	BaselineMonthly    float64             `json:"baseline_monthly"`
	ProjectionMonths   int                 `json:"projection_months"`
	MonthlyProjections []MonthlyProjection `json:"monthly_projections"`
	TotalProjected     float64             `json:"total_projected"`
	TotalBaseline      float64             `json:"total_baseline"`
	CumulativeChange   float64             `json:"cumulative_change"`
	AnnualImpact       float64             `json:"annual_impact"`
	TrendAnalysis      string              `json:"trend_analysis"`
	ConfidenceLevel    string              `json:"confidence_level"`
	KeyInsights        []string            `json:"key_insights"`
	Chart              ProjectionChart     `json:"projection_chart"`
}

// ScenarioSummary is one scenario inside a comparison.
type ScenarioSummary struct {
	ScenarioID        string                `json:"scenario_id"`
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	ScenarioType      ScenarioType          `json:"scenario_type"`
	TargetPercent     float64               `json:"target_percent"`
	AchievablePercent float64               `json:"achievable_percent"`
	BaselineMonthly   float64               `json:"baseline_monthly"`
	ProjectedMonthly  float64               `json:"projected_monthly"`
	TotalChange       float64               `json:"total_change"`
	AnnualImpact      float64               `json:"annual_impact"`
	Feasibility       string                `json:"feasibility"`
	DifficultyScore   float64               `json:"difficulty_score"`
	TopCategories     []categories.Category `json:"top_categories"`
	KeyInsight        string                `json:"key_insight"`
}

// ComparisonChart is chart-ready data for the comparison response.
type ComparisonChart struct {
	Scenarios          []string  `json:"scenarios"`
	TargetPercents     []float64 `json:"target_percents"`
	AchievablePercents []float64 `json:"achievable_percents"`
	MonthlyChanges     []float64 `json:"monthly_changes"`
	AnnualImpacts      []float64 `json:"annual_impacts"`
	DifficultyScores   []float64 `json:"difficulty_scores"`
	FeasibilityLevels  []string  `json:"feasibility_levels"`
}

// ComparisonResult is the outcome of a multi-scenario comparison.
type ComparisonResult struct {
	ScenarioType          ScenarioType      `json:"scenario_type"`
	BaselineMonthly       float64           `json:"baseline_monthly"`
	Scenarios             []ScenarioSummary `json:"scenarios"`
	RecommendedScenarioID string            `json:"recommended_scenario_id"`
	Chart                 ComparisonChart   `json:"comparison_chart"`
	Insights              []string          `json:"insights"`
}
