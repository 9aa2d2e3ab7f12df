package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

const (
	// variationSpan is the half-width of the uniform monthly noise applied
	// on top of category means.
	variationSpan = 0.05
	// confidenceDecayPerMonth erodes projection confidence each month out,
	// floored at minProjectionConfidence.
	confidenceDecayPerMonth = 0.03
	minProjectionConfidence = 0.5

	maxProjectionMonths = 24
)

// ProjectFutureSpending projects month-by-month spending from the model's
// category means, optionally adjusted by per-category percentage changes.
// The monthly noise is seeded by month index so repeated calls with the same
// inputs produce identical projections.
func (e *Engine) ProjectFutureSpending(
	model *behavior.Model,
	window []domain.Transaction,
	months int,
	changes map[categories.Category]float64,
	now time.Time,
) (*ProjectionResult, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if months < 1 || months > maxProjectionMonths {
		return nil, fmt.Errorf("ProjectFutureSpending: months must be between 1 and %d, got %d", maxProjectionMonths, months)
	}

	baseline, err := baselineFromWindow(window)
	if err != nil {
		return nil, err
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	cats := model.Categories()

	projections := make([]MonthlyProjection, 0, months)
	cumulative := 0.0

	for m := 1; m <= months; m++ {
		targetMonth := (int(now.Month())+m-1)%12 + 1
		targetYear := now.Year() + (int(now.Month())+m-1)/12
		label := fmt.Sprintf("%s %d", time.Month(targetMonth), targetYear)

		// One draw per month: every category shares the same natural
		// variation, keeping category breakdowns internally consistent.
		rng := rand.New(rand.NewSource(int64(m)))
		variation := -variationSpan + rng.Float64()*2*variationSpan

		breakdown := make(map[categories.Category]float64, len(cats))
		monthTotal := 0.0
		for _, cat := range cats {
			base := model.CategoryStats[cat].Mean
			adjusted := base * (1 + changes[cat]/100)
			projected := adjusted * (1 + variation)
			breakdown[cat] = round2(projected)
			monthTotal += projected
		}

		confidence := math.Max(minProjectionConfidence, 1.0-float64(m)*confidenceDecayPerMonth)
		cumulative += monthTotal - baseline

		projections = append(projections, MonthlyProjection{
			Month:             m,
			MonthLabel:        label,
			ProjectedSpending: round2(monthTotal),
			CategoryBreakdown: breakdown,
			CumulativeChange:  round2(cumulative),
			Confidence:        confidence,
		})
	}

	totalProjected := 0.0
	for _, p := range projections {
		totalProjected += p.ProjectedSpending
	}
	totalBaseline := baseline * float64(months)
	totalChange := totalProjected - totalBaseline
	annualImpact := totalChange / float64(months) * 12

	trend := "Stable baseline projection with natural variations"
	if len(changes) > 0 {
		avg := 0.0
		for _, v := range changes {
			avg += v
		}
		avg /= float64(len(changes))
		switch {
		case avg < -5:
			trend = "Decreasing trend with planned reductions"
		case avg > 5:
			trend = "Increasing trend with planned expansions"
		default:
			trend = "Stable spending with minor adjustments"
		}
	}

	var confidenceLevel string
	switch {
	case months <= 3:
		confidenceLevel = "High"
	case months <= 6:
		confidenceLevel = "Moderate"
	case months <= 12:
		confidenceLevel = "Low"
	default:
		confidenceLevel = "Very Low"
	}

	insights := projectionInsights(months, totalProjected, totalChange, changes, confidenceLevel)

	chart := ProjectionChart{
		Months:           make([]string, 0, months),
		Projected:        make([]float64, 0, months),
		Baseline:         make([]float64, 0, months),
		CumulativeChange: make([]float64, 0, months),
		Confidence:       make([]float64, 0, months),
	}
	for _, p := range projections {
		chart.Months = append(chart.Months, p.MonthLabel)
		chart.Projected = append(chart.Projected, p.ProjectedSpending)
		chart.Baseline = append(chart.Baseline, round2(baseline))
		chart.CumulativeChange = append(chart.CumulativeChange, p.CumulativeChange)
		chart.Confidence = append(chart.Confidence, p.Confidence)
	}

	return &ProjectionResult{
		BaselineMonthly:    round2(baseline),
		ProjectionMonths:   months,
		MonthlyProjections: projections,
		TotalProjected:     round2(totalProjected),
		TotalBaseline:      round2(totalBaseline),
		CumulativeChange:   round2(totalChange),
		AnnualImpact:       round2(annualImpact),
		TrendAnalysis:      trend,
		ConfidenceLevel:    confidenceLevel,
		KeyInsights:        insights,
		Chart:              chart,
	}, nil
}

func projectionInsights(
	months int,
	totalProjected, totalChange float64,
	changes map[categories.Category]float64,
	confidenceLevel string,
) []string {
	insights := []string{
		fmt.Sprintf("Total projected spending over %d months: $%.2f", months, totalProjected),
	}

	if totalChange != 0 {
		word := "increase"
		if totalChange < 0 {
			word = "savings"
		}
		insights = append(insights, fmt.Sprintf("Expected %s: $%.2f compared to baseline", word, math.Abs(totalChange)))
	}

	if len(changes) > 0 {
		var minCat, maxCat categories.Category
		minVal, maxVal := math.Inf(1), math.Inf(-1)
		for cat, v := range changes {
			if v < minVal || (v == minVal && cat < minCat) {
				minVal, minCat = v, cat
			}
			if v > maxVal || (v == maxVal && cat < maxCat) {
				maxVal, maxCat = v, cat
			}
		}
		if minVal < 0 {
			insights = append(insights, fmt.Sprintf("Largest planned reduction: %s (%.0f%%)", minCat, minVal))
		}
		if maxVal > 0 {
			insights = append(insights, fmt.Sprintf("Largest planned increase: %s (%.0f%%)", maxCat, maxVal))
		}
	}

	insights = append(insights, fmt.Sprintf("Confidence decreases over time - %s confidence for this time horizon", strings.ToLower(confidenceLevel)))
	return insights
}
