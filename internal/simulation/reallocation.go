package simulation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// netZeroTolerance is the absolute tolerance, in currency units, within
// which reallocation deltas are considered balanced.
const netZeroTolerance = 0.01

// Feasibility tiers for individual reallocations.
const (
	ReallocComfortable = "comfortable"
	ReallocModerate    = "moderate"
	ReallocDifficult   = "difficult"
	ReallocUnrealistic = "unrealistic"
)

var reallocOrdinal = map[string]float64{
	ReallocComfortable: 0,
	ReallocModerate:    1,
	ReallocDifficult:   2,
	ReallocUnrealistic: 3,
}

// SimulateReallocation evaluates moving budget between categories. Deltas
// must net to zero within a cent; SAVINGS and OTHER are always valid
// targets even when absent from the model. ProjectedMonthly always equals
// BaselineMonthly since a balanced reallocation cannot move the total.
func (e *Engine) SimulateReallocation(
	model *behavior.Model,
	window []domain.Transaction,
	deltas map[categories.Category]float64,
) (*ReallocationResult, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if len(deltas) == 0 {
		return nil, fmt.Errorf("SimulateReallocation: no reallocations supplied")
	}

	net := 0.0
	for _, change := range deltas {
		net += change
	}
	if math.Abs(net) > netZeroTolerance {
		return nil, &UnbalancedError{Net: net}
	}

	baseline, err := baselineFromWindow(window)
	if err != nil {
		return nil, err
	}

	var unknown []categories.Category
	for cat := range deltas {
		if _, ok := model.CategoryStats[cat]; !ok && cat != categories.Savings && cat != categories.Other {
			unknown = append(unknown, cat)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		return nil, &UnknownCategoriesError{Categories: unknown}
	}

	ordered := make([]categories.Category, 0, len(deltas))
	for cat := range deltas {
		ordered = append(ordered, cat)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	details := make([]CategoryReallocation, 0, len(deltas))
	var warnings []string

	for _, cat := range ordered {
		change := deltas[cat]

		// Money flowing into the savings/catch-all sinks is always fine.
		if (cat == categories.Savings || cat == categories.Other) && change > 0 {
			details = append(details, CategoryReallocation{
				Category:       cat,
				CurrentMonthly: 0,
				ChangeAmount:   round2(change),
				NewMonthly:     round2(change),
				ChangePercent:  100,
				Feasibility:    ReallocComfortable,
				ImpactNote:     fmt.Sprintf("Allocating $%.2f to %s", math.Abs(change), cat),
			})
			continue
		}

		current := model.CategoryStats[cat].Mean
		changePct := 0.0
		if current > 0 {
			changePct = change / current * 100
		}

		elasticity, ok := model.Elasticity[cat]
		if !ok {
			elasticity = defaultElasticity
		}

		var feasibility, impact string
		if change < 0 {
			maxReductionPct := elasticity * 100
			reductionPct := math.Abs(changePct)
			switch {
			case reductionPct <= maxReductionPct*0.5:
				feasibility, impact = ReallocComfortable, "Easily achievable reduction"
			case reductionPct <= maxReductionPct:
				feasibility, impact = ReallocModerate, "Achievable with some effort"
			case reductionPct <= maxReductionPct*1.5:
				feasibility, impact = ReallocDifficult, "Challenging - requires significant lifestyle changes"
				warnings = append(warnings, fmt.Sprintf("%s: Reduction of %.0f%% may be difficult (max comfortable: %.0f%%)", cat, reductionPct, maxReductionPct))
			default:
				feasibility, impact = ReallocUnrealistic, "Likely unrealistic given your spending patterns"
				warnings = append(warnings, fmt.Sprintf("%s: Reduction of %.0f%% exceeds recommended maximum", cat, reductionPct))
			}
		} else if categories.IsEssential(cat) {
			switch {
			case changePct <= 20:
				feasibility, impact = ReallocComfortable, "Reasonable increase for essential category"
			case changePct <= 40:
				feasibility, impact = ReallocModerate, "Noticeable increase - ensure it's necessary"
			default:
				feasibility, impact = ReallocDifficult, "Large increase for essential spending"
				warnings = append(warnings, fmt.Sprintf("%s: Increase of %.0f%% is substantial for an essential category", cat, changePct))
			}
		} else {
			switch {
			case changePct <= 50:
				feasibility, impact = ReallocComfortable, "Comfortable discretionary increase"
			case changePct <= 100:
				feasibility, impact = ReallocModerate, "Significant lifestyle upgrade"
			default:
				feasibility, impact = ReallocDifficult, "Major spending increase"
			}
		}

		details = append(details, CategoryReallocation{
			Category:       cat,
			CurrentMonthly: round2(current),
			ChangeAmount:   round2(change),
			NewMonthly:     round2(current + change),
			ChangePercent:  round1(changePct),
			Feasibility:    feasibility,
			ImpactNote:     impact,
		})
	}

	avgDifficulty := 0.0
	for _, d := range details {
		avgDifficulty += reallocOrdinal[d.Feasibility]
	}
	avgDifficulty /= float64(len(details))

	var overall string
	switch {
	case avgDifficulty <= 0.5:
		overall = "This reallocation is comfortable and achievable"
	case avgDifficulty <= 1.5:
		overall = "This reallocation is moderately challenging but achievable"
	case avgDifficulty <= 2.5:
		overall = "This reallocation will be difficult and requires strong commitment"
	default:
		overall = "This reallocation may be unrealistic - consider a more moderate approach"
	}

	visual := ReallocationVisual{}
	for _, d := range details {
		visual.Categories = append(visual.Categories, d.Category)
		visual.Current = append(visual.Current, d.CurrentMonthly)
		visual.Changes = append(visual.Changes, d.ChangeAmount)
		visual.New = append(visual.New, d.NewMonthly)
		visual.Feasibility = append(visual.Feasibility, d.Feasibility)
	}

	return &ReallocationResult{
		BaselineMonthly:       round2(baseline),
		ProjectedMonthly:      round2(baseline),
		IsBalanced:            true,
		Reallocations:         details,
		FeasibilityAssessment: overall,
		Warnings:              warnings,
		Recommendations:       reallocationRecommendations(details, model.ImpulseScore),
		VisualData:            visual,
	}, nil
}

func reallocationRecommendations(details []CategoryReallocation, impulseScore float64) []string {
	var recs []string

	var increases, decreases []CategoryReallocation
	for _, d := range details {
		if d.ChangeAmount > 0 {
			increases = append(increases, d)
		} else if d.ChangeAmount < 0 {
			decreases = append(decreases, d)
		}
	}

	if len(increases) > 0 && len(decreases) > 0 {
		moved := 0.0
		for _, d := range decreases {
			moved += math.Abs(d.ChangeAmount)
		}
		recs = append(recs, fmt.Sprintf("You're moving $%.2f from %d categories to %d categories", moved, len(decreases), len(increases)))
	}

	var difficult []string
	for _, d := range details {
		if d.Feasibility == ReallocDifficult || d.Feasibility == ReallocUnrealistic {
			difficult = append(difficult, string(d.Category))
		}
	}
	if len(difficult) > 0 {
		if len(difficult) > 2 {
			difficult = difficult[:2]
		}
		recs = append(recs, fmt.Sprintf("Consider adjusting %s reallocations for better success", strings.Join(difficult, ", ")))
	}

	if impulseScore > recommendationImpulseThreshold {
		recs = append(recs, "Your impulse score suggests focusing on discretionary spending reductions first")
	}
	return recs
}
