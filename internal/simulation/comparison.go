package simulation

import (
	"fmt"
	"sort"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

const (
	minComparisonScenarios = 2
	maxComparisonScenarios = 5

	// flexibleElasticityFloor marks a discretionary category as highly
	// flexible for scenario targeting.
	flexibleElasticityFloor = 0.5
)

// scenarioConfig is one generated scenario to run inside a comparison.
type scenarioConfig struct {
	id            string
	name          string
	description   string
	targetPercent float64
	categories    []categories.Category
	keyInsight    string
}

// CompareScenarios generates between 2 and 5 canned scenarios of the given
// type, runs each of them, and recommends the one with the best balance of
// feasibility, achieved change and difficulty.
func (e *Engine) CompareScenarios(
	model *behavior.Model,
	window []domain.Transaction,
	scenarioType ScenarioType,
	numScenarios int,
) (*ComparisonResult, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if scenarioType != Reduction && scenarioType != Increase {
		return nil, fmt.Errorf("CompareScenarios: invalid scenario type %q", scenarioType)
	}
	if numScenarios < minComparisonScenarios || numScenarios > maxComparisonScenarios {
		return nil, fmt.Errorf("CompareScenarios: num scenarios must be between %d and %d, got %d",
			minComparisonScenarios, maxComparisonScenarios, numScenarios)
	}

	baseline, err := baselineFromWindow(window)
	if err != nil {
		return nil, err
	}

	var configs []scenarioConfig
	if scenarioType == Reduction {
		configs = reductionConfigs(model, numScenarios)
	} else {
		configs = increaseConfigs(model, numScenarios)
	}

	summaries := make([]ScenarioSummary, 0, len(configs))
	for _, cfg := range configs {
		result, err := e.SimulateScenario(model, window, scenarioType, cfg.targetPercent, cfg.categories)
		if err != nil {
			return nil, fmt.Errorf("CompareScenarios: scenario %q: %w", cfg.id, err)
		}

		summaries = append(summaries, ScenarioSummary{
			ScenarioID:        cfg.id,
			Name:              cfg.name,
			Description:       cfg.description,
			ScenarioType:      scenarioType,
			TargetPercent:     result.TargetPercent,
			AchievablePercent: result.AchievablePercent,
			BaselineMonthly:   result.BaselineMonthly,
			ProjectedMonthly:  result.ProjectedMonthly,
			TotalChange:       result.TotalChange,
			AnnualImpact:      result.AnnualImpact,
			Feasibility:       result.Feasibility,
			DifficultyScore:   difficultyScore(result.CategoryBreakdown, result.AchievablePercent, result.TargetPercent),
			TopCategories:     topCategories(result.CategoryBreakdown, 3),
			KeyInsight:        cfg.keyInsight,
		})
	}

	chart := ComparisonChart{}
	for _, s := range summaries {
		chart.Scenarios = append(chart.Scenarios, s.ScenarioID)
		chart.TargetPercents = append(chart.TargetPercents, s.TargetPercent)
		chart.AchievablePercents = append(chart.AchievablePercents, s.AchievablePercent)
		chart.MonthlyChanges = append(chart.MonthlyChanges, s.TotalChange)
		chart.AnnualImpacts = append(chart.AnnualImpacts, s.AnnualImpact)
		chart.DifficultyScores = append(chart.DifficultyScores, s.DifficultyScore)
		chart.FeasibilityLevels = append(chart.FeasibilityLevels, s.Feasibility)
	}

	return &ComparisonResult{
		ScenarioType:          scenarioType,
		BaselineMonthly:       round2(baseline),
		Scenarios:             summaries,
		RecommendedScenarioID: recommendScenario(summaries, scenarioType),
		Chart:                 chart,
		Insights:              comparisonInsights(summaries, scenarioType, model.ImpulseScore),
	}, nil
}

// flexibleCategories returns the model's discretionary categories with
// elasticity above the flexibility floor, sorted for stable scenario output.
func flexibleCategories(model *behavior.Model) []categories.Category {
	var out []categories.Category
	for _, cat := range model.Categories() {
		if categories.IsDiscretionary(cat) && model.Elasticity[cat] > flexibleElasticityFloor {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func discretionaryCategories(model *behavior.Model) []categories.Category {
	var out []categories.Category
	for _, cat := range model.Categories() {
		if categories.IsDiscretionary(cat) {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func headOf(cats []categories.Category, n int) []categories.Category {
	if len(cats) > n {
		return cats[:n]
	}
	return cats
}

func reductionConfigs(model *behavior.Model, numScenarios int) []scenarioConfig {
	flexible := flexibleCategories(model)

	targeted := scenarioConfig{
		id:            "targeted",
		name:          "Targeted Reduction",
		description:   "Focus on your most flexible spending categories",
		targetPercent: 25,
		categories:    flexible,
		keyInsight:    "Maximize impact by focusing on high-flexibility categories",
	}

	configs := []scenarioConfig{
		{
			id:            "conservative",
			name:          "Conservative Reduction",
			description:   "Small, easily achievable cuts across flexible spending",
			targetPercent: 10,
			categories:    headOf(flexible, 3),
			keyInsight:    "Low effort, quick wins in discretionary spending",
		},
		{
			id:            "moderate",
			name:          "Moderate Reduction",
			description:   "Balanced approach targeting multiple categories",
			targetPercent: 20,
			keyInsight:    "Sustainable long-term savings with moderate lifestyle changes",
		},
		{
			id:            "aggressive",
			name:          "Aggressive Reduction",
			description:   "Maximum savings requiring significant lifestyle changes",
			targetPercent: 35,
			keyInsight:    "Substantial savings but requires commitment and planning",
		},
	}

	switch numScenarios {
	case 2:
		return []scenarioConfig{configs[0], configs[2]}
	case 4:
		return insertAt(configs, 1, targeted)
	case 5:
		minimal := scenarioConfig{
			id:            "minimal",
			name:          "Minimal Reduction",
			description:   "Smallest possible cuts for those starting their journey",
			targetPercent: 5,
			categories:    headOf(flexible, 2),
			keyInsight:    "Perfect starting point with minimal disruption",
		}
		configs = insertAt(configs, 1, minimal)
		return insertAt(configs, 3, targeted)
	default:
		return configs
	}
}

func increaseConfigs(model *behavior.Model, numScenarios int) []scenarioConfig {
	discretionary := discretionaryCategories(model)

	targetedLuxury := scenarioConfig{
		id:            "targeted_luxury",
		name:          "Targeted Luxury",
		description:   "Focus increase on entertainment and dining",
		targetPercent: 30,
		categories:    discretionary,
		keyInsight:    "Splurge on experiences while keeping essentials stable",
	}

	configs := []scenarioConfig{
		{
			id:            "modest",
			name:          "Modest Increase",
			description:   "Small increase in lifestyle spending",
			targetPercent: 10,
			categories:    headOf(discretionary, 2),
			keyInsight:    "Slight improvement in quality of life with minimal financial impact",
		},
		{
			id:            "comfortable",
			name:          "Comfortable Increase",
			description:   "Noticeable lifestyle upgrade",
			targetPercent: 20,
			keyInsight:    "Balanced increase across spending for improved lifestyle",
		},
		{
			id:            "significant",
			name:          "Significant Increase",
			description:   "Major lifestyle enhancement",
			targetPercent: 35,
			keyInsight:    "Substantial increase requiring higher income or savings adjustment",
		},
	}

	switch numScenarios {
	case 2:
		return []scenarioConfig{configs[0], configs[2]}
	case 4:
		return insertAt(configs, 2, targetedLuxury)
	case 5:
		minimal := scenarioConfig{
			id:            "minimal",
			name:          "Minimal Increase",
			description:   "Tiny boost to discretionary spending",
			targetPercent: 5,
			categories:    headOf(discretionary, 1),
			keyInsight:    "Test waters with small lifestyle improvement",
		}
		configs = insertAt(configs, 1, minimal)
		return insertAt(configs, 3, targetedLuxury)
	default:
		return configs
	}
}

func insertAt(configs []scenarioConfig, i int, cfg scenarioConfig) []scenarioConfig {
	out := make([]scenarioConfig, 0, len(configs)+1)
	out = append(out, configs[:i]...)
	out = append(out, cfg)
	out = append(out, configs[i:]...)
	return out
}

// difficultyScore combines achievement gap, per-category difficulty and
// inverse confidence into a 0 (easy) to 1 (very hard) score.
func difficultyScore(breakdown map[categories.Category]CategoryAnalysis, achievablePct, targetPct float64) float64 {
	if len(breakdown) == 0 {
		return 0.5
	}

	achievementRatio := 1.0
	if targetPct > 0 {
		achievementRatio = achievablePct / targetPct
	}
	gapPenalty := 1.0 - achievementRatio

	difficultyWeight := map[string]float64{
		DifficultyEasy:        0.2,
		DifficultyModerate:    0.5,
		DifficultyChallenging: 0.8,
	}
	avgDifficulty, avgConfidence := 0.0, 0.0
	for _, a := range breakdown {
		avgDifficulty += difficultyWeight[a.Difficulty]
		avgConfidence += a.Confidence
	}
	avgDifficulty /= float64(len(breakdown))
	avgConfidence /= float64(len(breakdown))

	score := gapPenalty*0.4 + avgDifficulty*0.4 + (1-avgConfidence)*0.2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// topCategories picks the n categories with the largest monthly change.
func topCategories(breakdown map[categories.Category]CategoryAnalysis, n int) []categories.Category {
	type entry struct {
		cat    categories.Category
		change float64
	}
	ranked := make([]entry, 0, len(breakdown))
	for cat, a := range breakdown {
		ranked = append(ranked, entry{cat, a.MonthlyChange})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].change != ranked[j].change {
			return ranked[i].change > ranked[j].change
		}
		return ranked[i].cat < ranked[j].cat
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]categories.Category, len(ranked))
	for i, r := range ranked {
		out[i] = r.cat
	}
	return out
}

// recommendScenario scores each scenario on feasibility, achievement ratio,
// difficulty and a sweet-spot bonus, returning the highest scorer. Ties keep
// the earliest scenario in the ladder.
func recommendScenario(scenarios []ScenarioSummary, scenarioType ScenarioType) string {
	feasibilityScore := map[string]float64{
		FeasibilityHighlyAchievable: 1.0,
		FeasibilityAchievable:       0.8,
		FeasibilityChallenging:      0.5,
		FeasibilityUnrealistic:      0.2,
	}

	bestID, bestScore := "", -1.0
	for _, s := range scenarios {
		score := feasibilityScore[s.Feasibility]
		if s.TargetPercent > 0 {
			score += s.AchievablePercent / s.TargetPercent * 0.3
		}
		score -= s.DifficultyScore * 0.2

		if scenarioType == Reduction {
			if s.AchievablePercent >= 15 && s.AchievablePercent <= 25 {
				score += 0.2
			}
		} else if s.AchievablePercent >= 10 && s.AchievablePercent <= 20 {
			score += 0.2
		}

		if score > bestScore {
			bestID, bestScore = s.ScenarioID, score
		}
	}
	return bestID
}

func comparisonInsights(scenarios []ScenarioSummary, scenarioType ScenarioType, impulseScore float64) []string {
	var insights []string

	avgAchievement := 0.0
	for _, s := range scenarios {
		avgAchievement += s.AchievablePercent
	}
	avgAchievement /= float64(len(scenarios))

	if scenarioType == Reduction {
		if avgAchievement >= 20 {
			insights = append(insights, fmt.Sprintf("You have strong potential for savings with an average achievable reduction of %.1f%%", avgAchievement))
		} else {
			insights = append(insights, fmt.Sprintf("Your spending is relatively efficient with moderate reduction potential of %.1f%%", avgAchievement))
		}
	} else {
		insights = append(insights, fmt.Sprintf("You can comfortably increase spending by an average of %.1f%% across scenarios", avgAchievement))
	}

	easiest := scenarios[0]
	maxImpact := scenarios[0]
	for _, s := range scenarios[1:] {
		if s.DifficultyScore < easiest.DifficultyScore {
			easiest = s
		}
		if s.AnnualImpact > maxImpact.AnnualImpact {
			maxImpact = s
		}
	}
	insights = append(insights, fmt.Sprintf("Easiest path: %s (difficulty: %.0f%%)", easiest.Name, easiest.DifficultyScore*100))

	if scenarioType == Reduction {
		insights = append(insights, fmt.Sprintf("Maximum annual savings potential: $%.0f with %s", maxImpact.AnnualImpact, maxImpact.Name))
	} else {
		insights = append(insights, fmt.Sprintf("Maximum annual spending increase: $%.0f with %s", maxImpact.AnnualImpact, maxImpact.Name))
	}

	if impulseScore > recommendationImpulseThreshold && scenarioType == Reduction {
		insights = append(insights, "Your impulse score suggests significant savings opportunity through better spending habits")
	}

	counts := map[categories.Category]int{}
	for _, s := range scenarios {
		for _, cat := range s.TopCategories {
			counts[cat]++
		}
	}
	if len(counts) > 0 {
		var mostCommon categories.Category
		best := 0
		keys := make([]categories.Category, 0, len(counts))
		for cat := range counts {
			keys = append(keys, cat)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, cat := range keys {
			if counts[cat] > best {
				mostCommon, best = cat, counts[cat]
			}
		}
		action := "increase"
		if scenarioType == Reduction {
			action = "reduce"
		}
		insights = append(insights, fmt.Sprintf("%s appears in %d scenarios as a key area to %s", mostCommon, best, action))
	}

	return insights
}
