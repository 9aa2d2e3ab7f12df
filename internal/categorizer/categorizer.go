// Package categorizer assigns spending categories to transactions using a
// hybrid strategy: a fast rule-based keyword matcher first, then an LLM
// fallback for anything the rules miss. Results from the LLM are cached.
package categorizer

import (
	"context"
	"regexp"
	"strings"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// Result is a category label with the categorizer's confidence in it.
type Result struct {
	Category   categories.Category `json:"category"`
	Confidence float64             `json:"confidence"`
}

// Categorizer produces a category for a transaction. Implementations must
// honor ctx cancellation; callers bound every invocation with a timeout and
// treat any error as "fall back to OTHER".
type Categorizer interface {
	Categorize(ctx context.Context, merchant string, amount float64, rawText string, txType domain.TransactionType) (Result, error)
}

// ruleConfidence is reported for keyword matches; keyword hits are near
// certain compared to model output.
const ruleConfidence = 0.95

var nonLetters = regexp.MustCompile(`[^a-z ]`)
var multiSpace = regexp.MustCompile(`\s+`)

// Normalize strips merchant-string noise: lowercase, letters and spaces
// only, collapsed whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = nonLetters.ReplaceAllString(text, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}

// Rules is the keyword matcher. It is cheap enough to run on every
// transaction before anything network-bound is consulted.
type Rules struct{}

// Match looks for category keywords in the merchant string first, then in
// the raw message. It returns false when nothing matched; a transaction
// without a merchant never rule-matches.
func (Rules) Match(merchant, rawMessage string) (categories.Category, bool) {
	if merchant == "" {
		return "", false
	}

	merchantClean := Normalize(merchant)
	rawClean := Normalize(rawMessage)

	for _, text := range []string{merchantClean, rawClean} {
		if text == "" {
			continue
		}
		for _, cat := range categories.All() {
			for _, kw := range categories.MerchantKeywords[cat] {
				if strings.Contains(text, kw) {
					return cat, true
				}
			}
		}
	}
	return "", false
}

// Categorize implements Categorizer for rule-only deployments (no LLM
// configured). Unmatched transactions come back as OTHER with the fallback
// confidence.
func (r Rules) Categorize(ctx context.Context, merchant string, amount float64, rawText string, txType domain.TransactionType) (Result, error) {
	if cat, ok := r.Match(merchant, rawText); ok {
		return Result{Category: cat, Confidence: ruleConfidence}, nil
	}
	return Result{Category: categories.Other, Confidence: fallbackConfidence}, nil
}
