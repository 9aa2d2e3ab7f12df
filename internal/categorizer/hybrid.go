package categorizer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
)

// Hybrid categorizes with rules first, falls back to the LLM, and caches
// LLM answers. Rule hits are not cached; they are cheaper than a lookup.
type Hybrid struct {
	rules Rules
	llm   Categorizer
	cache *Cache
	log   zerolog.Logger
}

// NewHybrid wires the hybrid categorizer. llm may be nil, in which case
// unmatched transactions are categorized OTHER without a network call.
func NewHybrid(llm Categorizer, cache *Cache, log zerolog.Logger) *Hybrid {
	if cache == nil {
		cache = NewCache(0, 0)
	}
	return &Hybrid{llm: llm, cache: cache, log: log}
}

// Categorize implements Categorizer. It never returns an error together
// with an unusable result: on LLM failure the OTHER fallback is returned
// alongside the error so callers can log and continue.
func (h *Hybrid) Categorize(ctx context.Context, merchant string, amount float64, rawText string, txType domain.TransactionType) (Result, error) {
	if cat, ok := h.rules.Match(merchant, rawText); ok {
		return Result{Category: cat, Confidence: ruleConfidence}, nil
	}

	if h.llm == nil {
		return Result{Category: categories.Other, Confidence: fallbackConfidence}, nil
	}

	key := Key(merchant, txType)
	if res, ok := h.cache.Get(key); ok {
		return res, nil
	}

	res, err := h.llm.Categorize(ctx, merchant, amount, rawText, txType)
	if err != nil {
		h.log.Warn().Err(err).Str("merchant", merchant).Msg("LLM categorization failed")
		return Result{Category: categories.Other, Confidence: fallbackConfidence}, err
	}

	h.cache.Put(key, res)
	return res, nil
}
