// Command backfill rebuilds behavior models offline from a JSONL file of
// transactions. Each line is one transaction in the ingest endpoint's JSON
// shape. Transactions are folded in file order, which matters: the model
// update is order-sensitive.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categorizer"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/logger"
	"github.com/spendlens/spendlens/internal/stats"
	"github.com/spendlens/spendlens/internal/store"
	storesqlite "github.com/spendlens/spendlens/internal/store/sqlite"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	input := flag.String("input", "", "JSONL file of transactions (one JSON object per line)")
	dbPath := flag.String("db", "spendlens.db", "SQLite database path")
	flag.Parse()

	if *input == "" {
		log.Fatal().Msg("Error: --input is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("Failed to open input file")
	}
	defer f.Close()

	db, err := storesqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open SQLite store")
	}
	defer db.Close()

	// Backfill runs offline with rule-based categorization only; the LLM
	// fallback would make replays slow and non-deterministic.
	cat := categorizer.NewHybrid(nil, nil, logger.WithComponent(log, "categorizer"))
	engine := behavior.NewEngine(cat, stats.DefaultConfig(), 10*time.Second, logger.WithComponent(log, "behavior"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("input", *input).Str("db", *dbPath).Msg("Starting backfill")

	// Models are cached per user across lines so each fold sees the result
	// of the previous one.
	models := make(map[string]*behavior.Model)

	var processed, skipped int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var tx domain.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed line")
			skipped++
			continue
		}

		model, cached := models[tx.UserID]
		if !cached {
			model, err = db.GetModel(ctx, tx.UserID)
			if err != nil && !errors.Is(err, store.ErrModelNotFound) {
				log.Fatal().Err(err).Str("user_id", tx.UserID).Msg("Failed to load model")
			}
		}

		updated, err := engine.UpdateModel(ctx, model, &tx)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping invalid transaction")
			skipped++
			continue
		}
		models[tx.UserID] = updated

		if err := db.Insert(ctx, &tx); err != nil {
			log.Fatal().Err(err).Int("line", line).Msg("Failed to store transaction")
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to read input file")
	}

	for userID, model := range models {
		if err := db.UpsertModel(ctx, model); err != nil {
			log.Fatal().Err(err).Str("user_id", userID).Msg("Failed to save model")
		}
		log.Info().
			Str("user_id", userID).
			Int("transaction_count", model.TransactionCount).
			Float64("impulse_score", model.ImpulseScore).
			Msg("Model saved")
	}

	fmt.Printf("Backfill completed: %d transactions processed, %d skipped, %d models updated.\n",
		processed, skipped, len(models))
}
