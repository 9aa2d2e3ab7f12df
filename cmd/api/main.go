package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spendlens/spendlens/internal/api/handlers"
	"github.com/spendlens/spendlens/internal/api/middleware"
	"github.com/spendlens/spendlens/internal/archive"
	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categorizer"
	infraBQ "github.com/spendlens/spendlens/internal/infra/bigquery"
	"github.com/spendlens/spendlens/internal/jobs"
	jobsmem "github.com/spendlens/spendlens/internal/jobs/inmemory"
	"github.com/spendlens/spendlens/internal/logger"
	"github.com/spendlens/spendlens/internal/simulation"
	"github.com/spendlens/spendlens/internal/stats"
	"github.com/spendlens/spendlens/internal/store"
	storemem "github.com/spendlens/spendlens/internal/store/inmemory"
	storesqlite "github.com/spendlens/spendlens/internal/store/sqlite"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		backend = flag.String("store", "sqlite", "storage backend: memory, sqlite or bigquery")
		dbPath  = flag.String("db", "spendlens.db", "SQLite database path (store=sqlite)")
		project = flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (store=bigquery)")
		dataset = flag.String("dataset", "spendlens", "BigQuery dataset (store=bigquery)")
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for model snapshots (or set GCS_BUCKET env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()

	// Initialize stores
	var (
		models store.ModelStore
		txs    store.TransactionStore
	)
	switch *backend {
	case "memory":
		models = storemem.NewModelStore()
		txs = storemem.NewTransactionStore()
	case "sqlite":
		db, err := storesqlite.Open(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open SQLite store")
		}
		defer db.Close()
		models, txs = db, db
	case "bigquery":
		if *project == "" {
			log.Fatal().Msg("store=bigquery requires -project or GOOGLE_CLOUD_PROJECT")
		}
		bq, err := infraBQ.NewStore(ctx, *project, *dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bq.Close()
		models, txs = bq, bq
	default:
		log.Fatal().Str("store", *backend).Msg("Unknown storage backend")
	}

	// Categorizer: rules first, Gemini fallback when credentials exist.
	var llm categorizer.Categorizer
	if os.Getenv("GOOGLE_API_KEY") != "" {
		gemini, err := categorizer.NewGemini(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini categorizer")
		}
		llm = gemini
	} else {
		log.Warn().Msg("GOOGLE_API_KEY not set - LLM categorization disabled, using rules only")
	}
	cat := categorizer.NewHybrid(llm, categorizer.NewCache(0, 0), logger.WithComponent(log, "categorizer"))

	// Model archiving is optional.
	var archiver archive.Archiver
	if *bucket != "" {
		a, err := archive.NewGCSArchiver(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create model archiver")
		}
		defer a.Close()
		archiver = a
	} else {
		log.Warn().Msg("No GCS bucket configured - model archiving will be disabled")
	}

	// Behavior and simulation engines
	engine := behavior.NewEngine(cat, stats.DefaultConfig(), 10*time.Second, logger.WithComponent(log, "behavior"))
	sim := simulation.NewEngine(logger.WithComponent(log, "simulation"))

	// Initialize job infrastructure
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, jobStore)
	processor := jobs.NewProcessor(engine, models, txs, logger.WithComponent(log, "jobs"))

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting model update worker")
		if err := jobQueue.Start(workerCtx, processor.Handle); err != nil {
			log.Error().Err(err).Msg("Model update worker stopped with error")
		}
	}()

	// Initialize handlers
	transactionsHandler := handlers.NewTransactionsHandler(jobQueue, txs, log)
	modelsHandler := handlers.NewModelsHandler(models, archiver, log)
	simulationsHandler := handlers.NewSimulationsHandler(models, txs, sim, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			transactionsHandler.Ingest(w, r)
		case http.MethodGet:
			transactionsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Models endpoints
	mux.HandleFunc("/api/models/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/models/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
			return
		}
		if userID, ok := strings.CutSuffix(rest, "/archive"); ok {
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			modelsHandler.ArchiveModel(w, r, userID)
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		modelsHandler.GetModel(w, r, rest)
	})

	// Simulation endpoints
	simRoutes := map[string]http.HandlerFunc{
		"/api/simulations/scenario":     simulationsHandler.Scenario,
		"/api/simulations/reallocation": simulationsHandler.Reallocation,
		"/api/simulations/projection":   simulationsHandler.Projection,
		"/api/simulations/comparison":   simulationsHandler.Comparison,
	}
	for path, handler := range simRoutes {
		h := handler
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			h(w, r)
		})
	}

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("store", *backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for the in-flight job
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
