// Package handlers implements the HTTP endpoints: transaction ingestion,
// model retrieval and archiving, simulations and job status.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendlens/spendlens/internal/api/middleware"
	"github.com/spendlens/spendlens/internal/archive"
	"github.com/spendlens/spendlens/internal/behavior"
	"github.com/spendlens/spendlens/internal/categories"
	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/jobs"
	"github.com/spendlens/spendlens/internal/simulation"
	"github.com/spendlens/spendlens/internal/store"
)

// defaultWindowDays is the analysis window when a request does not name one.
const defaultWindowDays = 30

// TransactionsHandler handles transaction ingestion and listing.
type TransactionsHandler struct {
	publisher jobs.Publisher
	txs       store.TransactionStore
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(publisher jobs.Publisher, txs store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		publisher: publisher,
		txs:       txs,
		log:       log,
	}
}

// Ingest handles POST /api/transactions. The transaction is validated and
// enqueued; the model fold happens asynchronously so ingestion latency stays
// independent of categorizer latency.
func (h *TransactionsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := tx.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.UpdateModelJob{
		UserID:      tx.UserID,
		Transaction: tx,
	}

	if err := h.publisher.PublishUpdateModel(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", tx.UserID).Msg("Failed to enqueue model update")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue transaction")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", tx.UserID).Msg("Model update enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"user_id": tx.UserID,
		"status":  string(job.Status),
	})
}

// List handles GET /api/transactions?user_id=...&days=...
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	days := queryInt(r, "days", defaultWindowDays)

	since := time.Now().UTC().AddDate(0, 0, -days)
	txs, err := h.txs.ListDebitsSince(r.Context(), userID, since)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ModelsHandler handles behavior model endpoints.
type ModelsHandler struct {
	models   store.ModelStore
	archiver archive.Archiver
	log      zerolog.Logger
}

// NewModelsHandler creates a new models handler. archiver may be nil, which
// disables the export endpoint.
func NewModelsHandler(models store.ModelStore, archiver archive.Archiver, log zerolog.Logger) *ModelsHandler {
	return &ModelsHandler{
		models:   models,
		archiver: archiver,
		log:      log,
	}
}

// GetModel handles GET /api/models/{userID}
func (h *ModelsHandler) GetModel(w http.ResponseWriter, r *http.Request, userID string) {
	model, err := h.models.GetModel(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No behavior model for user")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get model")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, model)
}

// ArchiveModel handles POST /api/models/{userID}/archive
func (h *ModelsHandler) ArchiveModel(w http.ResponseWriter, r *http.Request, userID string) {
	if h.archiver == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Model archiving is not configured")
		return
	}

	model, err := h.models.GetModel(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No behavior model for user")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get model")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}

	uri, err := h.archiver.ArchiveModel(r.Context(), model)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to archive model")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to archive model")
		return
	}

	h.log.Info().Str("user_id", userID).Str("gcs_uri", uri).Msg("Model archived")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"gcs_uri": uri,
	})
}

// SimulationsHandler handles the what-if endpoints.
type SimulationsHandler struct {
	models store.ModelStore
	txs    store.TransactionStore
	sim    *simulation.Engine
	log    zerolog.Logger
}

// NewSimulationsHandler creates a new simulations handler.
func NewSimulationsHandler(models store.ModelStore, txs store.TransactionStore, sim *simulation.Engine, log zerolog.Logger) *SimulationsHandler {
	return &SimulationsHandler{
		models: models,
		txs:    txs,
		sim:    sim,
		log:    log,
	}
}

// loadInputs fetches the model and the analysis window for a simulation.
func (h *SimulationsHandler) loadInputs(w http.ResponseWriter, r *http.Request, userID string, days int) (*behavior.Model, []domain.Transaction, bool) {
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return nil, nil, false
	}
	if days <= 0 {
		days = defaultWindowDays
	}

	model, err := h.models.GetModel(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No behavior model for user")
			return nil, nil, false
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get model")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get model")
		return nil, nil, false
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	window, err := h.txs.ListDebitsSince(r.Context(), userID, since)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load analysis window")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transactions")
		return nil, nil, false
	}

	return model, window, true
}

// writeSimError maps simulation errors onto HTTP statuses.
func (h *SimulationsHandler) writeSimError(w http.ResponseWriter, err error) {
	var unknown *simulation.UnknownCategoriesError
	var unbalanced *simulation.UnbalancedError
	switch {
	case errors.Is(err, simulation.ErrNoModel):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, simulation.ErrEmptyWindow):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unknown), errors.As(err, &unbalanced):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Simulation failed")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	}
}

// Scenario handles POST /api/simulations/scenario
func (h *SimulationsHandler) Scenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           string                  `json:"user_id"`
		ScenarioType     simulation.ScenarioType `json:"scenario_type"`
		TargetPercent    float64                 `json:"target_percent"`
		TargetCategories []categories.Category   `json:"target_categories,omitempty"`
		TimePeriodDays   int                     `json:"time_period_days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, window, ok := h.loadInputs(w, r, req.UserID, req.TimePeriodDays)
	if !ok {
		return
	}

	result, err := h.sim.SimulateScenario(model, window, req.ScenarioType, req.TargetPercent, req.TargetCategories)
	if err != nil {
		h.writeSimError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Reallocation handles POST /api/simulations/reallocation
func (h *SimulationsHandler) Reallocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string                          `json:"user_id"`
		Reallocations  map[categories.Category]float64 `json:"reallocations"`
		TimePeriodDays int                             `json:"time_period_days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, window, ok := h.loadInputs(w, r, req.UserID, req.TimePeriodDays)
	if !ok {
		return
	}

	result, err := h.sim.SimulateReallocation(model, window, req.Reallocations)
	if err != nil {
		h.writeSimError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Projection handles POST /api/simulations/projection
func (h *SimulationsHandler) Projection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID            string                          `json:"user_id"`
		ProjectionMonths  int                             `json:"projection_months"`
		BehavioralChanges map[categories.Category]float64 `json:"behavioral_changes,omitempty"`
		TimePeriodDays    int                             `json:"time_period_days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, window, ok := h.loadInputs(w, r, req.UserID, req.TimePeriodDays)
	if !ok {
		return
	}

	result, err := h.sim.ProjectFutureSpending(model, window, req.ProjectionMonths, req.BehavioralChanges, time.Now().UTC())
	if err != nil {
		h.writeSimError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Comparison handles POST /api/simulations/comparison
func (h *SimulationsHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string                  `json:"user_id"`
		ScenarioType   simulation.ScenarioType `json:"scenario_type"`
		NumScenarios   int                     `json:"num_scenarios"`
		TimePeriodDays int                     `json:"time_period_days,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NumScenarios == 0 {
		req.NumScenarios = 3
	}

	model, window, ok := h.loadInputs(w, r, req.UserID, req.TimePeriodDays)
	if !ok {
		return
	}

	result, err := h.sim.CompareScenarios(model, window, req.ScenarioType, req.NumScenarios)
	if err != nil {
		h.writeSimError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
