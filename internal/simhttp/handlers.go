// Package simhttp exposes the simulator as an HTTP service: trigger a run,
// fetch a persisted run's metrics, and report liveness/readiness, the
// service-shaped counterpart to the batch cmd/simulate CLI.
package simhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simreport"
	"github.com/ubi-africa/ridesim/internal/simrun"
)

const (
	errMsgInvalidRequestBody = "invalid request body"
	errMsgInvalidRunID       = "invalid run id"
	errMsgRunNotFound        = "run not found"
)

// RunStore is the persistence collaborator a Handler needs: create and
// fetch Run records. internal/simrun.RunRepository satisfies this.
type RunStore interface {
	Create(ctx context.Context, run simrun.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (simrun.Run, error)
}

// Handler serves the run-triggering and run-lookup endpoints.
type Handler struct {
	network *simcore.RoadNetwork
	orders  []simcore.OrderRecord
	store   RunStore
}

// NewHandler constructs a Handler over a fixed road network and base order
// table; every triggered run replays against the same network (§4.7.1).
func NewHandler(network *simcore.RoadNetwork, orders []simcore.OrderRecord, store RunStore) *Handler {
	return &Handler{network: network, orders: orders, store: store}
}

// Routes mounts this handler's endpoints on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/runs", h.CreateRun)
	r.Get("/runs/{id}", h.GetRun)
	return r
}

// APIError mirrors the teacher's envelope shape for consistent error bodies.
type APIError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CreateRunRequest is the POST /runs body: a simulation configuration.
type CreateRunRequest struct {
	StartTime          int     `json:"start_time"`
	TimeWindow         int     `json:"time_window"`
	UntilStep          int     `json:"until_step"`
	TaxiCount          int     `json:"taxi_count"`
	MatchStrategy      string  `json:"match_strategy"`
	RepositionStrategy string  `json:"reposition_strategy"`
	WaitingThreshold   int     `json:"waiting_threshold"`
	MaxPickupTime      int     `json:"max_pickup_time"`
	MaxRepositionTime  int     `json:"max_reposition_time"`
	ExportOrders       bool    `json:"export_orders"`
	ExportFleet        bool    `json:"export_fleet"`
	Seed               int64   `json:"seed"`
	ClusterCount       int     `json:"cluster_count"`
	DemandFraction     float64 `json:"demand_fraction"`
}

// CreateRunResponse carries §6.1's run export fields except config; GET
// /runs/{id} returns the full record, config included.
type CreateRunResponse struct {
	ID         uuid.UUID               `json:"id"`
	Seed       int64                   `json:"seed"`
	StartedAt  string                  `json:"started_at"`
	FinishedAt string                  `json:"finished_at"`
	Metrics    simreport.MetricsReport `json:"metrics"`
}

// CreateRun handles POST /runs: builds and executes a single simulation run
// to completion, persists it, and returns its metrics report.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errMsgInvalidRequestBody)
		return
	}

	config := simcore.SimulatorConfig{
		StartTime:          req.StartTime,
		TimeWindow:         req.TimeWindow,
		TaxiCount:          req.TaxiCount,
		MatchStrategy:      req.MatchStrategy,
		RepositionStrategy: req.RepositionStrategy,
		WaitingThreshold:   req.WaitingThreshold,
		MaxPickupTime:      req.MaxPickupTime,
		MaxRepositionTime:  req.MaxRepositionTime,
		ExportOrders:       true,
		ExportFleet:        true,
		Seed:               req.Seed,
		ClusterCount:       req.ClusterCount,
		DemandFraction:     req.DemandFraction,
	}

	sim, err := simcore.NewSimulator(h.network, h.orders, config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := sim.Run(r.Context(), req.UntilStep)
	if err != nil {
		log.Error().Err(err).Str("component", "simhttp").Msg("run failed")
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	metrics := simreport.Compute(result.Orders, result.Fleet)
	run := simrun.FromResult(config, result, metrics)

	if err := h.store.Create(r.Context(), run); err != nil {
		log.Error().Err(err).Str("component", "simhttp").Msg("failed to persist run")
		writeError(w, http.StatusInternalServerError, "failed to persist run")
		return
	}

	writeJSON(w, http.StatusCreated, CreateRunResponse{
		ID:         run.ID,
		Seed:       run.Seed,
		StartedAt:  run.StartedAt.Format(dateLayout),
		FinishedAt: run.FinishedAt.Format(dateLayout),
		Metrics:    run.Metrics,
	})
}

const dateLayout = "2006-01-02T15:04:05Z07:00"

// GetRun handles GET /runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errMsgInvalidRunID)
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if err == simcore.ErrRunNotFound {
			writeError(w, http.StatusNotFound, errMsgRunNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
