// Package apihandlers implements the HTTP surface over the orchestrator:
// each handler authenticates, decodes its request, calls the orchestrator,
// and encodes the response.
package apihandlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/ytresolver/internal/httpmw"
	"github.com/example/ytresolver/internal/orchestrator"
	"github.com/example/ytresolver/internal/store"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

type startRunRequest struct {
	AnalysisID int64    `json:"analysis_id"`
	Inputs     []string `json:"inputs"`
}

type startRunResponse struct {
	RunID       uint64 `json:"run_id"`
	JobsCreated int    `json:"jobs_created"`
}

// StartRun handles POST /runs.
func StartRun(orch *orchestrator.Orchestrator, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpmw.GetUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		var req startRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
			return
		}

		result, err := orch.StartRun(r.Context(), req.AnalysisID, claims.OwnerID, req.Inputs)
		if err != nil {
			logger.Error().Err(err).Msg("start run failed")
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to start run")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(startRunResponse{RunID: result.RunID, JobsCreated: result.JobsCreated})
	}
}

type failedJobResponse struct {
	JobID uint64 `json:"job_id"`
	Input string `json:"input"`
	Error string `json:"error"`
}

type statusCountsResponse struct {
	Pending     int `json:"PENDING"`
	Processing  int `json:"PROCESSING"`
	Done        int `json:"DONE"`
	Failed      int `json:"FAILED"`
	NeedsSearch int `json:"NEEDS_SEARCH"`
}

type runStatusResponse struct {
	RunID        uint64               `json:"run_id"`
	RunStatus    store.RunStatus      `json:"run_status"`
	Progress     float64              `json:"progress"`
	TotalJobs    int                  `json:"total_jobs"`
	StatusCounts statusCountsResponse `json:"status_counts"`
	FailedJobs   []failedJobResponse  `json:"failed_jobs"`
	Summary      *store.Summary       `json:"summary"`
}

// GetRunStatus handles GET /runs/{id}.
func GetRunStatus(orch *orchestrator.Orchestrator, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpmw.GetUser(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/runs/")
		runID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RUN_ID", "run id must be an integer")
			return
		}

		status, err := orch.GetRunStatus(r.Context(), runID)
		if err != nil {
			if err == store.ErrNotFound {
				writeError(w, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
				return
			}
			logger.Error().Err(err).Msg("get run status failed")
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load run status")
			return
		}

		resp := runStatusResponse{
			RunID:     status.RunID,
			RunStatus: status.Status,
			Progress:  status.Progress,
			TotalJobs: status.Total,
			StatusCounts: statusCountsResponse{
				Pending:     status.Counts.Pending,
				Processing:  status.Counts.Processing,
				Done:        status.Counts.Done,
				Failed:      status.Counts.Failed,
				NeedsSearch: status.Counts.NeedsSearch,
			},
			Summary: status.Summary,
		}
		for _, fj := range status.FailedJobs {
			resp.FailedJobs = append(resp.FailedJobs, failedJobResponse{JobID: fj.JobID, Input: fj.Input, Error: fj.Error})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// Health is a liveness probe, no auth required.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}
