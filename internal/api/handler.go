package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldsight/sentinel/internal/domain"
	"github.com/fieldsight/sentinel/internal/repository"
)

// Pagination bounds for the operator listing.
const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Cache TTLs for reporting reads. Profiles only change when a run
// completes, and runs invalidate the keys they touch, so these are
// a backstop rather than the consistency mechanism.
const (
	profileCacheTTL = 5 * time.Minute
	summaryCacheTTL = 5 * time.Minute
)

// RunTrigger starts a pipeline run for one date. Satisfied by
// pipeline.Runner.
type RunTrigger interface {
	Run(ctx context.Context, date string) (*domain.RunSummary, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	runner  RunTrigger
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, runner RunTrigger, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		runner:  runner,
		version: version,
	}
}

// RunRequest is the request body for POST /risk/run.
type RunRequest struct {
	Date string `json:"date"`
}

// TriggerRun handles POST /risk/run requests.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "date is required (YYYY-MM-DD)",
		})
		return
	}
	if _, err := domain.ParseDate(req.Date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	summary, err := h.runner.Run(ctx, req.Date)
	if err != nil {
		slog.Error("pipeline run failed", "date", req.Date, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "risk computation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ListOperators handles GET /risk/operators requests.
func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := domain.ProfileQuery{
		Page:  defaultPage,
		Limit: defaultLimit,
	}

	params := r.URL.Query()

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "page must be a positive integer",
			})
			return
		}
		q.Page = page
	}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		q.Limit = limit
	}

	if v := params.Get("riskLevel"); v != "" {
		level, err := domain.ParseRiskLevel(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		q.RiskLevel = level
	}

	q.District = params.Get("district")
	q.SortBy = params.Get("sortBy")
	q.SortDesc = params.Get("sortOrder") != "asc" // descending by default

	page, err := h.repo.ListProfiles(ctx, q)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("failed to list profiles", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list operators",
		})
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GetOperator handles GET /risk/operators/{operatorID} requests.
func (h *Handler) GetOperator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID := chi.URLParam(r, "operatorID")

	if operatorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "operator id is required",
		})
		return
	}

	// Cache first
	if h.cache != nil {
		if profile, err := h.cache.GetProfile(ctx, operatorID); err == nil && profile != nil {
			writeJSON(w, http.StatusOK, profile)
			return
		}
	}

	profile, err := h.repo.GetProfile(ctx, operatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "operator risk profile not found",
			})
			return
		}
		slog.Error("failed to get profile", "operator_id", operatorID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get operator",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.SetProfile(ctx, operatorID, profile, profileCacheTTL); err != nil {
			slog.Warn("failed to cache profile", "operator_id", operatorID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetSummary handles GET /risk/summary requests.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	district := r.URL.Query().Get("district")

	// Only the unfiltered summary is cached; district filters go straight
	// to the repository.
	if district == "" && h.cache != nil {
		if data, err := h.cache.Get(ctx, domain.SummaryCacheKey); err == nil && data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	summary, err := h.repo.SummarizeProfiles(ctx, district)
	if err != nil {
		slog.Error("failed to summarize profiles", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute summary",
		})
		return
	}

	if district == "" && h.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := h.cache.Set(ctx, domain.SummaryCacheKey, data, summaryCacheTTL); err != nil {
				slog.Warn("failed to cache summary", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

// Health handles GET /health requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
