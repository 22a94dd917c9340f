package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/autotriage/internal/analysis"
	"github.com/kiranshivaraju/autotriage/internal/api/response"
	"github.com/kiranshivaraju/autotriage/internal/cache"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

// Analyzer runs one analysis and returns its report.
type Analyzer interface {
	Report(ctx context.Context, p analysis.Params) (*models.AnalysisReport, error)
}

// AnalyzeConfig holds the request defaults and run lock expiry.
type AnalyzeConfig struct {
	Defaults analysis.Params
	LockTTL  time.Duration
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// Runs are serialized through the cache lock; a concurrent request gets 409.
func NewAnalyzeHandler(svc Analyzer, c cache.Cache, cfg AnalyzeConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			NClusters     *int     `json:"n_clusters"`
			ClusterByMake bool     `json:"cluster_by_make"`
			Alpha         *float64 `json:"alpha"`
			Cap           *float64 `json:"cap"`
			Atomic        bool     `json:"atomic"`
		}
		// An empty body runs with the configured defaults.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		p := cfg.Defaults
		p.ClusterByMake = req.ClusterByMake
		p.AtomicWriteBack = req.Atomic
		if req.NClusters != nil {
			p.NClusters = *req.NClusters
		}
		if req.Alpha != nil {
			p.Alpha = *req.Alpha
		}
		if req.Cap != nil {
			p.Cap = *req.Cap
		}
		if err := p.Validate(); err != nil {
			response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", validationMessage(err), nil)
			return
		}

		var report *models.AnalysisReport
		err := cache.WithLock(r.Context(), c, cache.AnalysisLockKey, cfg.LockTTL, func(ctx context.Context) error {
			var err error
			report, err = svc.Report(ctx, p)
			return err
		})
		if err != nil {
			switch {
			case errors.Is(err, cache.ErrLockHeld):
				response.Error(w, http.StatusConflict, "ANALYSIS_IN_PROGRESS",
					"Another analysis run is in progress", nil)
			case errors.Is(err, analysis.ErrInvalidParams):
				response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", validationMessage(err), nil)
			default:
				slog.Error("analysis failed", "error", err)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		if b, err := json.Marshal(report); err == nil {
			if err := c.Set(r.Context(), cache.LatestReportKey, b, cache.LatestReportTTL); err != nil {
				slog.Warn("store latest report failed", "run_id", report.RunID, "error", err)
			}
		}

		response.JSON(w, report)
	}
}

// NewLatestReportHandler returns an http.HandlerFunc for GET /api/v1/analysis/latest.
func NewLatestReportHandler(c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, found, err := c.Get(r.Context(), cache.LatestReportKey)
		if err != nil {
			slog.Error("load latest report failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if !found {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "No analysis has been run yet", nil)
			return
		}

		var report models.AnalysisReport
		if err := json.Unmarshal(b, &report); err != nil {
			slog.Error("decode latest report failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		response.JSON(w, report)
	}
}
