package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/autotriage/internal/api/response"
	"github.com/kiranshivaraju/autotriage/internal/feedback"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// FeedbackService defines the intake operations the handlers depend on.
type FeedbackService interface {
	Create(ctx context.Context, in models.NewFeedback) (*models.Feedback, error)
	Get(ctx context.Context, id int64) (*models.Feedback, error)
	List(ctx context.Context, filter store.FeedbackFilter) ([]*models.Feedback, int, error)
}

// NewCreateFeedbackHandler returns an http.HandlerFunc for POST /api/v1/feedback.
func NewCreateFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text     string `json:"text"`
			CarMake  string `json:"car_make"`
			CarModel string `json:"car_model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		f, err := svc.Create(r.Context(), models.NewFeedback{
			Text:     req.Text,
			CarMake:  req.CarMake,
			CarModel: req.CarModel,
		})
		if err != nil {
			if errors.Is(err, feedback.ErrInvalidFeedback) {
				response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", validationMessage(err), nil)
				return
			}
			slog.Error("create feedback failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.Created(w, f)
	}
}

// NewListFeedbackHandler returns an http.HandlerFunc for GET /api/v1/feedback.
func NewListFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		skip, err := intParam(q.Get("skip"), 0)
		if err != nil || skip < 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "skip must be a non-negative integer", nil)
			return
		}
		limit, err := intParam(q.Get("limit"), defaultListLimit)
		if err != nil || limit < 1 || limit > maxListLimit {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 1000", nil)
			return
		}

		items, total, err := svc.List(r.Context(), store.FeedbackFilter{
			CarMake:      q.Get("car_make"),
			FaultCluster: q.Get("fault_cluster"),
			Offset:       skip,
			Limit:        limit,
		})
		if err != nil {
			slog.Error("list feedback failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.Collection(w, items, response.NewPaginationMeta(skip, limit, total))
	}
}

// NewGetFeedbackHandler returns an http.HandlerFunc for GET /api/v1/feedback/{id}.
func NewGetFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a positive integer", nil)
			return
		}

		f, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Feedback not found", nil)
				return
			}
			slog.Error("get feedback failed", "id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.JSON(w, f)
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// validationMessage strips the sentinel prefix from a wrapped validation error.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
