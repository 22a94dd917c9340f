// Package feedback validates and stores incoming complaints.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/autotriage/internal/metrics"
	"github.com/kiranshivaraju/autotriage/internal/sentiment"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

// MaxTextLength is the longest accepted complaint text, in bytes.
const MaxTextLength = 5000

var ErrInvalidFeedback = errors.New("invalid feedback")

// Repository is the storage the intake service needs.
type Repository interface {
	CreateFeedback(ctx context.Context, in models.NewFeedback) (*models.Feedback, error)
	GetFeedback(ctx context.Context, id int64) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter store.FeedbackFilter) ([]*models.Feedback, int, error)
}

// Service creates and reads feedback records.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Validate trims in and checks required fields.
func Validate(in models.NewFeedback) (models.NewFeedback, error) {
	in = in.Trimmed()
	switch {
	case in.Text == "":
		return in, fmt.Errorf("%w: text must not be empty", ErrInvalidFeedback)
	case len(in.Text) > MaxTextLength:
		return in, fmt.Errorf("%w: text must be at most %d bytes", ErrInvalidFeedback, MaxTextLength)
	case in.CarMake == "":
		return in, fmt.Errorf("%w: car_make must not be empty", ErrInvalidFeedback)
	case in.CarModel == "":
		return in, fmt.Errorf("%w: car_model must not be empty", ErrInvalidFeedback)
	}
	return in, nil
}

// Create validates in, labels its sentiment and stores it.
func (s *Service) Create(ctx context.Context, in models.NewFeedback) (*models.Feedback, error) {
	in, err := Validate(in)
	if err != nil {
		return nil, err
	}
	label := sentiment.Label(sentiment.Score(in.Text))
	in.Sentiment = &label

	f, err := s.repo.CreateFeedback(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	metrics.FeedbackCreated.Inc()
	s.logger.Debug("feedback saved", "id", f.ID, "car_make", f.CarMake, "sentiment", label)
	return f, nil
}

// Get returns the record with id, or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Feedback, error) {
	return s.repo.GetFeedback(ctx, id)
}

// List returns a newest-first page and the total matching count.
func (s *Service) List(ctx context.Context, filter store.FeedbackFilter) ([]*models.Feedback, int, error) {
	items, total, err := s.repo.ListFeedback(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	return items, total, nil
}
