package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/autotriage/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Store is the data access interface. All feedback persistence goes through here.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateFeedback(ctx context.Context, in models.NewFeedback) (*models.Feedback, error)
	GetFeedback(ctx context.Context, id int64) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter FeedbackFilter) ([]*models.Feedback, int, error)
	// ListAllFeedback returns every record ordered by id ascending.
	ListAllFeedback(ctx context.Context) ([]*models.Feedback, error)

	// Begin opens a write transaction. The caller owns it and must end it
	// with exactly one Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an explicit write session. Rollback after Commit is a no-op.
type Tx interface {
	SetFaultCluster(ctx context.Context, id int64, label string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// FeedbackFilter selects a newest-first page of feedback.
type FeedbackFilter struct {
	CarMake      string
	FaultCluster string
	Offset       int
	Limit        int
}

func (f FeedbackFilter) normalized() FeedbackFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
