package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autotriage/internal/metrics"
	"github.com/kiranshivaraju/autotriage/internal/pricing"
	"github.com/kiranshivaraju/autotriage/internal/sentiment"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

const maxExamples = 3

// Params controls one analysis run.
type Params struct {
	ClusterByMake bool
	NClusters     int
	Alpha         float64
	Cap           float64
	// AtomicWriteBack commits every fault-cluster label of a by-fault run in a
	// single transaction. By default each group is committed on its own.
	AtomicWriteBack bool
}

// DefaultParams returns the standard run settings.
func DefaultParams() Params {
	return Params{NClusters: 5, Alpha: 0.1, Cap: 0.5}
}

// Mode names the clustering mode p selects.
func (p Params) Mode() string {
	if p.ClusterByMake {
		return models.AnalysisModeByMake
	}
	return models.AnalysisModeByFault
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.NClusters < 1 {
		return fmt.Errorf("%w: n_clusters must be at least 1, got %d", ErrInvalidParams, p.NClusters)
	}
	if math.IsNaN(p.Alpha) || p.Alpha < 0 {
		return fmt.Errorf("%w: alpha must be >= 0, got %v", ErrInvalidParams, p.Alpha)
	}
	if math.IsNaN(p.Cap) || p.Cap < 0 {
		return fmt.Errorf("%w: cap must be >= 0, got %v", ErrInvalidParams, p.Cap)
	}
	return nil
}

// FeedbackSource is the storage the analysis reads and writes back to.
type FeedbackSource interface {
	ListAllFeedback(ctx context.Context) ([]*models.Feedback, error)
	Begin(ctx context.Context) (store.Tx, error)
}

// Service runs the analysis pipeline over the full feedback collection.
// Runs are not isolated from each other; callers that need isolation must
// serialize them.
type Service struct {
	source    FeedbackSource
	engine    *Engine
	estimator *pricing.Estimator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(source FeedbackSource, engine *Engine, estimator *pricing.Estimator, logger *slog.Logger) *Service {
	if estimator == nil {
		estimator = pricing.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:    source,
		engine:    engine,
		estimator: estimator,
		logger:    logger,
		now:       time.Now,
	}
}

// Report runs Analyze and wraps the results with a run id and timestamp.
func (s *Service) Report(ctx context.Context, p Params) (*models.AnalysisReport, error) {
	runID := uuid.New()
	results, err := s.analyze(ctx, runID, p)
	if err != nil {
		return nil, err
	}
	return &models.AnalysisReport{
		RunID:     runID,
		Mode:      p.Mode(),
		Results:   results,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Analyze loads every stored record, clusters it and returns one result per
// cluster in group discovery order. An empty corpus yields an empty slice and
// no writes. In by-fault mode each record's cluster label is written back.
func (s *Service) Analyze(ctx context.Context, p Params) ([]models.AnalysisResult, error) {
	return s.analyze(ctx, uuid.New(), p)
}

func (s *Service) analyze(ctx context.Context, runID uuid.UUID, p Params) (results []models.AnalysisResult, err error) {
	mode := p.Mode()
	start := s.now()
	defer func() {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "error"
		case len(results) == 0:
			outcome = "empty"
		}
		metrics.ObserveRun(mode, outcome, s.now().Sub(start).Seconds(), len(results))
	}()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	records, err := s.source.ListAllFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	if len(records) == 0 {
		s.logger.Info("no feedback to analyze", "run_id", runID, "mode", mode)
		return []models.AnalysisResult{}, nil
	}

	groups, err := s.group(records, p)
	if err != nil {
		return nil, err
	}

	var runTx store.Tx
	if p.AtomicWriteBack && !p.ClusterByMake {
		runTx, err = s.source.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin write-back: %w", err)
		}
		defer func() {
			if err != nil {
				_ = runTx.Rollback(ctx)
			}
		}()
	}

	results = make([]models.AnalysisResult, 0, len(groups))
	written := 0
	for _, g := range groups {
		if !p.ClusterByMake {
			if err := s.writeBack(ctx, runTx, g); err != nil {
				s.logger.Error("write-back failed", "run_id", runID, "cluster", g.Label, "error", err)
				return nil, err
			}
			written += len(g.Records)
		}

		result, err := s.summarize(g, p)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if runTx != nil {
		if err := runTx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit write-back: %w", err)
		}
		labelGroups(groups)
	}
	metrics.WriteBackRecords.Add(float64(written))

	s.logger.Info("analysis completed",
		"run_id", runID,
		"mode", mode,
		"records", len(records),
		"clusters", len(results),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return results, nil
}

func (s *Service) group(records []*models.Feedback, p Params) ([]Group, error) {
	if p.ClusterByMake {
		return GroupByAttribute(records), nil
	}
	groups, err := s.engine.GroupByText(records, p.NClusters)
	if err != nil {
		return nil, fmt.Errorf("cluster by text: %w", err)
	}
	return groups, nil
}

// writeBack stores g's label on every member. With a nil shared transaction
// the group gets its own transaction, committed before returning.
func (s *Service) writeBack(ctx context.Context, shared store.Tx, g Group) error {
	tx := shared
	if tx == nil {
		var err error
		if tx, err = s.source.Begin(ctx); err != nil {
			return fmt.Errorf("begin write-back %s: %w", g.Label, err)
		}
	}
	for _, r := range g.Records {
		if err := tx.SetFaultCluster(ctx, r.ID, g.Label); err != nil {
			if shared == nil {
				_ = tx.Rollback(ctx)
			}
			return fmt.Errorf("write back %s: record %d: %w", g.Label, r.ID, err)
		}
	}
	if shared != nil {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit write-back %s: %w", g.Label, err)
	}
	labelGroups([]Group{g})
	return nil
}

func (s *Service) summarize(g Group, p Params) (models.AnalysisResult, error) {
	total := 0.0
	for _, r := range g.Records {
		total += sentiment.Score(r.Text)
	}

	est, err := s.estimator.Estimate(g.Records[0].Text, len(g.Records), p.Alpha, p.Cap)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("estimate cost %s: %w", g.Label, err)
	}

	n := min(maxExamples, len(g.Records))
	examples := make([]string, n)
	for i := 0; i < n; i++ {
		examples[i] = g.Records[i].Text
	}

	return models.AnalysisResult{
		Cluster:       g.Label,
		Count:         len(g.Records),
		AvgSentiment:  total / float64(len(g.Records)),
		SuggestedCost: est.Cost,
		Capped:        est.Capped,
		Examples:      examples,
	}, nil
}

func labelGroups(groups []Group) {
	for _, g := range groups {
		for _, r := range g.Records {
			label := g.Label
			r.FaultCluster = &label
		}
	}
}
