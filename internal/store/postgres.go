package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

const feedbackColumns = `id, text, sentiment, car_make, car_model, fault_cluster, created_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Feedback ---

func (s *PostgresStore) CreateFeedback(ctx context.Context, in models.NewFeedback) (*models.Feedback, error) {
	in = in.Trimmed()
	f := &models.Feedback{
		Text:      in.Text,
		Sentiment: in.Sentiment,
		CarMake:   in.CarMake,
		CarModel:  in.CarModel,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO feedbacks (text, sentiment, car_make, car_model)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		f.Text, f.Sentiment, f.CarMake, f.CarModel,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, id int64) (*models.Feedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, filter FeedbackFilter) ([]*models.Feedback, int, error) {
	filter = filter.normalized()

	// Build WHERE clause dynamically
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.CarMake != "" {
		conditions = append(conditions, fmt.Sprintf("car_make = $%d", argIdx))
		args = append(args, filter.CarMake)
		argIdx++
	}
	if filter.FaultCluster != "" {
		conditions = append(conditions, fmt.Sprintf("fault_cluster = $%d", argIdx))
		args = append(args, filter.FaultCluster)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feedbacks WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM feedbacks WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		feedbackColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items, err := collectFeedback(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PostgresStore) ListAllFeedback(ctx context.Context) ([]*models.Feedback, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedbacks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all feedback: %w", err)
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) SetFaultCluster(ctx context.Context, id int64, label string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE feedbacks SET fault_cluster = $1 WHERE id = $2`, label, id)
	if err != nil {
		return fmt.Errorf("set fault cluster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// --- Helpers ---

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*models.Feedback, error) {
	var f models.Feedback
	if err := row.Scan(&f.ID, &f.Text, &f.Sentiment, &f.CarMake, &f.CarModel, &f.FaultCluster, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFeedback(rows pgx.Rows) ([]*models.Feedback, error) {
	items := []*models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
