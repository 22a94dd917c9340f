package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/autotriage/pkg/models"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the Store interface on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at path. The schema must already be
// migrated; Open does both.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000"
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFeedback(ctx context.Context, in models.NewFeedback) (*models.Feedback, error) {
	in = in.Trimmed()
	f := &models.Feedback{
		Text:      in.Text,
		Sentiment: in.Sentiment,
		CarMake:   in.CarMake,
		CarModel:  in.CarModel,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedbacks (text, sentiment, car_make, car_model, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.Text, f.Sentiment, f.CarMake, f.CarModel, f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) GetFeedback(ctx context.Context, id int64) (*models.Feedback, error) {
	f, err := scanFeedback(s.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, filter FeedbackFilter) ([]*models.Feedback, int, error) {
	filter = filter.normalized()

	conditions := []string{"1 = 1"}
	var args []any
	if filter.CarMake != "" {
		conditions = append(conditions, "car_make = ?")
		args = append(args, filter.CarMake)
	}
	if filter.FaultCluster != "" {
		conditions = append(conditions, "fault_cluster = ?")
		args = append(args, filter.FaultCluster)
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedbacks WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items, err := collectSQLRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *SQLiteStore) ListAllFeedback(ctx context.Context) ([]*models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+feedbackColumns+` FROM feedbacks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all feedback: %w", err)
	}
	defer rows.Close()
	return collectSQLRows(rows)
}

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) SetFaultCluster(ctx context.Context, id int64, label string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE feedbacks SET fault_cluster = ? WHERE id = ?`, label, id)
	if err != nil {
		return fmt.Errorf("set fault cluster: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set fault cluster: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func collectSQLRows(rows *sql.Rows) ([]*models.Feedback, error) {
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
