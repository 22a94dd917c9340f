package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/autotriage/internal/metrics"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/kiranshivaraju/autotriage/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct {
	created   []models.NewFeedback
	createErr error
	listErr   error
}

func (r *mockRepo) CreateFeedback(_ context.Context, in models.NewFeedback) (*models.Feedback, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, in)
	return &models.Feedback{
		ID:        int64(len(r.created)),
		Text:      in.Text,
		Sentiment: in.Sentiment,
		CarMake:   in.CarMake,
		CarModel:  in.CarModel,
		CreatedAt: time.Now(),
	}, nil
}

func (r *mockRepo) GetFeedback(_ context.Context, id int64) (*models.Feedback, error) {
	if id > int64(len(r.created)) {
		return nil, store.ErrNotFound
	}
	return &models.Feedback{ID: id, Text: r.created[id-1].Text}, nil
}

func (r *mockRepo) ListFeedback(_ context.Context, _ store.FeedbackFilter) ([]*models.Feedback, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	return []*models.Feedback{}, 0, nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    models.NewFeedback
		field string
	}{
		{"empty text", models.NewFeedback{Text: "   ", CarMake: "Kia", CarModel: "Rio"}, "text"},
		{"long text", models.NewFeedback{Text: strings.Repeat("x", MaxTextLength+1), CarMake: "Kia", CarModel: "Rio"}, "text"},
		{"empty make", models.NewFeedback{Text: "noisy", CarMake: "", CarModel: "Rio"}, "car_make"},
		{"empty model", models.NewFeedback{Text: "noisy", CarMake: "Kia", CarModel: "\t"}, "car_model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.in)
			require.ErrorIs(t, err, ErrInvalidFeedback)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	out, err := Validate(models.NewFeedback{Text: strings.Repeat("x", MaxTextLength), CarMake: " Kia ", CarModel: "Rio"})
	require.NoError(t, err)
	assert.Equal(t, "Kia", out.CarMake)
}

func TestCreate_LabelsSentiment(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil)
	before := testutil.ToFloat64(metrics.FeedbackCreated)

	f, err := svc.Create(context.Background(), models.NewFeedback{
		Text: " engine knock at idle ", CarMake: "Ford", CarModel: "Focus",
	})
	require.NoError(t, err)
	assert.Equal(t, "engine knock at idle", f.Text)
	require.NotNil(t, f.Sentiment)
	assert.Equal(t, "negative", *f.Sentiment)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FeedbackCreated))

	f, err = svc.Create(context.Background(), models.NewFeedback{
		Text: "ride is smooth", CarMake: "Ford", CarModel: "Focus",
	})
	require.NoError(t, err)
	assert.Equal(t, "positive", *f.Sentiment)
}

func TestCreate_InvalidDoesNotStore(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo, nil).Create(context.Background(), models.NewFeedback{CarMake: "Kia", CarModel: "Rio"})
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	assert.Empty(t, repo.created)
}

func TestCreate_StoreError(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("disk full")}
	_, err := NewService(repo, nil).Create(context.Background(), models.NewFeedback{
		Text: "rattle", CarMake: "Kia", CarModel: "Rio",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save feedback: disk full")
}

func TestGetAndList(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil)

	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	repo.listErr = errors.New("timeout")
	_, _, err = svc.List(context.Background(), store.FeedbackFilter{})
	assert.ErrorContains(t, err, "list feedback: timeout")
}
