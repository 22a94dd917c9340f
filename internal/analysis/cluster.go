package analysis

import (
	"fmt"

	"github.com/kiranshivaraju/autotriage/internal/nlp"
	"github.com/kiranshivaraju/autotriage/pkg/models"
)

// Group is a set of feedback records sharing a cluster label, in input order.
// Records are shared with the caller, not copied.
type Group struct {
	Label   string
	Records []*models.Feedback
}

// Engine groups feedback by vehicle attributes or by complaint text similarity.
type Engine struct {
	normalizer *nlp.Normalizer
	isStop     func(string) bool
	kmeans     KMeans
}

// NewEngine returns an Engine that normalizes text with m and clusters with km.
// km.K is ignored; the cluster count is passed per call.
func NewEngine(m *nlp.Model, km KMeans) *Engine {
	return &Engine{
		normalizer: nlp.NewNormalizer(m),
		isStop:     m.IsStopWord,
		kmeans:     km,
	}
}

// GroupByAttribute partitions records by exact (car_make, car_model).
// Groups appear in order of first occurrence and are labelled "{make}_{model}".
// Returns an empty slice for empty input (never nil).
func GroupByAttribute(records []*models.Feedback) []Group {
	groups := []Group{}
	index := make(map[[2]string]int)
	for _, r := range records {
		key := [2]string{r.CarMake, r.CarModel}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Label: fmt.Sprintf("%s_%s", r.CarMake, r.CarModel)})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// GroupByText clusters records by TF-IDF similarity of their normalized text
// into at most k groups labelled "cluster_{index}". k is reduced to the record
// count when fewer records exist. Groups appear in order of first occurrence.
// When no record has a usable term every record lands in cluster_0.
func (e *Engine) GroupByText(records []*models.Feedback, k int) ([]Group, error) {
	if len(records) == 0 {
		return []Group{}, nil
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: n_clusters must be at least 1, got %d", ErrInvalidParams, k)
	}
	if len(records) < k {
		k = max(1, len(records))
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	_, x := FitTFIDF(e.normalizer.NormalizeAll(texts), e.isStop)

	labels := make([]int, len(records))
	if x != nil {
		km := e.kmeans
		km.K = k
		res, err := km.Fit(x)
		if err != nil {
			return nil, fmt.Errorf("fit kmeans: %w", err)
		}
		labels = res.Labels
	}

	groups := []Group{}
	index := make(map[int]int)
	for i, r := range records {
		gi, ok := index[labels[i]]
		if !ok {
			gi = len(groups)
			index[labels[i]] = gi
			groups = append(groups, Group{Label: ClusterLabel(labels[i])})
		}
		groups[gi].Records = append(groups[gi].Records, r)
	}
	return groups, nil
}

// ClusterLabel renders a k-means cluster index as a stable label.
func ClusterLabel(index int) string {
	return fmt.Sprintf("cluster_%d", index)
}
