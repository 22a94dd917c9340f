package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autotriage/internal/analysis"
	"github.com/kiranshivaraju/autotriage/internal/cache"
	"github.com/kiranshivaraju/autotriage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock Analyzer ---

type mockAnalyzer struct {
	got  analysis.Params
	err  error
	hook func()
}

func (m *mockAnalyzer) Report(_ context.Context, p analysis.Params) (*models.AnalysisReport, error) {
	m.got = p
	if m.hook != nil {
		m.hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.AnalysisReport{
		RunID:     uuid.New(),
		Mode:      p.Mode(),
		Results:   []models.AnalysisResult{{Cluster: "cluster_0", Count: 2, Examples: []string{"a", "b"}}},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func analyzeCfg() AnalyzeConfig {
	return AnalyzeConfig{Defaults: analysis.DefaultParams(), LockTTL: time.Minute}
}

func postAnalyze(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body)))
	return rec
}

func TestAnalyze_Defaults(t *testing.T) {
	svc := &mockAnalyzer{}
	c := newMockCache()
	rec := postAnalyze(NewAnalyzeHandler(svc, c, analyzeCfg()), "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, analysis.DefaultParams(), svc.got)

	var report models.AnalysisReport
	decodeData(t, rec, &report)
	assert.Equal(t, models.AnalysisModeByFault, report.Mode)
	require.Len(t, report.Results, 1)

	_, stored, _ := c.Get(context.Background(), cache.LatestReportKey)
	assert.True(t, stored, "report should be kept as the latest")
	assert.Empty(t, c.locked, "lock released after the run")
}

func TestAnalyze_Overrides(t *testing.T) {
	svc := &mockAnalyzer{}
	rec := postAnalyze(NewAnalyzeHandler(svc, newMockCache(), analyzeCfg()),
		`{"n_clusters":3,"cluster_by_make":true,"alpha":0,"cap":1.5,"atomic":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analysis.Params{NClusters: 3, ClusterByMake: true, Alpha: 0, Cap: 1.5, AtomicWriteBack: true}, svc.got)
}

func TestAnalyze_InvalidParams(t *testing.T) {
	svc := &mockAnalyzer{}
	for _, body := range []string{`{"n_clusters":0}`, `{"alpha":-1}`, `{"cap":-0.1}`} {
		rec := postAnalyze(NewAnalyzeHandler(svc, newMockCache(), analyzeCfg()), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	rec := postAnalyze(NewAnalyzeHandler(&mockAnalyzer{}, newMockCache(), analyzeCfg()), `{"n_clusters":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_LockHeld(t *testing.T) {
	c := newMockCache()
	release, err := c.AcquireLock(context.Background(), cache.AnalysisLockKey, time.Minute)
	require.NoError(t, err)
	defer release(context.Background())

	svc := &mockAnalyzer{}
	rec := postAnalyze(NewAnalyzeHandler(svc, c, analyzeCfg()), "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ANALYSIS_IN_PROGRESS", errorCode(t, rec))
	assert.Zero(t, svc.got.NClusters, "analyzer must not run")
}

func TestAnalyze_HoldsLockDuringRun(t *testing.T) {
	c := newMockCache()
	var heldDuringRun bool
	svc := &mockAnalyzer{hook: func() { heldDuringRun = c.locked[cache.AnalysisLockKey] }}

	postAnalyze(NewAnalyzeHandler(svc, c, analyzeCfg()), "")
	assert.True(t, heldDuringRun)
}

func TestAnalyze_Failure(t *testing.T) {
	c := newMockCache()
	svc := &mockAnalyzer{err: errors.New("list feedback: connection refused")}
	rec := postAnalyze(NewAnalyzeHandler(svc, c, analyzeCfg()), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, c.locked)
	_, stored, _ := c.Get(context.Background(), cache.LatestReportKey)
	assert.False(t, stored)
}

func TestAnalyze_LatestReportStoreErrorIgnored(t *testing.T) {
	c := newMockCache()
	c.setErr = errors.New("redis down")
	rec := postAnalyze(NewAnalyzeHandler(&mockAnalyzer{}, c, analyzeCfg()), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestReport(t *testing.T) {
	c := newMockCache()
	h := NewLatestReportHandler(c)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	postAnalyze(NewAnalyzeHandler(&mockAnalyzer{}, c, analyzeCfg()), `{"cluster_by_make":true}`)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.AnalysisReport
	decodeData(t, rec, &report)
	assert.Equal(t, models.AnalysisModeByMake, report.Mode)
}

func TestLatestReport_CacheError(t *testing.T) {
	c := newMockCache()
	c.getErr = errors.New("redis down")
	rec := httptest.NewRecorder()
	NewLatestReportHandler(c)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
