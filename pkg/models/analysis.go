package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AnalysisModeByFault = "by_fault"
	AnalysisModeByMake  = "by_make"
)

// AnalysisResult summarises one cluster of feedback from a single analysis run.
type AnalysisResult struct {
	Cluster       string   `json:"cluster"`
	Count         int      `json:"count"`
	AvgSentiment  float64  `json:"avg_sentiment"`
	SuggestedCost float64  `json:"suggested_cost"`
	Capped        bool     `json:"capped"`
	Examples      []string `json:"examples"`
}

// AnalysisReport is the envelope a caller keeps around after a run.
// The analysis pipeline itself never persists it.
type AnalysisReport struct {
	RunID     uuid.UUID        `json:"run_id"`
	Mode      string           `json:"mode"`
	Results   []AnalysisResult `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
}
