// Package models contains shared data models used across the autotriage codebase.
package models

import (
	"strings"
	"time"
)

// Feedback is a stored customer complaint about a vehicle.
// FaultCluster is written only by a by-fault analysis run.
type Feedback struct {
	ID           int64     `db:"id"            json:"id"`
	Text         string    `db:"text"          json:"text"`
	Sentiment    *string   `db:"sentiment"     json:"sentiment,omitempty"`
	CarMake      string    `db:"car_make"      json:"car_make"`
	CarModel     string    `db:"car_model"     json:"car_model"`
	FaultCluster *string   `db:"fault_cluster" json:"fault_cluster,omitempty"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// NewFeedback is the creation payload for a Feedback record.
type NewFeedback struct {
	Text      string  `json:"text"`
	CarMake   string  `json:"car_make"`
	CarModel  string  `json:"car_model"`
	Sentiment *string `json:"-"`
}

// Trimmed returns n with surrounding whitespace removed from every field.
func (n NewFeedback) Trimmed() NewFeedback {
	n.Text = strings.TrimSpace(n.Text)
	n.CarMake = strings.TrimSpace(n.CarMake)
	n.CarModel = strings.TrimSpace(n.CarModel)
	return n
}
