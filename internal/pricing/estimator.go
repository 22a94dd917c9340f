// Package pricing suggests repair costs that grow with complaint frequency.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidFrequency is returned when frequency is below 1.
var ErrInvalidFrequency = errors.New("frequency must be at least 1")

// BaseCost pairs a complaint keyword with the base repair cost it implies.
type BaseCost struct {
	Keyword string
	Cost    float64
}

// DefaultBaseCosts is scanned in order; the first keyword found in the text wins.
// "ac" is a plain substring match, so it also fires on words like "back".
var DefaultBaseCosts = []BaseCost{
	{Keyword: "brake", Cost: 200},
	{Keyword: "engine", Cost: 500},
	{Keyword: "ac", Cost: 300},
	{Keyword: "transmission", Cost: 700},
}

// DefaultCost applies when no keyword matches.
const DefaultCost = 250

// Estimate is the outcome of a cost calculation.
type Estimate struct {
	BaseCost float64
	Cost     float64
	Capped   bool
}

// Estimator computes frequency-adjusted repair costs from an ordered base-cost table.
type Estimator struct {
	table       []BaseCost
	defaultCost float64
}

// NewEstimator returns an Estimator over table. A nil table selects DefaultBaseCosts.
func NewEstimator(table []BaseCost, defaultCost float64) *Estimator {
	if table == nil {
		table = DefaultBaseCosts
	}
	return &Estimator{table: table, defaultCost: defaultCost}
}

// Default returns the Estimator with the built-in table.
func Default() *Estimator {
	return NewEstimator(DefaultBaseCosts, DefaultCost)
}

// BaseCostFor returns the base cost selected by the first matching keyword.
func (e *Estimator) BaseCostFor(text string) float64 {
	lower := strings.ToLower(text)
	for _, bc := range e.table {
		if strings.Contains(lower, bc.Keyword) {
			return bc.Cost
		}
	}
	return e.defaultCost
}

// Estimate computes base * (1 + alpha*ln(1+frequency)) bounded by base * (1+cap),
// rounded to cents. Capped reports whether the bound was binding.
func (e *Estimator) Estimate(text string, frequency int, alpha, cap float64) (Estimate, error) {
	if frequency < 1 {
		return Estimate{}, fmt.Errorf("%w: got %d", ErrInvalidFrequency, frequency)
	}
	base := e.BaseCostFor(text)
	adjusted := base * (1 + alpha*math.Log(1+float64(frequency)))
	maxAllowed := base * (1 + cap)

	est := Estimate{BaseCost: base, Cost: adjusted}
	if adjusted > maxAllowed {
		est.Cost = maxAllowed
		est.Capped = true
	}
	est.Cost = math.Round(est.Cost*100) / 100
	return est, nil
}
