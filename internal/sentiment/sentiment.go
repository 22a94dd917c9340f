// Package sentiment scores complaint text with a coarse keyword heuristic.
//
// Score returns exactly one of Positive, Negative or Neutral. Any positive
// keyword wins over negative ones, so "good but noisy" scores Positive.
// Matching is a case-insensitive substring test, not a word match.
package sentiment

import "strings"

const (
	Positive = 0.9
	Negative = -0.9
	Neutral  = 0.0
)

var positiveKeywords = []string{"good", "great", "excellent", "perfect", "fine", "smooth", "works"}

var negativeKeywords = []string{
	"bad", "terrible", "broken", "noisy", "squeak", "squeaking", "rattle",
	"knock", "not working", "fail", "stalls", "grind",
}

// Score returns the sentiment score of text.
func Score(text string) float64 {
	lower := strings.ToLower(text)
	if containsAny(lower, positiveKeywords) {
		return Positive
	}
	if containsAny(lower, negativeKeywords) {
		return Negative
	}
	return Neutral
}

// Label names the polarity of a score produced by Score.
func Label(score float64) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
