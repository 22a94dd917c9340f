package sentiment

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		text     string
		expected float64
	}{
		{"", Neutral},
		{"Service was GREAT", Positive},
		{"brakes squeaking badly", Negative},
		{"good but noisy", Positive},
		{"AC not working", Negative},
		{"engine stalls at lights", Negative},
		{"car is blue", Neutral},
		{"it works now", Positive},
		{"transmission failure", Negative},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Score(tt.text); got != tt.expected {
				t.Errorf("Score(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestScore_OnlyKnownValues(t *testing.T) {
	for _, text := range []string{"x", "rattle rattle", "fine", "grind and smooth", "NOISY"} {
		got := Score(text)
		if got != Positive && got != Negative && got != Neutral {
			t.Errorf("Score(%q) = %v, not in the score set", text, got)
		}
	}
}

func TestLabel(t *testing.T) {
	if Label(Positive) != "positive" || Label(Negative) != "negative" || Label(Neutral) != "neutral" {
		t.Error("unexpected label mapping")
	}
}
