package retrieval

import (
	"math"
	"testing"
)

// TestWeightsSumToOne is the spec §8 invariant: every query type's
// weight vector sums to 1.0.
func TestWeightsSumToOne(t *testing.T) {
	for _, qt := range []QueryType{TypeFactual, TypeConceptual, TypeTemporal, TypeGoalProgress, TypeExploratory, TypeEmotional} {
		sum := WeightsFor(qt).Sum()
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("weights for %v sum to %v, want 1.0", qt, sum)
		}
	}
}

func TestClassifyOrder(t *testing.T) {
	cases := []struct {
		query string
		want  QueryType
	}{
		{"how am i feeling today", TypeEmotional},
		{"how is my goal progress going", TypeGoalProgress},
		{"what happened recently", TypeTemporal},
		{"what is my mom's name", TypeFactual},
		{"why does this algorithm work", TypeConceptual},
		{"tell me something interesting", TypeExploratory},
	}
	for _, c := range cases {
		if got := Classify(c.query); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}
