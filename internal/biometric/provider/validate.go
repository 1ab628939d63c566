package provider

import (
	"fmt"
	"math"
)

// maxAge bounds a plausible age estimate.
const maxAge = 130.0

// Validate checks an analysis against the output contract. dim <= 0 skips the
// embedding dimension check.
func Validate(a *Analysis, dim int) error {
	if a == nil {
		return fmt.Errorf("empty analysis")
	}
	if !unit(a.LivenessScore) {
		return fmt.Errorf("liveness score %v out of range [0,1]", a.LivenessScore)
	}
	if !unit(a.Confidence) {
		return fmt.Errorf("confidence %v out of range [0,1]", a.Confidence)
	}
	if math.IsNaN(a.AgeEstimate) || a.AgeEstimate < 0 || a.AgeEstimate > maxAge {
		return fmt.Errorf("age estimate %v out of range", a.AgeEstimate)
	}
	if a.SyntheticScore != nil && !unit(*a.SyntheticScore) {
		return fmt.Errorf("synthetic score %v out of range [0,1]", *a.SyntheticScore)
	}
	if len(a.Embedding) == 0 {
		return fmt.Errorf("embedding is empty")
	}
	if dim > 0 && len(a.Embedding) != dim {
		return fmt.Errorf("embedding dimension %d, expected %d", len(a.Embedding), dim)
	}
	var norm float64
	for _, v := range a.Embedding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("embedding contains non-finite values")
		}
		norm += v * v
	}
	if norm == 0 {
		return fmt.Errorf("embedding is the zero vector")
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
