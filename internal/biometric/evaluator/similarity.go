package evaluator

import (
	"errors"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	ErrZeroVector        = errors.New("embedding has zero magnitude")
	ErrNoPhotos          = errors.New("at least one profile photo is required")
)

// CosineSimilarity returns the cosine of the angle between a and b, clamped to
// [-1, 1]. It is symmetric and CosineSimilarity(v, v) == 1 for any non-zero v.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim)), nil
}

// PairwiseConsistency returns the lowest similarity between any two profile
// photos. One photo is trivially consistent.
func PairwiseConsistency(photos [][]float64) (float64, error) {
	lowest := 1.0
	for i := 0; i < len(photos); i++ {
		for j := i + 1; j < len(photos); j++ {
			sim, err := CosineSimilarity(photos[i], photos[j])
			if err != nil {
				return 0, err
			}
			lowest = math.Min(lowest, sim)
		}
	}
	return lowest, nil
}

// AILikelihood combines the capability's synthetic-image score with a
// near-duplicate signal: a profile photo that is practically identical to the
// live selfie is treated as generated from it.
func AILikelihood(synthetic *float64, selfieSimilarity, duplicateThreshold float64) float64 {
	likelihood := 0.0
	if synthetic != nil {
		likelihood = *synthetic
	}
	if duplicateThreshold > 0 && selfieSimilarity >= duplicateThreshold {
		likelihood = 1.0
	}
	return likelihood
}

// AgeSpread is the difference between the oldest and youngest estimate.
func AgeSpread(ages ...float64) float64 {
	if len(ages) == 0 {
		return 0
	}
	lo, hi := ages[0], ages[0]
	for _, a := range ages[1:] {
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	return hi - lo
}
