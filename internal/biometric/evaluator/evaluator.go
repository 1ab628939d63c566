// Package evaluator turns provider analyses into a verification verdict. It is
// pure: no I/O, no clock, no randomness.
package evaluator

import (
	"math"
	"slices"
)

type Outcome string

const (
	OutcomePass   Outcome = "PASS"
	OutcomeFail   Outcome = "FAIL"
	OutcomeReview Outcome = "REVIEW"
)

// FailReason names a deterministic policy failure.
type FailReason string

const (
	FailLiveness      FailReason = "LIVENESS_FAIL"
	FailAge           FailReason = "AGE_FAIL"
	FailPhotoMismatch FailReason = "PHOTO_MISMATCH"
	FailBanned        FailReason = "BANNED"
)

// FlagReason explains why a submission needs a human.
type FlagReason string

const (
	FlagGrayBand      FlagReason = "GRAY_BAND_MATCH"
	FlagAIGenerated   FlagReason = "AI_GENERATED_SUSPECTED"
	FlagInconsistent  FlagReason = "INCONSISTENT_PHOTOS"
	FlagLowConfidence FlagReason = "LOW_CONFIDENCE"
)

// Photo is one analyzed profile photo.
type Photo struct {
	Embedding      []float64
	AgeEstimate    float64
	Confidence     float64
	SyntheticScore *float64
}

// Input is everything the verdict depends on.
type Input struct {
	LivenessScore   float64
	AgeEstimate     float64
	Confidence      float64
	Selfie          []float64
	SelfieSynthetic *float64
	Photos          []Photo
	// BannedReferences are current embeddings of permanently banned accounts.
	BannedReferences [][]float64
}

// Scores is the snapshot stored with attempts and review entries.
type Scores struct {
	Liveness      float64   `json:"liveness"`
	Age           float64   `json:"age"`
	PhotoMatches  []float64 `json:"photo_matches"`
	AILikelihoods []float64 `json:"ai_likelihoods"`
	SelfieAI      float64   `json:"selfie_ai"`
	PairwiseMin   float64   `json:"pairwise_min"`
	AgeSpread     float64   `json:"age_spread"`
	MinConfidence float64   `json:"min_confidence"`
	EvasionMatch  float64   `json:"evasion_match"`
}

// MinMatch is the weakest selfie-to-photo similarity.
func (s Scores) MinMatch() float64 {
	if len(s.PhotoMatches) == 0 {
		return 0
	}
	return slices.Min(s.PhotoMatches)
}

// MaxAI is the strongest AI-generation signal.
func (s Scores) MaxAI() float64 {
	m := s.SelfieAI
	for _, v := range s.AILikelihoods {
		m = math.Max(m, v)
	}
	return m
}

type Evaluation struct {
	Outcome Outcome
	Reason  FailReason
	Flags   []FlagReason
	Scores  Scores
}

// Evaluate applies the policy in a fixed order: ban evasion, liveness, age,
// photo match, then the review flags.
func Evaluate(p Policy, in Input) (Evaluation, error) {
	if len(in.Photos) == 0 {
		return Evaluation{}, ErrNoPhotos
	}

	scores := Scores{
		Liveness:      in.LivenessScore,
		Age:           in.AgeEstimate,
		MinConfidence: in.Confidence,
	}
	if in.SelfieSynthetic != nil {
		scores.SelfieAI = *in.SelfieSynthetic
	}

	for _, ref := range in.BannedReferences {
		sim, err := CosineSimilarity(in.Selfie, ref)
		if err != nil {
			continue
		}
		scores.EvasionMatch = math.Max(scores.EvasionMatch, sim)
	}

	photoEmbeddings := make([][]float64, 0, len(in.Photos))
	ages := []float64{in.AgeEstimate}
	for _, photo := range in.Photos {
		sim, err := CosineSimilarity(in.Selfie, photo.Embedding)
		if err != nil {
			return Evaluation{}, err
		}
		scores.PhotoMatches = append(scores.PhotoMatches, sim)
		scores.AILikelihoods = append(scores.AILikelihoods, AILikelihood(photo.SyntheticScore, sim, p.DuplicateThreshold))
		scores.MinConfidence = math.Min(scores.MinConfidence, photo.Confidence)
		photoEmbeddings = append(photoEmbeddings, photo.Embedding)
		ages = append(ages, photo.AgeEstimate)
	}
	pairwise, err := PairwiseConsistency(photoEmbeddings)
	if err != nil {
		return Evaluation{}, err
	}
	scores.PairwiseMin = pairwise
	scores.AgeSpread = AgeSpread(ages...)

	fail := func(reason FailReason) (Evaluation, error) {
		return Evaluation{Outcome: OutcomeFail, Reason: reason, Scores: scores}, nil
	}

	if len(in.BannedReferences) > 0 && scores.EvasionMatch >= p.EvasionThreshold {
		return fail(FailBanned)
	}
	if in.LivenessScore < p.LivenessThreshold {
		return fail(FailLiveness)
	}
	if in.AgeEstimate < p.MinAge {
		return fail(FailAge)
	}
	if scores.MinMatch() < p.MatchLow {
		return fail(FailPhotoMismatch)
	}

	var flags []FlagReason
	if scores.MinMatch() < p.MatchHigh {
		flags = append(flags, FlagGrayBand)
	}
	if scores.MaxAI() > p.AIBound {
		if p.AIPolicy == AIPolicyFail {
			return fail(FailPhotoMismatch)
		}
		flags = append(flags, FlagAIGenerated)
	}
	if scores.AgeSpread > p.MaxAgeSpread || scores.PairwiseMin < p.PairwiseFloor {
		flags = append(flags, FlagInconsistent)
	}
	if scores.MinConfidence < p.MinConfidence {
		flags = append(flags, FlagLowConfidence)
	}

	if len(flags) > 0 {
		return Evaluation{Outcome: OutcomeReview, Flags: flags, Scores: scores}, nil
	}
	return Evaluation{Outcome: OutcomePass, Scores: scores}, nil
}

// PrioritySignals feed the review ordering.
type PrioritySignals struct {
	MinMatch     float64
	AILikelihood float64
	PriorFlags   int
	Flags        []FlagReason
}

// Priority maps risk to 0..100. A weaker match, a stronger AI signal and a
// history of earlier flags each raise it.
func Priority(p Policy, s PrioritySignals) int {
	score := 0.0

	band := p.MatchHigh - p.MatchLow
	if band > 0 {
		gap := (p.MatchHigh - s.MinMatch) / band
		score += 50 * math.Max(0, math.Min(1, gap))
	}
	score += 30 * math.Max(0, math.Min(1, s.AILikelihood))
	score += 5 * float64(min(s.PriorFlags, 2))
	if slices.Contains(s.Flags, FlagInconsistent) {
		score += 5
	}
	if slices.Contains(s.Flags, FlagLowConfidence) {
		score += 5
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}
