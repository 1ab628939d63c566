package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/biometric/provider/fake"
	"faceguard/pkg/testutil"
)

const dim = 64

func photo(selfie []float64, sim float64) Photo {
	return Photo{Embedding: fake.Near(selfie, sim), AgeEstimate: 30, Confidence: 0.95}
}

func baseInput(matches ...float64) Input {
	selfie := fake.Embedding(42, dim)
	in := Input{
		LivenessScore: 0.95,
		AgeEstimate:   30,
		Confidence:    0.95,
		Selfie:        selfie,
	}
	for _, m := range matches {
		in.Photos = append(in.Photos, photo(selfie, m))
	}
	return in
}

func TestEvaluate_Pass(t *testing.T) {
	ev, err := Evaluate(DefaultPolicy(), baseInput(0.95, 0.93))
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, ev.Outcome)
	assert.Empty(t, ev.Flags)
	assert.Len(t, ev.Scores.PhotoMatches, 2)
}

func TestEvaluate_AgeBoundary(t *testing.T) {
	testutil.Given(t, "an otherwise passing submission", func(t *testing.T) {
		testutil.Then(t, "an age estimate of exactly 18.0 passes", func(t *testing.T) {
			in := baseInput(0.95)
			in.AgeEstimate = 18.0
			for i := range in.Photos {
				in.Photos[i].AgeEstimate = 18.0
			}
			ev, err := Evaluate(DefaultPolicy(), in)
			require.NoError(t, err)
			assert.Equal(t, OutcomePass, ev.Outcome)
		})

		testutil.Then(t, "17.999 fails with AGE_FAIL and is never reviewed", func(t *testing.T) {
			in := baseInput(0.80) // gray band would otherwise mean review
			in.AgeEstimate = 17.999
			ev, err := Evaluate(DefaultPolicy(), in)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFail, ev.Outcome)
			assert.Equal(t, FailAge, ev.Reason)
			assert.Empty(t, ev.Flags)
		})
	})
}

func TestEvaluate_OrderOfChecks(t *testing.T) {
	t.Run("liveness is checked before age and match", func(t *testing.T) {
		in := baseInput(0.1)
		in.LivenessScore = 0.84
		in.AgeEstimate = 12
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, FailLiveness, ev.Reason)
	})

	t.Run("liveness exactly at threshold passes", func(t *testing.T) {
		in := baseInput(0.95)
		in.LivenessScore = 0.85
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, OutcomePass, ev.Outcome)
	})

	t.Run("any photo below the low threshold is a mismatch", func(t *testing.T) {
		ev, err := Evaluate(DefaultPolicy(), baseInput(0.97, 0.70, 0.95))
		require.NoError(t, err)
		assert.Equal(t, OutcomeFail, ev.Outcome)
		assert.Equal(t, FailPhotoMismatch, ev.Reason)
	})

	t.Run("ban evasion wins over everything", func(t *testing.T) {
		in := baseInput(0.95)
		in.LivenessScore = 0.1
		in.BannedReferences = [][]float64{fake.Embedding(7, dim), fake.Near(in.Selfie, 0.96)}
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, FailBanned, ev.Reason)
		assert.InDelta(t, 0.96, ev.Scores.EvasionMatch, 1e-9)
	})

	t.Run("unrelated banned references do not matter", func(t *testing.T) {
		in := baseInput(0.95)
		in.BannedReferences = [][]float64{fake.Near(in.Selfie, 0.5)}
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, OutcomePass, ev.Outcome)
	})
}

func TestEvaluate_ReviewFlags(t *testing.T) {
	t.Run("gray band", func(t *testing.T) {
		ev, err := Evaluate(DefaultPolicy(), baseInput(0.95, 0.80))
		require.NoError(t, err)
		assert.Equal(t, OutcomeReview, ev.Outcome)
		assert.Equal(t, []FlagReason{FlagGrayBand}, ev.Flags)
	})

	t.Run("lower gray band edge is review not fail", func(t *testing.T) {
		ev, err := Evaluate(DefaultPolicy(), baseInput(0.7500001))
		require.NoError(t, err)
		assert.Equal(t, OutcomeReview, ev.Outcome)
	})

	t.Run("AI suspicion under review policy", func(t *testing.T) {
		in := baseInput(0.95)
		synthetic := 0.8
		in.Photos[0].SyntheticScore = &synthetic
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, OutcomeReview, ev.Outcome)
		assert.Contains(t, ev.Flags, FlagAIGenerated)
	})

	t.Run("AI suspicion under fail policy", func(t *testing.T) {
		in := baseInput(0.95)
		synthetic := 0.8
		in.SelfieSynthetic = &synthetic
		policy := DefaultPolicy()
		policy.AIPolicy = AIPolicyFail
		ev, err := Evaluate(policy, in)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFail, ev.Outcome)
		assert.Equal(t, FailPhotoMismatch, ev.Reason)
	})

	t.Run("photo identical to selfie counts as AI", func(t *testing.T) {
		in := baseInput(0.95)
		in.Photos = append(in.Photos, Photo{Embedding: in.Selfie, AgeEstimate: 30, Confidence: 0.9})
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Contains(t, ev.Flags, FlagAIGenerated)
	})

	t.Run("inconsistent ages", func(t *testing.T) {
		in := baseInput(0.95, 0.95)
		in.Photos[1].AgeEstimate = 55
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, []FlagReason{FlagInconsistent}, ev.Flags)
	})

	t.Run("low confidence", func(t *testing.T) {
		in := baseInput(0.95)
		in.Confidence = 0.4
		ev, err := Evaluate(DefaultPolicy(), in)
		require.NoError(t, err)
		assert.Equal(t, []FlagReason{FlagLowConfidence}, ev.Flags)
	})
}

func TestEvaluate_RequiresPhotos(t *testing.T) {
	_, err := Evaluate(DefaultPolicy(), baseInput())
	assert.ErrorIs(t, err, ErrNoPhotos)
}

func TestPriority(t *testing.T) {
	p := DefaultPolicy()

	weak := Priority(p, PrioritySignals{MinMatch: 0.76})
	strong := Priority(p, PrioritySignals{MinMatch: 0.89})
	assert.Greater(t, weak, strong, "lower match score ranks higher")

	withAI := Priority(p, PrioritySignals{MinMatch: 0.89, AILikelihood: 0.9})
	assert.Greater(t, withAI, strong)

	repeat := Priority(p, PrioritySignals{MinMatch: 0.89, PriorFlags: 2})
	assert.Greater(t, repeat, strong)

	worst := Priority(p, PrioritySignals{
		MinMatch:     0,
		AILikelihood: 1,
		PriorFlags:   10,
		Flags:        []FlagReason{FlagInconsistent, FlagLowConfidence},
	})
	assert.Equal(t, 100, worst)
	assert.Equal(t, 0, Priority(p, PrioritySignals{MinMatch: 0.99}))
}
