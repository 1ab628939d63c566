package evaluator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/biometric/provider/fake"
)

func TestCosineSimilarity_Properties(t *testing.T) {
	vectors := [][]float64{
		fake.Embedding(1, 128),
		fake.Embedding(2, 128),
		fake.Embedding(3, 128),
		{3, -4, 0, 1e-3, 7, 1, 2, 3},
		{-1e6, 2, 5e5, 0, 0, 0, 0, 1},
	}

	t.Run("reflexive", func(t *testing.T) {
		for _, v := range vectors {
			sim, err := CosineSimilarity(v, v)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, sim, 1e-12)
		}
	})

	t.Run("symmetric and bounded", func(t *testing.T) {
		for i := range vectors {
			for j := range vectors {
				if len(vectors[i]) != len(vectors[j]) {
					continue
				}
				ab, err := CosineSimilarity(vectors[i], vectors[j])
				require.NoError(t, err)
				ba, err := CosineSimilarity(vectors[j], vectors[i])
				require.NoError(t, err)

				assert.Equal(t, ab, ba)
				assert.GreaterOrEqual(t, ab, -1.0)
				assert.LessOrEqual(t, ab, 1.0)
			}
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		v := fake.Embedding(4, 16)
		neg := make([]float64, len(v))
		for i := range v {
			neg[i] = -v[i]
		}
		sim, err := CosineSimilarity(v, neg)
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sim, 1e-12)
	})

	t.Run("scale invariant", func(t *testing.T) {
		v := fake.Embedding(5, 16)
		scaled := make([]float64, len(v))
		for i := range v {
			scaled[i] = v[i] * 1000
		}
		sim, err := CosineSimilarity(v, scaled)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-12)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = CosineSimilarity([]float64{0, 0}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrZeroVector)

		_, err = CosineSimilarity(nil, nil)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestPairwiseConsistency(t *testing.T) {
	base := fake.Embedding(1, 32)

	single, err := PairwiseConsistency([][]float64{base})
	require.NoError(t, err)
	assert.Equal(t, 1.0, single)

	lowest, err := PairwiseConsistency([][]float64{base, fake.Near(base, 0.9), fake.Near(base, 0.4)})
	require.NoError(t, err)
	assert.Less(t, lowest, 0.5)
}

func TestAILikelihood(t *testing.T) {
	score := 0.3
	assert.Equal(t, 0.0, AILikelihood(nil, 0.9, 0.995))
	assert.Equal(t, 0.3, AILikelihood(&score, 0.9, 0.995))
	assert.Equal(t, 1.0, AILikelihood(&score, 0.999, 0.995), "near-duplicate of the selfie")
}

func TestAgeSpread(t *testing.T) {
	assert.Equal(t, 0.0, AgeSpread())
	assert.Equal(t, 0.0, AgeSpread(30))
	assert.InDelta(t, 17.5, AgeSpread(22.5, 40, 30), 1e-9)
	assert.False(t, math.IsNaN(AgeSpread(1, 2)))
}
