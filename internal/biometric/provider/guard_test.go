package provider_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/biometric/provider"
	"faceguard/internal/biometric/provider/fake"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/circuit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okAnalysis() *provider.Analysis {
	return fake.Analysis(fake.Embedding(1, 8), 0.95, 30)
}

func TestGuard_PassesValidAnalysis(t *testing.T) {
	f := fake.New().Default(fake.Result{Analysis: okAnalysis()})
	g := provider.NewGuard(f, "fake", provider.WithEmbeddingDim(8), provider.WithLogger(discard))

	a, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "fake", a.ProviderID)
	assert.False(t, a.AnalyzedAt.IsZero())
}

func TestGuard_TimeoutIsRetryableProviderError(t *testing.T) {
	f := fake.New().Default(fake.Result{Analysis: okAnalysis(), Delay: time.Second})
	g := provider.NewGuard(f, "fake", provider.WithTimeout(20*time.Millisecond), provider.WithLogger(discard))

	_, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, provider.ErrorTimeout, provider.GetCategory(err))
	assert.True(t, provider.IsRetryable(err))
	assert.True(t, dErrors.HasCode(provider.ToDomainError(err), dErrors.CodeProviderTimeout))
}

func TestGuard_CallerCancellationIsNotAProviderFailure(t *testing.T) {
	f := fake.New().Default(fake.Result{Analysis: okAnalysis(), Delay: time.Second})
	breaker := circuit.New("fake", circuit.WithFailureThreshold(1))
	g := provider.NewGuard(f, "fake", provider.WithBreaker(breaker), provider.WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.Analyze(ctx, provider.Media{Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, provider.IsProviderError(err))
	assert.False(t, breaker.IsOpen())
}

func TestGuard_ContractViolation(t *testing.T) {
	cases := map[string]*provider.Analysis{
		"liveness above one": fake.Analysis(fake.Embedding(1, 8), 1.2, 30),
		"negative age":       fake.Analysis(fake.Embedding(1, 8), 0.9, -1),
		"wrong dimension":    fake.Analysis(fake.Embedding(1, 4), 0.9, 30),
		"zero embedding":     fake.Analysis(make([]float64, 8), 0.9, 30),
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			f := fake.New().Default(fake.Result{Analysis: a})
			g := provider.NewGuard(f, "fake", provider.WithEmbeddingDim(8), provider.WithLogger(discard))

			_, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
			assert.Equal(t, provider.ErrorContractMismatch, provider.GetCategory(err))
		})
	}
}

func TestGuard_CircuitOpensAndFastFails(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	breaker := circuit.New("fake",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(clock),
	)
	f := fake.New().Default(fake.Result{Err: errors.New("connection refused")})
	g := provider.NewGuard(f, "fake", provider.WithBreaker(breaker), provider.WithLogger(discard))

	for range 2 {
		_, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
		require.Equal(t, provider.ErrorUnavailable, provider.GetCategory(err))
	}
	require.True(t, breaker.IsOpen())

	_, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
	assert.Equal(t, provider.ErrorUnavailable, provider.GetCategory(err))
	assert.Equal(t, 2, f.Calls(), "open circuit must not reach the provider")
}

func TestGuard_BadDataDoesNotTripBreaker(t *testing.T) {
	breaker := circuit.New("fake", circuit.WithFailureThreshold(1))
	f := fake.New().Default(fake.Result{Err: provider.NewProviderError(provider.ErrorBadData, "fake", "no face", nil)})
	g := provider.NewGuard(f, "fake", provider.WithBreaker(breaker), provider.WithLogger(discard))

	_, err := g.Analyze(context.Background(), provider.Media{Data: []byte("x")})
	assert.Equal(t, provider.ErrorBadData, provider.GetCategory(err))
	assert.False(t, breaker.IsOpen())
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, provider.ToDomainError(nil))
	assert.ErrorIs(t, provider.ToDomainError(context.Canceled), context.Canceled)
	assert.True(t, dErrors.HasCode(
		provider.ToDomainError(provider.NewProviderError(provider.ErrorUnavailable, "p", "down", nil)),
		dErrors.CodeProviderUnavailable,
	))
	assert.True(t, dErrors.HasCode(
		provider.ToDomainError(provider.NewProviderError(provider.ErrorTimeout, "p", "slow", nil)),
		dErrors.CodeProviderTimeout,
	))
}
