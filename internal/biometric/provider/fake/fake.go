// Package fake is a deterministic, scriptable Analyzer for tests and local runs.
package fake

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"faceguard/internal/biometric/provider"
)

const ProviderID = "fake"

// Result is the scripted response for one capture.
type Result struct {
	Analysis *provider.Analysis
	Err      error
	// Delay blocks the call, honoring context cancellation.
	Delay time.Duration
}

// Provider answers by the capture bytes: On(data, result) scripts a response,
// everything else gets the default.
type Provider struct {
	mu       sync.Mutex
	scripted map[string]Result
	fallback Result
	calls    atomic.Int64
}

func New() *Provider {
	return &Provider{scripted: make(map[string]Result)}
}

func (p *Provider) On(data string, result Result) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripted[data] = result
	return p
}

func (p *Provider) Default(result Result) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = result
	return p
}

// Calls returns how many times Analyze was invoked.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

func (p *Provider) Analyze(ctx context.Context, media provider.Media) (*provider.Analysis, error) {
	p.calls.Add(1)

	p.mu.Lock()
	result, ok := p.scripted[string(media.Data)]
	if !ok {
		result = p.fallback
	}
	p.mu.Unlock()

	if result.Delay > 0 {
		timer := time.NewTimer(result.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if result.Err != nil {
		return nil, result.Err
	}
	if result.Analysis == nil {
		return nil, provider.NewProviderError(provider.ErrorUnavailable, ProviderID, "no scripted result", nil)
	}
	out := *result.Analysis
	out.Embedding = append([]float64(nil), result.Analysis.Embedding...)
	if out.ProviderID == "" {
		out.ProviderID = ProviderID
	}
	return &out, nil
}

// Embedding returns a deterministic unit vector for seed.
func Embedding(seed int64, dim int) []float64 {
	r := rand.New(rand.NewSource(seed))
	v := make([]float64, dim)
	for i := range v {
		v[i] = r.NormFloat64()
	}
	return normalize(v)
}

// Near returns a unit vector whose cosine similarity with base is sim.
func Near(base []float64, sim float64) []float64 {
	b := normalize(append([]float64(nil), base...))

	// Pick the axis least aligned with b and orthogonalize it.
	k := 0
	for i := range b {
		if math.Abs(b[i]) < math.Abs(b[k]) {
			k = i
		}
	}
	o := make([]float64, len(b))
	o[k] = 1
	dot := b[k]
	for i := range o {
		o[i] -= dot * b[i]
	}
	o = normalize(o)

	s := math.Sqrt(math.Max(0, 1-sim*sim))
	out := make([]float64, len(b))
	for i := range out {
		out[i] = sim*b[i] + s*o[i]
	}
	return out
}

// Analysis builds a passing analysis around an embedding.
func Analysis(embedding []float64, liveness, age float64) *provider.Analysis {
	return &provider.Analysis{
		ProviderID:    ProviderID,
		LivenessScore: liveness,
		AgeEstimate:   age,
		Embedding:     embedding,
		Confidence:    0.95,
		ModelVersion:  "fake-1",
	}
}

func normalize(v []float64) []float64 {
	var n float64
	for _, x := range v {
		n += x * x
	}
	n = math.Sqrt(n)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] /= n
	}
	return v
}
