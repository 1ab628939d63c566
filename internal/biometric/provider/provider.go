// Package provider is the narrow contract to the external biometric capability:
// media in, liveness / age / embedding out. Everything behind Analyzer is
// replaceable; callers never see vendor types.
package provider

import (
	"context"
	"time"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is one capture handed to the capability.
type Media struct {
	Kind        MediaKind
	ContentType string
	Name        string
	Data        []byte
}

// Analysis is the capability output for one capture.
type Analysis struct {
	ProviderID    string
	LivenessScore float64
	AgeEstimate   float64
	Embedding     []float64
	Confidence    float64
	// SyntheticScore is the likelihood the capture is AI-generated, when the
	// capability exposes a detector. Nil means not reported.
	SyntheticScore *float64
	ModelVersion   string
	AnalyzedAt     time.Time
}

// Analyzer is implemented by every biometric capability adapter.
type Analyzer interface {
	Analyze(ctx context.Context, media Media) (*Analysis, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, media Media) (*Analysis, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, media Media) (*Analysis, error) {
	return f(ctx, media)
}
