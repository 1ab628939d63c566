// Package contract is a reusable test suite every Analyzer implementation runs.
package contract

import (
	"context"
	"testing"

	"faceguard/internal/biometric/provider"
)

// ContractTest defines a capture that must produce a contract-valid analysis.
type ContractTest struct {
	Name         string
	Media        provider.Media
	ValidateFunc func(a *provider.Analysis) error
}

// ErrorContractTest validates that provider errors follow the taxonomy
type ErrorContractTest struct {
	Name          string
	Media         provider.Media
	ExpectedError provider.ErrorCategory
}

// ContractSuite is a collection of contract tests for one Analyzer.
type ContractSuite struct {
	ProviderID   string
	EmbeddingDim int
	Analyzer     provider.Analyzer
	Tests        []ContractTest
	ErrorTests   []ErrorContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			analysis, err := s.Analyzer.Analyze(context.Background(), test.Media)
			if err != nil {
				t.Fatalf("provider analyze failed: %v", err)
			}

			if err := provider.Validate(analysis, s.EmbeddingDim); err != nil {
				t.Errorf("output contract violated: %v", err)
			}

			if analysis.ProviderID != "" && analysis.ProviderID != s.ProviderID {
				t.Errorf("expected provider ID %s, got %s", s.ProviderID, analysis.ProviderID)
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(analysis); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}

	for _, test := range s.ErrorTests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := s.Analyzer.Analyze(context.Background(), test.Media)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if category := provider.GetCategory(err); category != test.ExpectedError {
				t.Errorf("expected error category %s, got %s", test.ExpectedError, category)
			}
			wantRetry := provider.NewProviderError(test.ExpectedError, "", "", nil).Retryable
			if provider.IsRetryable(err) != wantRetry {
				t.Errorf("expected retryable=%v, got %v", wantRetry, provider.IsRetryable(err))
			}
		})
	}
}
