package httpprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/biometric/provider"
	"faceguard/internal/biometric/provider/contract"
	"faceguard/internal/biometric/provider/fake"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("http-test", srv.URL, "key-123", time.Second)
}

func TestParseAnalyzeResponse(t *testing.T) {
	t.Run("parses valid response", func(t *testing.T) {
		body := []byte(`{
			"liveness_score": 0.97,
			"age_estimate": 31.5,
			"embedding": [0.6, 0.8],
			"confidence": 0.9,
			"synthetic_score": 0.1,
			"model_version": "m-2"
		}`)

		a, err := parseAnalyzeResponse("p", http.StatusOK, body)
		require.NoError(t, err)
		assert.Equal(t, 0.97, a.LivenessScore)
		assert.Equal(t, 31.5, a.AgeEstimate)
		assert.Equal(t, []float64{0.6, 0.8}, a.Embedding)
		require.NotNil(t, a.SyntheticScore)
		assert.Equal(t, 0.1, *a.SyntheticScore)
	})

	t.Run("missing fields is a contract mismatch", func(t *testing.T) {
		_, err := parseAnalyzeResponse("p", http.StatusOK, []byte(`{"embedding":[1]}`))
		assert.Equal(t, provider.ErrorContractMismatch, provider.GetCategory(err))
	})

	cases := []struct {
		status    int
		category  provider.ErrorCategory
		retryable bool
	}{
		{http.StatusBadRequest, provider.ErrorBadData, false},
		{http.StatusUnprocessableEntity, provider.ErrorBadData, false},
		{http.StatusUnauthorized, provider.ErrorAuthentication, false},
		{http.StatusTooManyRequests, provider.ErrorRateLimited, true},
		{http.StatusGatewayTimeout, provider.ErrorTimeout, true},
		{http.StatusServiceUnavailable, provider.ErrorUnavailable, true},
		{http.StatusTeapot, provider.ErrorContractMismatch, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			_, err := parseAnalyzeResponse("p", tc.status, []byte(`{"error":"x"}`))
			assert.Equal(t, tc.category, provider.GetCategory(err))
			assert.Equal(t, tc.retryable, provider.IsRetryable(err))
		})
	}
}

func TestClient_SendsMediaAndKey(t *testing.T) {
	emb := fake.Embedding(3, 4)
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, analyzePath, r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-API-Key"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image", req.MediaType)
		assert.Equal(t, "aGVsbG8=", req.Data)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"liveness_score": 0.9,
			"age_estimate":   25.0,
			"embedding":      emb,
			"confidence":     0.8,
		})
	})

	a, err := client.Analyze(context.Background(), provider.Media{Kind: provider.MediaImage, Data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, emb, a.Embedding)
	assert.Nil(t, a.SyntheticScore)
}

func TestClient_Timeout(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.Analyze(context.Background(), provider.Media{Kind: provider.MediaImage, Data: []byte("x")})
	assert.Equal(t, provider.ErrorTimeout, provider.GetCategory(err))
}

func TestClientContract(t *testing.T) {
	emb := fake.Embedding(9, 16)
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Data == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"empty"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"liveness_score": 0.93,
			"age_estimate":   40.0,
			"embedding":      emb,
			"confidence":     0.88,
		})
	})

	suite := &contract.ContractSuite{
		ProviderID:   "http-test",
		EmbeddingDim: 16,
		Analyzer:     client,
		Tests: []contract.ContractTest{
			{Name: "analyzes an image", Media: provider.Media{Kind: provider.MediaImage, Data: []byte("img")}},
			{Name: "analyzes a video", Media: provider.Media{Kind: provider.MediaVideo, Data: []byte("vid")}},
		},
		ErrorTests: []contract.ErrorContractTest{
			{Name: "empty capture is bad data", Media: provider.Media{Kind: provider.MediaImage}, ExpectedError: provider.ErrorBadData},
		},
	}
	suite.Run(t)
}
