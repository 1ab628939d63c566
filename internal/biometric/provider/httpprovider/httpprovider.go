// Package httpprovider talks JSON over HTTP to the external biometric capability.
package httpprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"faceguard/internal/biometric/provider"
)

const (
	analyzePath     = "/v1/analyze"
	maxResponseSize = 1 << 20
)

type analyzeRequest struct {
	MediaType   string `json:"media_type"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data"`
}

type analyzeResponse struct {
	LivenessScore  *float64  `json:"liveness_score"`
	AgeEstimate    *float64  `json:"age_estimate"`
	Embedding      []float64 `json:"embedding"`
	Confidence     *float64  `json:"confidence"`
	SyntheticScore *float64  `json:"synthetic_score,omitempty"`
	ModelVersion   string    `json:"model_version"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client is an Analyzer backed by the capability's HTTP API.
type Client struct {
	id         string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(id, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		id:         id,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Analyze(ctx context.Context, media provider.Media) (*provider.Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		MediaType:   string(media.Kind),
		ContentType: media.ContentType,
		Data:        base64.StdEncoding.EncodeToString(media.Data),
	})
	if err != nil {
		return nil, provider.NewProviderError(provider.ErrorInternal, c.id, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewProviderError(provider.ErrorInternal, c.id, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, provider.NewProviderError(provider.ErrorTimeout, c.id, "request timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, provider.NewProviderError(provider.ErrorUnavailable, c.id, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, provider.NewProviderError(provider.ErrorUnavailable, c.id, "read response", err)
	}
	return parseAnalyzeResponse(c.id, resp.StatusCode, respBody)
}

func parseAnalyzeResponse(providerID string, status int, body []byte) (*provider.Analysis, error) {
	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return nil, provider.NewProviderError(provider.ErrorBadData, providerID, errorMessage(body, "capture rejected"), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, provider.NewProviderError(provider.ErrorAuthentication, providerID, "authentication failed", nil)
	case status == http.StatusTooManyRequests:
		return nil, provider.NewProviderError(provider.ErrorRateLimited, providerID, "rate limited", nil)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return nil, provider.NewProviderError(provider.ErrorTimeout, providerID, "upstream timeout", nil)
	case status >= 500:
		return nil, provider.NewProviderError(provider.ErrorUnavailable, providerID, fmt.Sprintf("status %d", status), nil)
	default:
		return nil, provider.NewProviderError(provider.ErrorContractMismatch, providerID, fmt.Sprintf("unexpected status %d", status), nil)
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, provider.NewProviderError(provider.ErrorContractMismatch, providerID, "decode response", err)
	}
	if parsed.LivenessScore == nil || parsed.AgeEstimate == nil || parsed.Confidence == nil {
		return nil, provider.NewProviderError(provider.ErrorContractMismatch, providerID, "response missing required fields", nil)
	}

	return &provider.Analysis{
		ProviderID:     providerID,
		LivenessScore:  *parsed.LivenessScore,
		AgeEstimate:    *parsed.AgeEstimate,
		Embedding:      parsed.Embedding,
		Confidence:     *parsed.Confidence,
		SyntheticScore: parsed.SyntheticScore,
		ModelVersion:   parsed.ModelVersion,
	}, nil
}

func errorMessage(body []byte, fallback string) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
