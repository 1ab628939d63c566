// Command biometric-provider serves a deterministic stand-in for the biometric
// analysis API on /v1/analyze, for local runs and end-to-end tests.
//
// Captures whose bytes start with "<identity>:" embed near the same vector,
// so "alice:selfie" matches "alice:photo-1". Markers in the payload steer the
// scores:
//
//	drift      lands in the review gray band against an undrifted capture
//	spoof      fails liveness
//	minor      estimates age 15
//	synthetic  looks AI generated
//	blurry     rejected as bad data
//	slow       stalls for 5s
//	outage     answers 503
package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"
)

type analyzeRequest struct {
	MediaType   string `json:"media_type"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type analyzeResponse struct {
	LivenessScore  float64   `json:"liveness_score"`
	AgeEstimate    float64   `json:"age_estimate"`
	Embedding      []float64 `json:"embedding"`
	Confidence     float64   `json:"confidence"`
	SyntheticScore *float64  `json:"synthetic_score,omitempty"`
	ModelVersion   string    `json:"model_version"`
}

type server struct {
	apiKey string
	dim    int
}

func main() {
	addr := envOr("MOCK_PROVIDER_ADDR", ":8082")
	dim, err := strconv.Atoi(envOr("BIOMETRIC_EMBEDDING_DIM", "128"))
	if err != nil || dim <= 0 {
		dim = 128
	}
	s := &server{apiKey: os.Getenv("BIOMETRIC_PROVIDER_API_KEY"), dim: dim}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/analyze", s.analyze)
	slog.Info("mock biometric provider listening", "addr", addr, "dim", dim)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "invalid JSON"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "bad_data", "message": "empty or undecodable capture"})
		return
	}

	switch {
	case bytes.Contains(data, []byte("outage")):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
		return
	case bytes.Contains(data, []byte("blurry")):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "bad_data", "message": "no face found"})
		return
	case bytes.Contains(data, []byte("slow")):
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
			return
		}
	}

	resp := analyzeResponse{
		LivenessScore: 0.97,
		AgeEstimate:   31,
		Confidence:    0.93,
		ModelVersion:  "mock-1",
		Embedding:     embed(data, s.dim),
	}
	if bytes.Contains(data, []byte("spoof")) {
		resp.LivenessScore = 0.2
	}
	if bytes.Contains(data, []byte("minor")) {
		resp.AgeEstimate = 15
	}
	if bytes.Contains(data, []byte("synthetic")) {
		v := 0.92
		resp.SyntheticScore = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// embed returns a unit vector seeded by the identity prefix, with a small
// per-capture perturbation so two captures of one identity are close but not
// identical.
func embed(data []byte, dim int) []float64 {
	identity, _, found := bytes.Cut(data, []byte(":"))
	if !found {
		identity = data
	}
	weight := 0.1
	if bytes.Contains(data, []byte("drift")) {
		weight = 0.6
	}
	base := stream(identity, dim)
	noise := stream(data, dim)
	out := make([]float64, dim)
	var norm float64
	for i := range out {
		out[i] = base[i] + weight*noise[i]
		norm += out[i] * out[i]
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

// stream expands seed into dim values in [-1, 1).
func stream(seed []byte, dim int) []float64 {
	out := make([]float64, 0, dim)
	block := sha256.Sum256(seed)
	for len(out) < dim {
		for i := 0; i+8 <= len(block) && len(out) < dim; i += 8 {
			u := binary.BigEndian.Uint64(block[i : i+8])
			out = append(out, float64(u)/float64(math.MaxUint64)*2-1)
		}
		block = sha256.Sum256(block[:])
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
