package handler

import (
	"time"

	"faceguard/internal/review/models"
)

type ScoresResponse struct {
	Liveness      float64   `json:"liveness"`
	Age           float64   `json:"age"`
	PhotoMatches  []float64 `json:"photo_matches"`
	AILikelihoods []float64 `json:"ai_likelihoods"`
	PairwiseMin   float64   `json:"pairwise_min"`
	AgeSpread     float64   `json:"age_spread"`
	MinConfidence float64   `json:"min_confidence"`
	EvasionMatch  float64   `json:"evasion_match"`
}

// EntryResponse is what a reviewer sees. Embeddings are never exposed.
type EntryResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	AttemptID   string         `json:"attempt_id"`
	Status      string         `json:"status"`
	FlagReasons []string       `json:"flag_reasons"`
	Priority    int            `json:"priority"`
	Scores      ScoresResponse `json:"scores"`
	ReviewedBy  string         `json:"reviewed_by,omitempty"`
	ReviewNotes string         `json:"review_notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
}

type ListResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Count   int              `json:"count"`
}

func FromEntry(e *models.Entry) *EntryResponse {
	flags := make([]string, 0, len(e.FlagReasons))
	for _, f := range e.FlagReasons {
		flags = append(flags, string(f))
	}
	return &EntryResponse{
		ID:          e.ID.String(),
		UserID:      e.UserID.String(),
		AttemptID:   e.AttemptID.String(),
		Status:      string(e.Status),
		FlagReasons: flags,
		Priority:    e.Priority,
		Scores: ScoresResponse{
			Liveness:      e.Scores.Liveness,
			Age:           e.Scores.Age,
			PhotoMatches:  e.Scores.PhotoMatches,
			AILikelihoods: e.Scores.AILikelihoods,
			PairwiseMin:   e.Scores.PairwiseMin,
			AgeSpread:     e.Scores.AgeSpread,
			MinConfidence: e.Scores.MinConfidence,
			EvasionMatch:  e.Scores.EvasionMatch,
		},
		ReviewedBy:  e.ReviewedBy,
		ReviewNotes: e.ReviewNotes,
		CreatedAt:   e.CreatedAt,
		ReviewedAt:  e.ReviewedAt,
	}
}

func FromEntries(entries []*models.Entry) *ListResponse {
	resp := &ListResponse{Entries: make([]*EntryResponse, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, FromEntry(e))
	}
	return resp
}
