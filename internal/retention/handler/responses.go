package handler

import (
	"time"

	"faceguard/internal/retention/models"
)

type LegalHoldResponse struct {
	UserID string    `json:"user_id"`
	Reason string    `json:"reason"`
	SetBy  string    `json:"set_by"`
	SetAt  time.Time `json:"set_at"`
}

func FromHold(h *models.LegalHold) LegalHoldResponse {
	return LegalHoldResponse{
		UserID: h.UserID.String(),
		Reason: h.Reason,
		SetBy:  h.SetBy,
		SetAt:  h.SetAt,
	}
}

type LegalHoldsResponse struct {
	Holds []LegalHoldResponse `json:"holds"`
}

func FromHolds(holds []models.LegalHold) LegalHoldsResponse {
	out := LegalHoldsResponse{Holds: make([]LegalHoldResponse, 0, len(holds))}
	for i := range holds {
		out.Holds = append(out.Holds, FromHold(&holds[i]))
	}
	return out
}

type SweepResponse struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Classes    []models.ClassReport `json:"classes"`
	Totals     models.ClassReport   `json:"totals"`
	Error      string               `json:"error,omitempty"`
}

func FromReport(r *models.SweepReport, err error) SweepResponse {
	totals := r.Totals()
	totals.Class = ""
	resp := SweepResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Classes:    r.Classes,
		Totals:     totals,
	}
	if resp.Classes == nil {
		resp.Classes = []models.ClassReport{}
	}
	if err != nil {
		resp.Error = "one or more classes failed"
	}
	return resp
}
