package handler

import "faceguard/internal/meeting/models"

// CheckInResponse never carries the similarity score.
type CheckInResponse struct {
	MeetingID  string `json:"meeting_id"`
	Result     string `json:"result"`
	ReasonCode string `json:"reason_code,omitempty"`
}

func FromRecord(rec *models.Record) *CheckInResponse {
	return &CheckInResponse{
		MeetingID:  rec.MeetingID.String(),
		Result:     string(rec.State),
		ReasonCode: string(rec.DenialReason),
	}
}
