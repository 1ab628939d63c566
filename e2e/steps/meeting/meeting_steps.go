package meeting

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"faceguard/e2e/steps/common"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AdminJSON(method, path string, body any) error
	Multipart(path string, fields map[string]string, parts []common.Part) error
	UserID(name string) (string, error)
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers review-queue and meeting check-in step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &meetingSteps{tc: tc}

	// Review queue
	ctx.Step(`^the review queue should hold an entry for "([^"]*)" flagged "([^"]*)"$`, steps.queueHoldsEntry)
	ctx.Step(`^an admin (approves|rejects) that review entry$`, steps.decideEntry)

	// Meeting check-in
	ctx.Step(`^I check in to a new meeting as "([^"]*)"$`, steps.checkIn)
	ctx.Step(`^I check in to a new meeting as "([^"]*)" marked "([^"]*)"$`, steps.checkInMarked)
	ctx.Step(`^I check in to the same meeting again as "([^"]*)"$`, steps.checkInAgain)
}

type meetingSteps struct {
	tc        TestContext
	entryID   string
	meetingID string
}

func (s *meetingSteps) queueHoldsEntry(ctx context.Context, user, flag string) error {
	userID, err := s.tc.UserID(user)
	if err != nil {
		return err
	}
	if err := s.tc.AdminJSON(http.MethodGet, "/admin/reviews", nil); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("entries")
	if err != nil {
		return err
	}
	entries, _ := v.([]any)
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok || entry["user_id"] != userID {
			continue
		}
		flags, _ := entry["flag_reasons"].([]any)
		for _, f := range flags {
			if f == flag {
				s.entryID = fmt.Sprint(entry["id"])
				return nil
			}
		}
		return fmt.Errorf("entry for %s is not flagged %s: %v", user, flag, flags)
	}
	return fmt.Errorf("no pending review entry for %s", user)
}

func (s *meetingSteps) decideEntry(ctx context.Context, action string) error {
	if s.entryID == "" {
		return fmt.Errorf("no review entry selected")
	}
	verb := "approve"
	if action == "rejects" {
		verb = "reject"
	}
	return s.tc.AdminJSON(http.MethodPost, "/admin/reviews/"+s.entryID+"/"+verb, map[string]string{
		"notes": "checked by e2e",
	})
}

func (s *meetingSteps) checkIn(ctx context.Context, identity string) error {
	return s.checkInMarked(ctx, identity, "")
}

func (s *meetingSteps) checkInMarked(ctx context.Context, identity, markers string) error {
	s.meetingID = uuid.NewString()
	return s.post(identity, markers)
}

func (s *meetingSteps) checkInAgain(ctx context.Context, identity string) error {
	if s.meetingID == "" {
		return fmt.Errorf("no meeting checked in yet")
	}
	return s.post(identity, "")
}

func (s *meetingSteps) post(identity, markers string) error {
	return s.tc.Multipart("/meetings/"+s.meetingID+"/check-in",
		map[string]string{"transaction_id": "pi_e2e_" + s.meetingID[:8]},
		[]common.Part{{
			Field:       "capture",
			Filename:    "capture.jpg",
			ContentType: "image/jpeg",
			Data:        common.Capture(identity, "meeting", common.Markers(markers)...),
		}},
	)
}
