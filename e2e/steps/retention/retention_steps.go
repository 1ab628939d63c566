package retention

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AdminJSON(method, path string, body any) error
	UserID(name string) (string, error)
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers legal-hold and sweep step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &retentionSteps{tc: tc}

	ctx.Step(`^an admin places a legal hold on "([^"]*)" because "([^"]*)"$`, steps.setHold)
	ctx.Step(`^an admin places a legal hold on "([^"]*)" without a reason$`, steps.setHoldWithoutReason)
	ctx.Step(`^an admin clears the legal hold on "([^"]*)"$`, steps.clearHold)
	ctx.Step(`^an admin looks up the legal hold on "([^"]*)"$`, steps.getHold)
	ctx.Step(`^an admin runs a retention sweep$`, steps.sweep)
	ctx.Step(`^the sweep report should have totals$`, steps.sweepHasTotals)
}

type retentionSteps struct {
	tc TestContext
}

func (s *retentionSteps) holdPath(user string) (string, error) {
	userID, err := s.tc.UserID(user)
	if err != nil {
		return "", err
	}
	return "/admin/users/" + userID + "/legal-hold", nil
}

func (s *retentionSteps) setHold(ctx context.Context, user, reason string) error {
	path, err := s.holdPath(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodPut, path, map[string]string{"reason": reason})
}

func (s *retentionSteps) setHoldWithoutReason(ctx context.Context, user string) error {
	path, err := s.holdPath(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodPut, path, map[string]string{"reason": "  "})
}

func (s *retentionSteps) clearHold(ctx context.Context, user string) error {
	path, err := s.holdPath(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodDelete, path+"?reason=case+closed", nil)
}

func (s *retentionSteps) getHold(ctx context.Context, user string) error {
	path, err := s.holdPath(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodGet, path, nil)
}

func (s *retentionSteps) sweep(ctx context.Context) error {
	return s.tc.AdminJSON(http.MethodPost, "/admin/retention/sweep", nil)
}

func (s *retentionSteps) sweepHasTotals(ctx context.Context) error {
	v, err := s.tc.GetResponseField("totals")
	if err != nil {
		return err
	}
	if _, ok := v.(map[string]any); !ok {
		return fmt.Errorf("totals is not an object: %v", v)
	}
	return nil
}
