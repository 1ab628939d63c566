package verification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	"faceguard/e2e/steps/common"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	AdminJSON(method, path string, body any) error
	Multipart(path string, fields map[string]string, parts []common.Part) error
	UserID(name string) (string, error)
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers registration-verification step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	// Submissions
	ctx.Step(`^I submit a selfie of "([^"]*)" with (\d+) photos? of "([^"]*)"$`, steps.submit)
	ctx.Step(`^I submit a selfie of "([^"]*)" marked "([^"]*)" with (\d+) photos? of "([^"]*)"$`, steps.submitMarked)
	ctx.Step(`^I submit a selfie without photos$`, steps.submitWithoutPhotos)
	ctx.Step(`^I am verified as "([^"]*)"$`, steps.iAmVerifiedAs)

	// Status
	ctx.Step(`^I check my verification status$`, steps.checkStatus)
	ctx.Step(`^my verification status should be "([^"]*)"$`, steps.statusShouldBe)

	// Admin
	ctx.Step(`^an admin overrides "([^"]*)" to "([^"]*)" because "([^"]*)"$`, steps.adminOverride)
	ctx.Step(`^an admin lists the attempts of "([^"]*)"$`, steps.adminAttempts)
	ctx.Step(`^the attempt list should have (\d+) entr(?:y|ies)$`, steps.attemptCount)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) submit(ctx context.Context, selfieOf string, photos int, photosOf string) error {
	return s.submitMarked(ctx, selfieOf, "", photos, photosOf)
}

func (s *verificationSteps) submitMarked(ctx context.Context, selfieOf, markers string, photos int, photosOf string) error {
	parts := []common.Part{{
		Field:       "selfie",
		Filename:    "selfie.jpg",
		ContentType: "image/jpeg",
		Data:        common.Capture(selfieOf, "selfie", common.Markers(markers)...),
	}}
	for i := range photos {
		name := fmt.Sprintf("photo-%d", i+1)
		parts = append(parts, common.Part{
			Field:       "photos",
			Filename:    name + ".jpg",
			ContentType: "image/jpeg",
			Data:        common.Capture(photosOf, name),
		})
	}
	return s.tc.Multipart("/verification/submissions", nil, parts)
}

func (s *verificationSteps) submitWithoutPhotos(ctx context.Context) error {
	return s.tc.Multipart("/verification/submissions", nil, []common.Part{{
		Field:       "selfie",
		Filename:    "selfie.jpg",
		ContentType: "image/jpeg",
		Data:        common.Capture("nobody", "selfie"),
	}})
}

func (s *verificationSteps) iAmVerifiedAs(ctx context.Context, identity string) error {
	if err := s.submit(ctx, identity, 2, identity); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK {
		return fmt.Errorf("verification submission returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	got, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got != "VERIFIED" {
		return fmt.Errorf("expected VERIFIED after a clean submission, got %v", got)
	}
	return nil
}

func (s *verificationSteps) checkStatus(ctx context.Context) error {
	return s.tc.GET("/verification/status")
}

func (s *verificationSteps) statusShouldBe(ctx context.Context, want string) error {
	if err := s.checkStatus(ctx); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected verification status %s, got %v", want, got)
	}
	return nil
}

func (s *verificationSteps) adminOverride(ctx context.Context, user, status, reason string) error {
	userID, err := s.tc.UserID(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodPost, "/admin/users/"+userID+"/override", map[string]string{
		"status": status,
		"reason": reason,
	})
}

func (s *verificationSteps) adminAttempts(ctx context.Context, user string) error {
	userID, err := s.tc.UserID(user)
	if err != nil {
		return err
	}
	return s.tc.AdminJSON(http.MethodGet, "/admin/users/"+userID+"/attempts", nil)
}

func (s *verificationSteps) attemptCount(ctx context.Context, want int) error {
	v, err := s.tc.GetResponseField("attempts")
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok || len(list) != want {
		return fmt.Errorf("expected %d attempts, got %v", want, v)
	}
	return nil
}
