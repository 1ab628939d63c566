package e2e

import (
	"github.com/cucumber/godog"

	"faceguard/e2e/steps/common"
	"faceguard/e2e/steps/meeting"
	"faceguard/e2e/steps/retention"
	"faceguard/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Identity switching and generic response assertions
	common.RegisterSteps(ctx, tc)

	// Registration submissions, status and admin override
	verification.RegisterSteps(ctx, tc)

	// Review queue and meeting check-in
	meeting.RegisterSteps(ctx, tc)

	// Legal holds and manual sweeps
	retention.RegisterSteps(ctx, tc)
}
