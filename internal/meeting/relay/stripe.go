package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/refund"

	"faceguard/internal/meeting/models"
)

// RefundAPI is satisfied by refund.Client.
type RefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type StripeRefunder struct {
	api RefundAPI
}

// NewStripe returns a refunder using the given secret key.
func NewStripe(secretKey string) *StripeRefunder {
	return &StripeRefunder{api: refund.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

func NewStripeWithAPI(api RefundAPI) *StripeRefunder {
	return &StripeRefunder{api: api}
}

// Refund reverses the payment named by the decision's transaction ID, a
// payment intent (pi_) or a charge (ch_). The decision ID is the idempotency
// key, so redelivered decisions refund once.
func (s *StripeRefunder) Refund(ctx context.Context, msg models.DecisionMessage) error {
	params := &stripe.RefundParams{
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	switch {
	case strings.HasPrefix(msg.TransactionID, "pi_"):
		params.PaymentIntent = stripe.String(msg.TransactionID)
	case strings.HasPrefix(msg.TransactionID, "ch_"):
		params.Charge = stripe.String(msg.TransactionID)
	default:
		return fmt.Errorf("%w: unsupported transaction id %q", ErrPermanent, msg.TransactionID)
	}
	params.Context = ctx
	params.SetIdempotencyKey("faceguard-refund-" + msg.DecisionID)
	params.AddMetadata("decision_id", msg.DecisionID)
	params.AddMetadata("meeting_id", msg.MeetingID)
	params.AddMetadata("denial_reason", msg.Reason)

	if _, err := s.api.New(params); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.Code == stripe.ErrorCodeChargeAlreadyRefunded {
		return nil
	}
	if se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPermanent, err)
}
