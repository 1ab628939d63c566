package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"github.com/twmb/franz-go/pkg/kgo"

	"faceguard/internal/meeting/models"
)

type fakeRefunder struct {
	mu    sync.Mutex
	calls []models.DecisionMessage
	errs  []error
}

func (f *fakeRefunder) Refund(_ context.Context, msg models.DecisionMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

// fakeConsumer serves its batches in order, then cancels the run.
type fakeConsumer struct {
	batches   [][]*kgo.Record
	cancel    context.CancelFunc
	committed []int64
}

func (c *fakeConsumer) PollFetches(context.Context) kgo.Fetches {
	if len(c.batches) == 0 {
		c.cancel()
		return nil
	}
	batch := c.batches[0]
	c.batches = c.batches[1:]
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "meeting.denial-decisions",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: batch}},
	}}}}
}

func (c *fakeConsumer) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	for _, r := range rs {
		c.committed = append(c.committed, r.Offset)
	}
	return nil
}

func decisionRecord(t *testing.T, offset int64, transactionID string, instructions ...models.Instruction) *kgo.Record {
	t.Helper()
	msg := models.DecisionMessage{
		DecisionID:    uuid.NewString(),
		MeetingID:     uuid.NewString(),
		UserID:        uuid.NewString(),
		TransactionID: transactionID,
		Reason:        string(models.DenialMismatch),
		DecidedAt:     time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	for _, in := range instructions {
		msg.Instructions = append(msg.Instructions, string(in))
	}
	value, err := json.Marshal(msg)
	require.NoError(t, err)
	return &kgo.Record{Key: []byte(msg.DecisionID), Value: value, Offset: offset}
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleRefundsOnlyWhenInstructed(t *testing.T) {
	refunder := &fakeRefunder{}
	r := New(nil, refunder, quiet())
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, decisionRecord(t, 0, "pi_1", models.DenialInstructions()...)))
	require.NoError(t, r.Handle(ctx, decisionRecord(t, 1, "pi_2", models.InstructionTerminateSession)))
	require.NoError(t, r.Handle(ctx, decisionRecord(t, 2, "", models.InstructionIssueRefund)))

	require.Len(t, refunder.calls, 1)
	assert.Equal(t, "pi_1", refunder.calls[0].TransactionID)
}

func TestHandleSkipsMalformedRecords(t *testing.T) {
	refunder := &fakeRefunder{}
	r := New(nil, refunder, quiet())

	require.NoError(t, r.Handle(context.Background(), &kgo.Record{Value: []byte("{not json")}))
	require.NoError(t, r.Handle(context.Background(), &kgo.Record{Value: []byte(`{"reason":"MISMATCH"}`)}))
	assert.Empty(t, refunder.calls)
}

func TestHandleRetriesTransientFailures(t *testing.T) {
	refunder := &fakeRefunder{errs: []error{errors.New("connection reset"), errors.New("connection reset")}}
	r := New(nil, refunder, quiet(), WithRetry(3, time.Millisecond))

	require.NoError(t, r.Handle(context.Background(), decisionRecord(t, 0, "pi_1", models.InstructionIssueRefund)))
	assert.Len(t, refunder.calls, 3)
}

func TestHandleDoesNotRetryPermanentFailures(t *testing.T) {
	refunder := &fakeRefunder{errs: []error{ErrPermanent}}
	r := New(nil, refunder, quiet(), WithRetry(3, time.Millisecond))

	require.NoError(t, r.Handle(context.Background(), decisionRecord(t, 0, "pi_1", models.InstructionIssueRefund)))
	assert.Len(t, refunder.calls, 1)
}

func TestRunCommitsHandledRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &fakeConsumer{
		cancel: cancel,
		batches: [][]*kgo.Record{
			{decisionRecord(t, 0, "pi_1", models.DenialInstructions()...)},
			{decisionRecord(t, 1, "ch_2", models.DenialInstructions()...)},
		},
	}
	refunder := &fakeRefunder{}

	require.NoError(t, New(consumer, refunder, quiet()).Run(ctx))
	assert.Equal(t, []int64{0, 1}, consumer.committed)
	assert.Len(t, refunder.calls, 2)
}

func TestRunStopsWithoutCommittingWhenRefundKeepsFailing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &fakeConsumer{
		cancel:  cancel,
		batches: [][]*kgo.Record{{decisionRecord(t, 7, "pi_1", models.InstructionIssueRefund)}},
	}
	down := errors.New("stripe unavailable")
	refunder := &fakeRefunder{errs: []error{down, down}}

	err := New(consumer, refunder, quiet(), WithRetry(2, time.Millisecond)).Run(ctx)
	require.ErrorIs(t, err, down)
	assert.Empty(t, consumer.committed)
}

type fakeRefundAPI struct {
	params *stripe.RefundParams
	err    error
}

func (f *fakeRefundAPI) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Refund{ID: "re_1"}, nil
}

func TestStripeRefunder(t *testing.T) {
	msg := models.DecisionMessage{
		DecisionID:    uuid.NewString(),
		MeetingID:     uuid.NewString(),
		TransactionID: "pi_3Nx",
		Reason:        string(models.DenialTimeout),
	}

	t.Run("keys the refund by decision", func(t *testing.T) {
		api := &fakeRefundAPI{}
		require.NoError(t, NewStripeWithAPI(api).Refund(context.Background(), msg))

		require.NotNil(t, api.params)
		assert.Equal(t, "pi_3Nx", stripe.StringValue(api.params.PaymentIntent))
		assert.Nil(t, api.params.Charge)
		assert.Equal(t, "faceguard-refund-"+msg.DecisionID, stripe.StringValue(api.params.IdempotencyKey))
		assert.Equal(t, msg.DecisionID, api.params.Metadata["decision_id"])
	})

	t.Run("charge ids refund the charge", func(t *testing.T) {
		api := &fakeRefundAPI{}
		chargeMsg := msg
		chargeMsg.TransactionID = "ch_9"
		require.NoError(t, NewStripeWithAPI(api).Refund(context.Background(), chargeMsg))
		assert.Equal(t, "ch_9", stripe.StringValue(api.params.Charge))
	})

	t.Run("unknown transaction format is permanent", func(t *testing.T) {
		bad := msg
		bad.TransactionID = "txn_42"
		err := NewStripeWithAPI(&fakeRefundAPI{}).Refund(context.Background(), bad)
		assert.ErrorIs(t, err, ErrPermanent)
	})

	t.Run("already refunded counts as done", func(t *testing.T) {
		api := &fakeRefundAPI{err: &stripe.Error{Code: stripe.ErrorCodeChargeAlreadyRefunded, HTTPStatusCode: http.StatusBadRequest}}
		assert.NoError(t, NewStripeWithAPI(api).Refund(context.Background(), msg))
	})

	t.Run("server errors stay retryable", func(t *testing.T) {
		api := &fakeRefundAPI{err: &stripe.Error{HTTPStatusCode: http.StatusBadGateway}}
		err := NewStripeWithAPI(api).Refund(context.Background(), msg)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPermanent)
	})

	t.Run("invalid requests are permanent", func(t *testing.T) {
		api := &fakeRefundAPI{err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusBadRequest}}
		err := NewStripeWithAPI(api).Refund(context.Background(), msg)
		assert.ErrorIs(t, err, ErrPermanent)
	})
}
