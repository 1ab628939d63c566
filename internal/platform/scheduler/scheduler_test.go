package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/pkg/requestcontext"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(quiet())
	err := s.Add("sweep", "every tuesday", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(quiet())
	var runs atomic.Int32
	require.NoError(t, s.Add("dispatch", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunNowCarriesRequestIDAndTimeout(t *testing.T) {
	s := New(quiet(), WithJobTimeout(time.Minute))
	var (
		requestID string
		deadline  bool
	)
	s.RunNow("sweep", func(ctx context.Context) error {
		requestID = requestcontext.RequestID(ctx)
		_, deadline = ctx.Deadline()
		return errors.New("logged, not returned")
	})

	assert.Contains(t, requestID, "job-sweep-")
	assert.True(t, deadline)
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := New(quiet())
	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, s.Add("slow", "@every 1s", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, cancelled.Load())
}
