//go:build integration

package sink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"faceguard/internal/meeting/models"
	"faceguard/internal/meeting/sink"
	"faceguard/internal/platform/config"
	"faceguard/internal/platform/kafka"
	"faceguard/pkg/testutil/containers"
)

func TestKafkaSinkRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	cfg := config.Kafka{
		Brokers:       broker.Brokers,
		DecisionTopic: "meeting.denial-decisions.test",
		ConsumerGroup: "sink-test",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := kafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopics(ctx, producer, cfg))

	msg := message()
	require.NoError(t, sink.NewKafka(producer, cfg.DecisionTopic).Publish(ctx, msg))

	consumer, err := kafka.NewConsumer(cfg)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) == 0 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
	}

	assert.Equal(t, msg.DecisionID, string(records[0].Key))
	var got models.DecisionMessage
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.True(t, got.Has(models.InstructionIssueRefund))
}
