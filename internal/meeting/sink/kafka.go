package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"faceguard/internal/meeting/models"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink publishes each decision as one record keyed by decision ID, so
// redeliveries of the same decision land on the same partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, msg models.DecisionMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(msg.DecisionID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "reason", Value: []byte(msg.Reason)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce decision %s: %w", msg.DecisionID, err)
	}
	return nil
}
