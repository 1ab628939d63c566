package main

import (
	"context"
	"fmt"
	"log/slog"

	"faceguard/internal/meeting/service"
	"faceguard/internal/meeting/sink"
	"faceguard/internal/platform/aws"
	"faceguard/internal/platform/config"
	"faceguard/internal/platform/kafka"
)

// newDecisionSink picks the transport for denial decisions. The returned
// close func is never nil.
func newDecisionSink(ctx context.Context, cfg config.Config, clients *aws.Clients, log *slog.Logger) (service.InstructionSink, func(), error) {
	switch cfg.Meeting.Sink {
	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		if err := kafka.EnsureTopics(ctx, producer, cfg.Kafka); err != nil {
			producer.Close()
			return nil, nil, err
		}
		log.Info("denial decisions go to kafka", "topic", cfg.Kafka.DecisionTopic)
		return sink.NewKafka(producer, cfg.Kafka.DecisionTopic), producer.Close, nil
	case "sns":
		if clients == nil || cfg.AWS.SNSTopicARN == "" {
			return nil, nil, fmt.Errorf("sns decision sink requires SNS_DECISION_TOPIC_ARN")
		}
		log.Info("denial decisions go to sns", "topic_arn", cfg.AWS.SNSTopicARN)
		return sink.NewSNS(clients.SNS, cfg.AWS.SNSTopicARN), func() {}, nil
	case "memory":
		log.Warn("denial decisions are kept in memory and never delivered")
		return sink.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown decision sink %q", cfg.Meeting.Sink)
	}
}
