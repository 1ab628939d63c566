package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"faceguard/internal/meeting/models"
)

// SNSPublisher is the subset of *sns.Client the sink needs.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSSink struct {
	client   SNSPublisher
	topicARN string
}

func NewSNS(client SNSPublisher, topicARN string) *SNSSink {
	return &SNSSink{client: client, topicARN: topicARN}
}

func (s *SNSSink) Publish(ctx context.Context, msg models.DecisionMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("meeting denial " + msg.Reason),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"decision_id": {DataType: aws.String("String"), StringValue: aws.String(msg.DecisionID)},
			"reason":      {DataType: aws.String("String"), StringValue: aws.String(msg.Reason)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish decision %s: %w", msg.DecisionID, err)
	}
	return nil
}
