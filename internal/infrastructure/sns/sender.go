package sns

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/fcl-miniapp/internal/config"
)

// RecipientAttribute carries the Telegram user id for subscribers that fan
// messages out to the chat platform.
const RecipientAttribute = "recipient_id"

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TopicSender publishes confirmation messages to an SNS topic.
type TopicSender struct {
	client   publisher
	topicARN string
}

func NewTopicSender(cfg *config.Config) (*TopicSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &TopicSender{client: sns.NewFromConfig(awsCfg, clientOpts...), topicARN: cfg.SNSTopicARN}, nil
}

func (s *TopicSender) Send(ctx context.Context, recipientID int64, text string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(text),
		MessageAttributes: map[string]types.MessageAttributeValue{
			RecipientAttribute: {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(recipientID, 10)),
			},
		},
	})
	return err
}
