package sns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/bed-alerts/internal/config"
	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/logger"
)

// API is the subset of the SNS client used here.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewClient creates an SNS client in cfg.SNSRegion. When cfg.AWSEndpointURL
// is set (LocalStack), all traffic goes to the local instance.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}

	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}

// SignalSender pushes alert messages to device platform endpoints.
type SignalSender struct {
	client API
}

func NewSignalSender(client API) *SignalSender {
	return &SignalSender{client: client}
}

// SendSignal publishes message to every target's endpoint. Devices without
// an endpoint are skipped. Delivery continues past individual failures; the
// returned error joins all of them.
func (s *SignalSender) SendSignal(ctx context.Context, message string, targets []domain.UserDevice) error {
	var errs []error
	for _, d := range targets {
		if d.EndpointARN == "" {
			logger.WarnKV(ctx, "device has no endpoint, skipping", "device_id", d.ID)
			continue
		}
		_, err := s.client.Publish(ctx, &sns.PublishInput{
			TargetArn: aws.String(d.EndpointARN),
			Message:   aws.String(message),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("sns publish to device %s: %w", d.ID, err))
		}
	}
	return errors.Join(errs...)
}

// TopicPublisher publishes notification payloads to a single SNS topic.
type TopicPublisher struct {
	client   API
	topicARN string
}

func NewTopicPublisher(client API, topicARN string) *TopicPublisher {
	return &TopicPublisher{client: client, topicARN: topicARN}
}

func (p *TopicPublisher) Publish(ctx context.Context, payload []byte) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sns publish to topic: %w", err)
	}
	return nil
}
