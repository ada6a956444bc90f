package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultSQSRegion = "us-east-1"

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes jobs to an SQS queue consumed by cmd/worker or
// cmd/lambda-worker.
type SQSClient struct {
	api      sqsSender
	queueURL string
}

func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("RA_SQS_QUEUE_URL is required")
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = defaultSQSRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{api: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Send validates msg and publishes it. The request id and payload version
// also travel as message attributes so they show up in the console without
// decoding the body.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	attrs := map[string]sqstypes.MessageAttributeValue{
		"version": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(msg.Version))},
	}
	if msg.RequestID != "" {
		attrs["requestId"] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(msg.RequestID)}
	}
	if _, err := s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	}); err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
