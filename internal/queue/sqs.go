package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"backoffice/internal/shared/telemetry"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQS backs the queue with an AWS SQS queue.
type SQS struct {
	client   sqsAPI
	queueURL string
}

// NewSQS constructs an SQS-backed queue.
func NewSQS(ctx context.Context, region, queueURL string) (*SQS, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("SQS_QUEUE_URL is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQS{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Push delivers a reference to the configured SQS queue.
func (s *SQS) Push(ctx context.Context, ref string) error {
	payload, err := EncodeMessage(NewMessage(ref))
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

// Pop receives one message and deletes it right away. Undecodable bodies are
// dropped and logged; the next message is tried.
func (s *SQS) Pop(ctx context.Context) (string, bool, error) {
	for {
		out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     0,
		})
		if err != nil {
			return "", false, fmt.Errorf("sqs receive message: %w", err)
		}
		if len(out.Messages) == 0 {
			return "", false, nil
		}
		msg := out.Messages[0]
		if err := s.delete(ctx, msg); err != nil {
			return "", false, err
		}

		ref, meta, err := ParseMessage(aws.ToString(msg.Body))
		if err != nil {
			telemetry.Warn("queue.message_dropped", map[string]any{
				"backend":  s.Name(),
				"body_len": meta.BodyLen,
				"body_sha": meta.BodySHA,
				"err":      err,
			})
			continue
		}
		return ref, true, nil
	}
}

func (s *SQS) delete(ctx context.Context, msg sqstypes.Message) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("sqs delete message: %w", err)
	}
	return nil
}

// Ping checks the queue is reachable.
func (s *SQS) Ping(ctx context.Context) error {
	_, err := s.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(s.queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return fmt.Errorf("sqs get queue attributes: %w", err)
	}
	return nil
}

func (s *SQS) Name() string { return "sqs" }

var (
	_ Queue  = (*SQS)(nil)
	_ Pinger = (*SQS)(nil)
)
