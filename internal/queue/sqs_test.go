package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	bodies  []string
	deleted int
	sendErr error
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.bodies = append(f.bodies, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if len(f.bodies) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	body := f.bodies[0]
	f.bodies = f.bodies[1:]
	return &sqs.ReceiveMessageOutput{Messages: []sqstypes.Message{{
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh"),
	}}}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted++
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	return &sqs.GetQueueAttributesOutput{}, nil
}

func TestSQSPushPop(t *testing.T) {
	fake := &fakeSQS{}
	q := &SQS{client: fake, queueURL: "https://sqs.local/cfdi"}
	ctx := context.Background()

	if err := q.Push(ctx, "job-1"); err != nil {
		t.Fatalf("push: %v", err)
	}
	ref, ok, err := q.Pop(ctx)
	if err != nil || !ok || ref != "job-1" {
		t.Fatalf("pop: ref=%q ok=%v err=%v", ref, ok, err)
	}
	if fake.deleted != 1 {
		t.Fatalf("expected message deleted, got %d", fake.deleted)
	}
	if _, ok, _ := q.Pop(ctx); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestSQSPopSkipsUndecodable(t *testing.T) {
	fake := &fakeSQS{bodies: []string{"garbage"}}
	q := &SQS{client: fake, queueURL: "https://sqs.local/cfdi"}
	ctx := context.Background()
	if err := q.Push(ctx, "job-2"); err != nil {
		t.Fatalf("push: %v", err)
	}

	ref, ok, err := q.Pop(ctx)
	if err != nil || !ok || ref != "job-2" {
		t.Fatalf("pop: ref=%q ok=%v err=%v", ref, ok, err)
	}
	if fake.deleted != 2 {
		t.Fatalf("expected both messages deleted, got %d", fake.deleted)
	}
}

func TestSQSPushError(t *testing.T) {
	q := &SQS{client: &fakeSQS{sendErr: errors.New("throttled")}, queueURL: "u"}
	if err := q.Push(context.Background(), "job-1"); err == nil {
		t.Fatalf("expected error")
	}
}
