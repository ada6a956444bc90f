package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func validMessage(id string) Message {
	return Message{
		Version:    MessageVersion,
		RequestID:  "req-" + id,
		AnalysisID: "analysis-" + id,
		UserID:     "guest:abc",
		Fields:     map[string]string{"about": "Backend engineer"},
	}
}

type fakeSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{}, f.err
}

func TestSQSClientSendsBodyAndAttributes(t *testing.T) {
	fake := &fakeSender{}
	client := &SQSClient{api: fake, queueURL: "https://sqs.local/q"}

	if err := client.Send(context.Background(), validMessage("1")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/q" {
		t.Fatalf("unexpected queue url %s", aws.ToString(in.QueueUrl))
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil || decoded.AnalysisID != "analysis-1" {
		t.Fatalf("body did not round trip: %+v %v", decoded, err)
	}
	if aws.ToString(in.MessageAttributes["requestId"].StringValue) != "req-1" {
		t.Fatalf("missing requestId attribute")
	}
}

func TestSQSClientRejectsInvalidAndWrapsErrors(t *testing.T) {
	fake := &fakeSender{err: errors.New("throttled")}
	client := &SQSClient{api: fake, queueURL: "q"}

	if err := client.Send(context.Background(), Message{}); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if len(fake.inputs) != 0 {
		t.Fatalf("invalid message must not be sent")
	}
	if err := client.Send(context.Background(), validMessage("2")); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestLocalRunsJobsAndDrainsOnClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	local := NewLocal(2, 8, func(_ context.Context, msg Message) error {
		mu.Lock()
		seen = append(seen, msg.AnalysisID)
		mu.Unlock()
		return nil
	})
	for _, id := range []string{"1", "2", "3"} {
		if err := local.Send(context.Background(), validMessage(id)); err != nil {
			t.Fatalf("Send %s: %v", id, err)
		}
	}
	local.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 jobs run, got %v", seen)
	}
	if err := local.Send(context.Background(), validMessage("4")); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	local.Close()
}

func TestLocalFullBuffer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	local := NewLocal(1, 0, func(context.Context, Message) error {
		started <- struct{}{}
		<-release
		return nil
	})
	defer local.Close()
	defer close(release)

	// unbuffered: the first send waits for the idle worker
	for {
		if err := local.Send(context.Background(), validMessage("1")); err == nil {
			break
		}
	}
	<-started
	if err := local.Send(context.Background(), validMessage("2")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
