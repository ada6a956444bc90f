package main

// Long-running SQS consumer for async profile analyses:
//   RA_SQS_QUEUE_URL=... go run ./cmd/worker

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"ats-backend/internal/bootstrap"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/workerproc"
)

const (
	defaultRegion = "us-east-1"
	batchSize     = 10
	longPoll      = 20 // seconds
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// poller receives batches and fans messages out to at most concurrency
// goroutines. A message is deleted only when its job finished or can never
// succeed; anything else is left for SQS to redeliver.
type poller struct {
	api         sqsAPI
	queueURL    string
	runner      workerproc.Runner
	concurrency int
	visibility  time.Duration
	maxReceives int
}

func main() {
	cfg := config.Load()
	if cfg.QueueURL == "" {
		log.Fatal("worker: RA_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("worker: aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("worker: bootstrap: %v", err)
	}
	defer app.Close(context.Background())

	p := &poller{
		api:         sqs.NewFromConfig(awsCfg),
		queueURL:    cfg.QueueURL,
		runner:      app.Analyses,
		concurrency: cfg.WorkerConcurrency,
		visibility:  cfg.WorkerVisibility,
		maxReceives: cfg.WorkerMaxReceives,
	}
	telemetry.Info("worker.started", map[string]any{
		"queue_url":   cfg.QueueURL,
		"concurrency": p.concurrency,
		"visibility":  p.visibility.String(),
	})
	if !p.run(ctx, cfg.WorkerShutdownTimeout) {
		telemetry.Error("worker.shutdown_timeout", map[string]any{"timeout": cfg.WorkerShutdownTimeout.String()})
	}
}

// run polls until ctx is done, then waits up to drain for in-flight jobs.
// It reports whether every job finished.
func (p *poller) run(ctx context.Context, drain time.Duration) bool {
	sem := make(chan struct{}, max(1, p.concurrency))
	var wg sync.WaitGroup

	for ctx.Err() == nil {
		resp, err := p.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.queueURL),
			MaxNumberOfMessages: batchSize,
			WaitTimeSeconds:     longPoll,
			VisibilityTimeout:   int32(p.visibility / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{"ApproximateReceiveCount"},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
			case sem <- struct{}{}:
				metrics.IncJob("received")
				wg.Add(1)
				go func(m sqstypes.Message) {
					defer wg.Done()
					defer func() { <-sem }()
					// jobs already started finish after the shutdown signal
					p.handle(context.WithoutCancel(ctx), m)
				}(msg)
			}
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(drain):
		return false
	}
}

func (p *poller) handle(ctx context.Context, msg sqstypes.Message) {
	fields := messageFields(msg)
	job, meta, err := workerproc.ParseMessage(aws.ToString(msg.Body))
	if job.AnalysisID != "" {
		fields["analysis_id"] = job.AnalysisID
	}
	ctx = telemetry.WithRequestID(ctx, job.RequestID)
	if err != nil {
		fields["body_len"] = meta.BodyLen
		fields["body_sha256"] = meta.BodySHA
		fields["error"] = err.Error()
		telemetry.ErrorContext(ctx, "worker.analysis.decode_failed", fields)
		p.drop(ctx, msg, fields)
		return
	}
	if p.maxReceives > 0 && receiveCount(msg) > p.maxReceives {
		fields["error"] = "receive limit exceeded"
		telemetry.ErrorContext(ctx, "worker.analysis.poisoned", fields)
		p.drop(ctx, msg, fields)
		return
	}

	status, err := workerproc.Process(ctx, p.runner, job)
	switch {
	case err == nil:
		if p.delete(ctx, msg, fields) {
			fields["status"] = string(status)
			telemetry.InfoContext(ctx, "worker.analysis.completed", fields)
			metrics.IncJob(string(status))
		}
	case workerproc.Unrecoverable(err):
		fields["error"] = err.Error()
		telemetry.ErrorContext(ctx, "worker.analysis.dropped", fields)
		p.drop(ctx, msg, fields)
	default:
		fields["error"] = err.Error()
		telemetry.ErrorContext(ctx, "worker.analysis.failed", fields)
		metrics.IncJob("failed")
	}
}

func (p *poller) drop(ctx context.Context, msg sqstypes.Message, fields map[string]any) {
	if p.delete(ctx, msg, fields) {
		metrics.IncJob("dropped")
	}
}

func (p *poller) delete(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.ErrorContext(ctx, "worker.analysis.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := p.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.ErrorContext(ctx, "worker.analysis.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func messageFields(msg sqstypes.Message) map[string]any {
	return map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["delete_error"] = msg
	return out
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes["ApproximateReceiveCount"])
	if err != nil {
		return 0
	}
	return n
}
