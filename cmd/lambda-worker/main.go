package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"ats-backend/internal/bootstrap"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/workerproc"
)

var (
	buildOnce sync.Once
	buildErr  error
	active    *consumer
)

// consumer turns one SQS batch into a partial batch response. Only retryable
// failures are reported back; poison records are logged and acknowledged.
type consumer struct {
	runner      workerproc.Runner
	maxReceives int
}

func build() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		buildErr = err
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	active = &consumer{runner: app.Analyses, maxReceives: cfg.WorkerMaxReceives}
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	buildOnce.Do(build)
	if buildErr != nil {
		return retryAll(event), buildErr
	}
	return active.consume(ctx, event), nil
}

func (c *consumer) consume(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		if !c.handle(ctx, record) {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

// handle reports false when the record should be redelivered.
func (c *consumer) handle(ctx context.Context, record events.SQSMessage) bool {
	metrics.IncJob("received")
	fields := map[string]any{
		"sqs_message_id": record.MessageId,
		"receive_count":  receiveCount(record),
	}

	job, _, err := workerproc.ParseMessage(record.Body)
	if err == nil {
		fields["analysis_id"] = job.AnalysisID
		ctx = telemetry.WithRequestID(ctx, job.RequestID)
		if c.maxReceives > 0 && receiveCount(record) > c.maxReceives {
			fields["error"] = "receive limit exceeded"
			telemetry.ErrorContext(ctx, "worker.analysis.poisoned", fields)
			metrics.IncJob("dropped")
			return true
		}
		var status workerproc.Status
		status, err = workerproc.Process(ctx, c.runner, job)
		if err == nil {
			fields["status"] = string(status)
			telemetry.InfoContext(ctx, "worker.analysis.completed", fields)
			metrics.IncJob(string(status))
			return true
		}
	}

	fields["error"] = err.Error()
	if workerproc.Unrecoverable(err) {
		telemetry.ErrorContext(ctx, "worker.analysis.dropped", fields)
		metrics.IncJob("dropped")
		return true
	}
	telemetry.ErrorContext(ctx, "worker.analysis.failed", fields)
	metrics.IncJob("failed")
	return false
}

func retryAll(event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func receiveCount(record events.SQSMessage) int {
	n, _ := strconv.Atoi(record.Attributes["ApproximateReceiveCount"])
	return n
}

func main() {
	lambda.Start(handler)
}
