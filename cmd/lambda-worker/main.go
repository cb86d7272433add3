package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"esg-gap-backend/internal/bootstrap"
	"esg-gap-backend/internal/shared/config"
	"esg-gap-backend/internal/shared/metrics"
	"esg-gap-backend/internal/shared/telemetry"
	"esg-gap-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.GapProcessor
)

func initApp() {
	cfg := config.Load()
	// Gap jobs arriving here are computed in this process.
	cfg.GapQueueURL = ""
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	processor = built.ReportsService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, processor, event), nil
}

// processBatch reports only retryable failures so SQS redelivers them;
// everything else is acknowledged.
func processBatch(ctx context.Context, p workerproc.GapProcessor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncGapJobsReceived()
		err := workerproc.HandleMessage(ctx, p, record.Body)
		if err == nil {
			metrics.IncGapJobsCompleted()
			continue
		}
		fields := map[string]any{"message_id": record.MessageId, "error": err.Error()}
		if workerproc.Retryable(err) {
			metrics.IncGapJobsFailed()
			telemetry.Error("lambda.gap.failed", fields)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
		metrics.IncGapJobsDeletedUnrecoverable()
		telemetry.Error("lambda.gap.dropped", fields)
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
