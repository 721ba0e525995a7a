package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/orders-service/internal/aws"
	"github.com/imrishuroy/orders-service/internal/config"
	"github.com/imrishuroy/orders-service/internal/telemetry"
	"github.com/imrishuroy/orders-service/internal/validation"
)

const localOrderEvent = `{"id":"local-order-1","customerId":"C1","items":[{"productId":"P1","quantity":2}],"total":20,"status":"PENDING","created":"2024-05-01T10:00:00.000Z","updated":"2024-05-01T10:00:00.000Z"}`

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, telemetry.LogConfig{
		Level:      cfg.LogLevel,
		SampleRate: cfg.LogSampleRate,
		Service:    cfg.ServiceName,
	})

	sinks := telemetry.Sinks{Logger: logger}
	if cfg.MetricsNamespace != "" {
		clients, err := aws.NewAWSClients(context.Background())
		if err != nil {
			logger.Error("failed to init aws clients", "error", err)
			os.Exit(1)
		}
		sinks.Metrics = telemetry.NewCloudWatchMetrics(clients.CloudWatch, cfg.MetricsNamespace, cfg.ServiceName)
	}

	p := NewProcessor(validation.New(), sinks)

	// If RUN_LOCAL=true, process a single simulated SQS event for local testing.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = localOrderEvent
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		resp, _ := p.Handle(context.Background(), event)
		if len(resp.BatchItemFailures) > 0 {
			logger.Error("local event failed")
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
