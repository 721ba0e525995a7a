package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/orders-service/internal/aws"
	"github.com/imrishuroy/orders-service/internal/config"
	"github.com/imrishuroy/orders-service/internal/faults"
	"github.com/imrishuroy/orders-service/internal/handlers"
	"github.com/imrishuroy/orders-service/internal/idempotency"
	"github.com/imrishuroy/orders-service/internal/orders"
	"github.com/imrishuroy/orders-service/internal/pipeline"
	"github.com/imrishuroy/orders-service/internal/telemetry"
	"github.com/imrishuroy/orders-service/internal/validation"
)

func setupRouter(creator handlers.OrderCreator, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger))

	handlers.RegisterHealthRoutes(r)
	handlers.RegisterOrdersRoutes(r, creator, logger)

	return r
}

func newIdempotencyStore(cfg *config.Config, clients *aws.AWSClients) idempotency.Store {
	if cfg.IdempotencyBackend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return idempotency.NewRedisStore(client, cfg.ServiceName+"-idempotency", cfg.IdempotencyExpiresAfter)
	}
	return idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTableName, cfg.IdempotencyExpiresAfter)
}

func newSinks(ctx context.Context, cfg *config.Config, clients *aws.AWSClients, logger *slog.Logger) (telemetry.Sinks, telemetry.ShutdownFunc) {
	sinks := telemetry.Sinks{Logger: logger}
	if cfg.MetricsNamespace != "" {
		sinks.Metrics = telemetry.NewCloudWatchMetrics(clients.CloudWatch, cfg.MetricsNamespace, cfg.ServiceName)
	}

	shutdown := telemetry.ShutdownFunc(func(context.Context) error { return nil })
	if cfg.OTelEndpoint != "" {
		tracer, sd, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.Stage, cfg.OTelEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			sinks.Tracer = tracer
			shutdown = sd
		}
	}
	return sinks.WithDefaults(), shutdown
}

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, telemetry.LogConfig{
		Level:      cfg.LogLevel,
		SampleRate: cfg.LogSampleRate,
		Service:    cfg.ServiceName,
	})

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		logger.Error("failed to init aws clients", "error", err)
		os.Exit(1)
	}

	sinks, shutdown := newSinks(ctx, cfg, clients, logger)
	flush := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}

	v := validation.New()
	creator := orders.NewCreator(orders.NewStore(clients.DynamoDB, cfg.TableName), v, logger)

	opts := pipeline.Options{
		ServiceName: cfg.ServiceName,
		Stage:       cfg.Stage,
		Canonical:   cfg.IdempotencyCanonical,
		LogEvent:    cfg.LogEvent,
		Validator:   v,
		Idempotency: newIdempotencyStore(cfg, clients),
		Creator:     creator,
		Faults: faults.New(faults.Config{
			LatencyEnabled: cfg.CreateLatency,
			Latency:        cfg.CreateLatencyDuration,
			ErrorEnabled:   cfg.CreateError,
			ErrorRate:      cfg.CreateErrorRate,
			Seed:           cfg.FaultSeed,
		}),
		Sinks: sinks,
	}
	if cfg.OrdersQueueURL != "" {
		opts.Notifier = aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL)
	}

	r := setupRouter(pipeline.New(opts), logger)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		defer flush()
		addr := ":" + cfg.Port
		logger.Info("running local server", "addr", addr)
		if err := r.Run(addr); err != nil {
			logger.Error("failed to run local server", "error", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.StartWithOptions(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	}, lambda.WithEnableSIGTERM(flush))
}
