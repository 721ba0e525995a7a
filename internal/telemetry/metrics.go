package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/orders-service/internal/aws"
)

// Metric names emitted by order creation.
const (
	MetricSuccessfulCreateOrder = "SuccessfulCreateOrder"
	MetricCreateOrderError      = "CreateOrderError"
)

// Metrics accepts named counters.
type Metrics interface {
	AddCount(ctx context.Context, name string, value float64) error
}

// CloudWatchMetrics publishes each counter as a CloudWatch datapoint with a
// service dimension.
type CloudWatchMetrics struct {
	client    aws.CloudWatchAPI
	namespace string
	service   string
	nowFunc   func() time.Time
}

// NewCloudWatchMetrics returns a Metrics sink writing to namespace.
func NewCloudWatchMetrics(client aws.CloudWatchAPI, namespace, service string) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		service:   service,
		nowFunc:   time.Now,
	}
}

func (m *CloudWatchMetrics) AddCount(ctx context.Context, name string, value float64) error {
	ts := m.nowFunc()
	dimName, dimValue := "service", m.service
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &ts,
				Dimensions: []cwtypes.Dimension{{Name: &dimName, Value: &dimValue}},
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data %s: %w", name, err)
	}
	return nil
}

// NopMetrics drops every counter.
type NopMetrics struct{}

func (NopMetrics) AddCount(context.Context, string, float64) error { return nil }
