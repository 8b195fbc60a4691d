// Package observability publishes per-run pipeline metrics to CloudWatch.
// Publishing is best effort; a metrics failure never fails a run.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"riverwatch/internal/config"
)

// RunMetrics records the outcome of one orchestrator run.
type RunMetrics interface {
	RecordRun(ctx context.Context, job string, succeeded, failed, readings int, duration time.Duration)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertions.
var (
	_ RunMetrics = (*CloudWatchRunMetrics)(nil)
	_ RunMetrics = NoopRunMetrics{}
)

// CloudWatchRunMetrics emits run metrics to a CloudWatch namespace, one
// datum per measure with a Job dimension.
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRunMetrics creates a publisher for the given namespace.
func NewCloudWatchRunMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRunMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{client: client, namespace: namespace, logger: logger}
}

// NewFromConfig builds a RunMetrics from config. An empty namespace disables
// publishing and returns the noop implementation.
func NewFromConfig(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) (RunMetrics, error) {
	if cfg.Namespace == "" {
		return NoopRunMetrics{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	return NewCloudWatchRunMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Namespace, logger), nil
}

// RecordRun publishes the station success/failure counts, the readings
// ingested, and the wall-clock duration for one run.
func (m *CloudWatchRunMetrics) RecordRun(ctx context.Context, job string, succeeded, failed, readings int, duration time.Duration) {
	jobDim := []cwtypes.Dimension{{
		Name:  aws.String("Job"),
		Value: aws.String(job),
	}}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("StationsSucceeded"),
				Value:      aws.Float64(float64(succeeded)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: jobDim,
			},
			{
				MetricName: aws.String("StationsFailed"),
				Value:      aws.Float64(float64(failed)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: jobDim,
			},
			{
				MetricName: aws.String("ReadingsIngested"),
				Value:      aws.Float64(float64(readings)),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: jobDim,
			},
			{
				MetricName: aws.String("RunDuration"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: jobDim,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish run metrics",
			"job", job,
			"error", err,
		)
	}
}

// NoopRunMetrics discards all metrics. Used when no namespace is configured.
type NoopRunMetrics struct{}

func (NoopRunMetrics) RecordRun(context.Context, string, int, int, int, time.Duration) {}
