package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverwatch/internal/config"
)

type mockCloudWatchAPI struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatchAPI) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestRecordRun(t *testing.T) {
	mock := &mockCloudWatchAPI{}
	pub := NewCloudWatchRunMetrics(mock, "RiverWatch", nil)

	pub.RecordRun(context.Background(), "realtime_updater", 12, 2, 8640, 45*time.Second)

	require.Len(t, mock.inputs, 1)
	input := mock.inputs[0]
	assert.Equal(t, "RiverWatch", *input.Namespace)
	require.Len(t, input.MetricData, 4)

	byName := make(map[string]cwtypes.MetricDatum)
	for _, d := range input.MetricData {
		byName[*d.MetricName] = d
	}
	assert.Equal(t, 12.0, *byName["StationsSucceeded"].Value)
	assert.Equal(t, 2.0, *byName["StationsFailed"].Value)
	assert.Equal(t, 8640.0, *byName["ReadingsIngested"].Value)
	assert.Equal(t, 45000.0, *byName["RunDuration"].Value)

	for _, d := range input.MetricData {
		require.Len(t, d.Dimensions, 1)
		assert.Equal(t, "Job", *d.Dimensions[0].Name)
		assert.Equal(t, "realtime_updater", *d.Dimensions[0].Value)
	}
}

func TestRecordRun_PublishFailureIsNonFatal(t *testing.T) {
	mock := &mockCloudWatchAPI{err: errors.New("throttled")}
	pub := NewCloudWatchRunMetrics(mock, "RiverWatch", nil)

	// Must not panic or propagate.
	pub.RecordRun(context.Background(), "daily_averager", 1, 0, 24, time.Second)
	assert.Len(t, mock.inputs, 1)
}

func TestNewFromConfig_EmptyNamespaceDisables(t *testing.T) {
	m, err := NewFromConfig(context.Background(), config.MetricsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopRunMetrics{}, m)
}
