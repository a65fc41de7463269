package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes application counters to CloudWatch.
// Data points are buffered and flushed in batches to stay within the
// 1000-datapoint PutMetricData limit and keep store mutations off the hot path.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client

	mu      sync.Mutex
	pending []types.MetricDatum
}

// maxBatchSize is the CloudWatch PutMetricData limit per call
const maxBatchSize = 1000

// NewMetrics creates a metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// IncrementCounter records a count-of-one metric with optional dimensions
func (m *Metrics) IncrementCounter(name string, dimensions map[string]string) {
	m.record(name, 1, types.StandardUnitCount, dimensions)
}

// RecordDuration records an operation latency metric
func (m *Metrics) RecordDuration(name string, d time.Duration, dimensions map[string]string) {
	m.record(name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

func (m *Metrics) record(name string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	for k, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	m.mu.Lock()
	m.pending = append(m.pending, datum)
	m.mu.Unlock()
}

// Flush publishes all buffered data points
func (m *Metrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(pending) == 0 || m.client == nil {
		return nil
	}

	for i := 0; i < len(pending); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[i:end],
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// FlushLoop flushes buffered metrics on a fixed interval until ctx is done
func (m *Metrics) FlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Flush(context.Background())
			return
		case <-ticker.C:
			m.Flush(ctx)
		}
	}
}
