package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "LimitMonitor/Reports")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffer size before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
}

// putMetricDataAPI is the subset of the CloudWatch client used by the publisher.
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisher publishes report statistics to AWS CloudWatch.
type MetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32
	logger            *logger.Logger

	buffer     []port.MetricDatum
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// normalize validates required fields and fills defaults.
func (cfg MetricsPublisherConfig) normalize() (MetricsPublisherConfig, error) {
	if cfg.Namespace == "" {
		return cfg, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return cfg, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}
	return cfg, nil
}

// NewMetricsPublisher creates a new CloudWatch metrics publisher.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig, log *logger.Logger) (*MetricsPublisher, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log), nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig, log *logger.Logger) *MetricsPublisher {
	p := &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		logger:            log,
		buffer:            make([]port.MetricDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p
}

// PublishBatch buffers metrics, flushing when the buffer fills up.
func (p *MetricsPublisher) PublishBatch(ctx context.Context, metrics []port.MetricDatum) error {
	if len(metrics) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, metric := range metrics {
		p.buffer = append(p.buffer, metric)

		if len(p.buffer) >= p.bufferSize {
			if err := p.flushBufferUnsafe(ctx); err != nil {
				return fmt.Errorf("failed to flush buffer: %w", err)
			}
		}
	}

	return nil
}

// PublishSingle publishes a single metric immediately without buffering.
func (p *MetricsPublisher) PublishSingle(ctx context.Context, metric port.MetricDatum) error {
	if metric.Name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	return p.publishBatchWithRetry(ctx, []types.MetricDatum{p.convertToDatum(metric)})
}

// Flush forces immediate publication of all buffered metrics.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining metrics.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil && p.logger != nil {
				p.logger.Warn("CloudWatch metrics flush failed, retrying on next tick", "error", err)
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, metric := range p.buffer {
		data = append(data, p.convertToDatum(metric))
	}

	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(data) {
			end = len(data)
		}

		if err := p.publishBatchWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// publishBatchWithRetry publishes a batch of metrics with exponential backoff retry.
func (p *MetricsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// convertToDatum converts a metric datum to CloudWatch MetricDatum.
// Dimensions are sorted by name so identical datums produce identical requests.
func (p *MetricsPublisher) convertToDatum(metric port.MetricDatum) types.MetricDatum {
	timestamp := metric.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	merged := make(map[string]string, len(p.defaultDimensions)+len(metric.Dimensions))
	for key, value := range p.defaultDimensions {
		merged[key] = value
	}
	for key, value := range metric.Dimensions {
		merged[key] = value
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	dimensions := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(merged[name]),
		})
	}

	datum := types.MetricDatum{
		MetricName: aws.String(metric.Name),
		Value:      aws.Float64(metric.Value),
		Unit:       mapUnit(metric.Unit),
		Timestamp:  aws.Time(timestamp),
		Dimensions: dimensions,
	}

	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

// mapUnit maps metric units to CloudWatch StandardUnit.
func mapUnit(unit string) types.StandardUnit {
	switch unit {
	case "%":
		return types.StandardUnitPercent
	case "ms":
		return types.StandardUnitMilliseconds
	case "s":
		return types.StandardUnitSeconds
	case "count":
		return types.StandardUnitCount
	case "bytes":
		return types.StandardUnitBytes
	default:
		return types.StandardUnitNone
	}
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// LocalStack
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
