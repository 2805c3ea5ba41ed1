package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/limit-monitor/internal/application/port"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogBatchSize        = 1048576 // 1 MB
	maxLogEventSize        = 256000  // 256 KB
	logEventOverhead       = 26      // bytes CloudWatch adds per event when sizing a batch
)

// LogsPublisherConfig holds configuration for CloudWatch logs publishing.
type LogsPublisherConfig struct {
	LogGroupName    string // CloudWatch log group name
	LogStreamName   string // CloudWatch log stream name
	Service         string // Value of the "service" attribute on every event
	Region          string // AWS region
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
	BufferSize      int    // Buffer size before auto-flush
	FlushInterval   time.Duration
	AutoCreate      bool // Automatically create log group/stream if missing
}

type logsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisher publishes logs to AWS CloudWatch Logs.
// It must not log through pkg/logger: the logger forwards into it.
type LogsPublisher struct {
	client        logsAPI
	logGroupName  string
	logStreamName string
	service       string

	buffer     []port.LogEntry
	bufferSize int
	mu         sync.Mutex

	sequenceToken *string

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func (cfg LogsPublisherConfig) normalize() (LogsPublisherConfig, error) {
	if cfg.LogGroupName == "" {
		return cfg, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return cfg, fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return cfg, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Service == "" {
		cfg.Service = "limit-monitor"
	}
	return cfg, nil
}

// NewLogsPublisher creates a new CloudWatch logs publisher.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return newLogsPublisher(ctx, cloudwatchlogs.NewFromConfig(awsCfg), cfg)
}

func newLogsPublisher(ctx context.Context, client logsAPI, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	p := &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		service:       cfg.Service,
		buffer:        make([]port.LogEntry, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushTicker:   time.NewTicker(cfg.FlushInterval),
		stopCh:        make(chan struct{}),
	}

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			p.flushTicker.Stop()
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// Publish buffers a single log entry.
func (p *LogsPublisher) Publish(ctx context.Context, entry port.LogEntry) error {
	return p.PublishBatch(ctx, []port.LogEntry{entry})
}

// PublishBatch buffers log entries, flushing when the buffer fills up.
func (p *LogsPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range entries {
		p.buffer = append(p.buffer, entry)

		if len(p.buffer) >= p.bufferSize {
			if err := p.flushBufferUnsafe(ctx); err != nil {
				return fmt.Errorf("failed to flush buffer: %w", err)
			}
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered log entries.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining logs.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			// A failed flush keeps the buffer; the next tick retries.
			_ = p.Flush(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *LogsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	// CloudWatch Logs rejects batches that are not in chronological order.
	sort.SliceStable(p.buffer, func(i, j int) bool {
		return p.buffer[i].Timestamp.Before(p.buffer[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(p.buffer))
	for _, entry := range p.buffer {
		event, err := p.convertToLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	for _, chunk := range chunkLogEvents(events) {
		if err := p.publishLogEventsWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// chunkLogEvents splits events by the per-request count and byte limits.
func chunkLogEvents(events []types.InputLogEvent) [][]types.InputLogEvent {
	var chunks [][]types.InputLogEvent
	start, size := 0, 0

	for i, event := range events {
		eventSize := len(aws.ToString(event.Message)) + logEventOverhead
		if i > start && (i-start >= maxLogEventsPerRequest || size+eventSize > maxLogBatchSize) {
			chunks = append(chunks, events[start:i])
			start, size = i, 0
		}
		size += eventSize
	}
	if start < len(events) {
		chunks = append(chunks, events[start:])
	}

	return chunks
}

// publishLogEventsWithRetry publishes log events with retry logic.
func (p *LogsPublisher) publishLogEventsWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		output, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		})
		if err == nil {
			p.sequenceToken = output.NextSequenceToken
			return nil
		}

		lastErr = err

		var invalidSeqErr *types.InvalidSequenceTokenException
		if errors.As(err, &invalidSeqErr) {
			p.sequenceToken = invalidSeqErr.ExpectedSequenceToken
			continue
		}

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

// convertToLogEvent renders a LogEntry as a JSON CloudWatch event.
func (p *LogsPublisher) convertToLogEvent(entry port.LogEntry) (types.InputLogEvent, error) {
	logData := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		"level":     string(entry.Level),
		"message":   entry.Message,
	}
	if p.service != "" {
		logData["service"] = p.service
	}
	if len(entry.Fields) > 0 {
		logData["fields"] = entry.Fields
	}

	messageJSON, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(messageJSON)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

// ensureLogGroupAndStream creates the log group and stream if they don't exist.
func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var alreadyExists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}
