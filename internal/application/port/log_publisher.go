package port

import (
	"context"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is a structured log line forwarded to an external log system.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher ships log entries out of process. Implementations buffer;
// Flush must be called on shutdown.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
	// PublishBatch must respect the backend batch limit (10,000 events for CloudWatch Logs).
	PublishBatch(ctx context.Context, entries []LogEntry) error
	Flush(ctx context.Context) error
}
