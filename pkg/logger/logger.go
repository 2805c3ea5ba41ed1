package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/port"
)

type Logger struct {
	logger *log.Logger
	level  Level

	mu        sync.RWMutex
	publisher port.LogPublisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func New(level string) *Logger {
	l := &Logger{
		logger: log.New(os.Stdout, "", 0),
		level:  parseLevel(level),
	}
	return l
}

// SetOutput redirects local log lines, e.g. to stderr when stdout carries program output.
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetLogPublisher forwards every emitted entry to an external log system as well.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publisher = publisher
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log("ERROR", msg, args...)
	}
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	now := time.Now()
	timestamp := now.Format("2006-01-02 15:04:05")
	message := fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)

	if len(args) > 0 {
		message += " |"
		for i := 0; i < len(args); i += 2 {
			if i+1 < len(args) {
				message += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			}
		}
	}

	l.logger.Println(message)
	l.forward(now, level, msg, args)
}

func (l *Logger) forward(ts time.Time, level, msg string, args []interface{}) {
	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()

	if publisher == nil {
		return
	}

	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}

	// Publisher buffers internally; the error is dropped to avoid recursive logging.
	_ = publisher.Publish(context.Background(), port.LogEntry{
		Timestamp: ts.UTC(),
		Level:     port.LogLevel(level),
		Message:   msg,
		Fields:    fields,
	})
}
