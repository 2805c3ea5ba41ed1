package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/limit-monitor/pkg/logger"
	"github.com/nats-io/nats.go"
)

// identified is implemented by events that carry their own deduplication id
type identified interface {
	MessageID() string
}

// NATSPublisher implements port.EventPublisher for NATS JetStream
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and makes sure a stream captures subjects
func NewNATSPublisher(natsURL, stream string, subjects []string, log *logger.Logger) (*NATSPublisher, error) {
	// Connect to NATS with retry
	nc, err := nats.Connect(natsURL,
		nats.Name("limit-monitor"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Get JetStream context
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if stream != "" && len(subjects) > 0 {
		if err := ensureStream(js, stream, subjects); err != nil {
			nc.Close()
			return nil, err
		}
	}

	log.Info("Connected to NATS", "url", natsURL, "stream", stream)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

func ensureStream(js nats.JetStreamContext, name string, subjects []string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Storage:    nats.FileStorage,
		MaxAge:     90 * 24 * time.Hour,
		Duplicates: time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create JetStream stream %s: %w", name, err)
	}
	return nil
}

// PublishEvent publishes an event and waits for the JetStream ack.
// Report events are rare, so the publish is synchronous.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if withID, ok := event.(identified); ok && withID.MessageID() != "" {
		opts = append(opts, nats.MsgId(withID.MessageID()))
	}

	ack, err := p.js.Publish(subject, data, opts...)
	if err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
		"size", len(data),
	)

	return nil
}

// Close drains pending messages and closes the NATS connection
func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}
