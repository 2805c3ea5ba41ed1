package port

import (
	"context"
	"time"
)

// SubjectReportGenerated is the default subject for report announcements.
const SubjectReportGenerated = "limitmon.report.generated"

// ReportGeneratedEvent announces a freshly built violation report.
type ReportGeneratedEvent struct {
	ReportID       string    `json:"report_id"`
	DayRange       string    `json:"day_range"`
	Start          time.Time `json:"start"`
	Stop           time.Time `json:"stop"`
	ViolationCount int       `json:"violation_count"`
	Missing        []string  `json:"missing"`
	Failed         []string  `json:"failed,omitempty"`
	URL            string    `json:"url,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, event interface{}) error
	Close() error
}

// MessageID returns a broker deduplication id; regenerating a report yields a new id.
func (e ReportGeneratedEvent) MessageID() string {
	return e.ReportID
}
