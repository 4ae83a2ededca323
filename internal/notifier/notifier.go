// Package notifier hands sanitized payloads to downstream consumers. The
// relay's responsibility ends at hand-off: delivery failures are logged by
// callers, never surfaced to the vendor or the internal caller.
package notifier

import "context"

// Subjects for downstream consumers. The storage pipeline subscribes to
// report/file subjects; the real-time fan-out subscribes to publish.
const (
	SubjectReportReceived  = "relay.report.received"
	SubjectPublishReceived = "relay.publish.received"
	SubjectFileReceived    = "relay.file.received"
)

// Notifier receives redacted payloads after a message clears the trust
// boundary.
type Notifier interface {
	ReportReceived(ctx context.Context, requestID string, payload map[string]interface{}) error
	ContentPublished(ctx context.Context, requestID string, payload map[string]interface{}) error
	FileReceived(ctx context.Context, requestID string, meta map[string]interface{}) error
	Close()
}

// Noop is used when no message bus is configured.
type Noop struct{}

func (Noop) ReportReceived(ctx context.Context, requestID string, payload map[string]interface{}) error {
	return nil
}

func (Noop) ContentPublished(ctx context.Context, requestID string, payload map[string]interface{}) error {
	return nil
}

func (Noop) FileReceived(ctx context.Context, requestID string, meta map[string]interface{}) error {
	return nil
}

func (Noop) Close() {}
