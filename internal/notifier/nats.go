package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes sanitized payloads as JSON messages.
type NATSNotifier struct {
	conn *nats.Conn
}

func NewNATSNotifier(url string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("vendor-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSNotifier{conn: conn}, nil
}

func (n *NATSNotifier) ReportReceived(ctx context.Context, requestID string, payload map[string]interface{}) error {
	return n.publish(ctx, SubjectReportReceived, requestID, payload)
}

func (n *NATSNotifier) ContentPublished(ctx context.Context, requestID string, payload map[string]interface{}) error {
	return n.publish(ctx, SubjectPublishReceived, requestID, payload)
}

func (n *NATSNotifier) FileReceived(ctx context.Context, requestID string, meta map[string]interface{}) error {
	return n.publish(ctx, SubjectFileReceived, requestID, meta)
}

func (n *NATSNotifier) publish(ctx context.Context, subject, requestID string, payload map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := map[string]interface{}{
		"request_id": requestID,
		"payload":    payload,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return n.conn.Publish(subject, data)
}

func (n *NATSNotifier) Close() {
	n.conn.Close()
}
