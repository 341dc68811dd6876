package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes notifications to a NATS subject made of the base
// subject followed by the message Kind, so subscribers can filter with a
// wildcard (e.g. "gatekeeper.hold.>").
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

var _ Notifier = (*NATSNotifier)(nil)
var _ ContextNotifier = (*NATSNotifier)(nil)

// NewNATSNotifier wraps an already-connected NATS client. subject is the
// base subject; the published subject is "<subject>.<kind>".
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// Notify publishes msg, best-effort. Publish errors are swallowed per the
// contract that a notification hook must never block or fail the caller's
// hold/proposal mutation; callers that need delivery guarantees should use
// NotifyContext and handle the error themselves.
func (n *NATSNotifier) Notify(msg Message) {
	_ = n.publish(msg)
}

// NotifyContext publishes msg and returns any transport error.
func (n *NATSNotifier) NotifyContext(ctx context.Context, msg Message) error {
	return n.publish(msg)
}

func (n *NATSNotifier) publish(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.conn.Publish(n.subject+"."+msg.Kind, payload)
}
