package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/unaibg/merkatu/internal/monitoring"
)

// AlertPublisher implements monitoring.Notifier over NATS JetStream so that
// operational alerts reach dashboards and paging consumers.
type AlertPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// AlertMessage is the wire shape published on ops.alerts.<severity>.
type AlertMessage struct {
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Snapshot    map[string]any `json:"snapshot,omitempty"`
	EmittedAt   time.Time      `json:"emitted_at"`
}

// NewAlertPublisher connects to NATS, enables JetStream, and ensures the
// alerts stream exists.
func NewAlertPublisher(url string) (*AlertPublisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "OPS_ALERTS",
		Subjects:  []string{"ops.alerts.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &AlertPublisher{conn: conn, js: js}, nil
}

// Notify publishes the alert on ops.alerts.<severity>. Publish failures are
// swallowed: alerting must never take the request path down, and the
// companion log notifier still records the alert.
func (p *AlertPublisher) Notify(severity monitoring.Severity, title, description string, snapshot map[string]any) {
	msg := AlertMessage{
		Severity:    string(severity),
		Title:       title,
		Description: description,
		Snapshot:    snapshot,
		EmittedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_, _ = p.js.Publish("ops.alerts."+string(severity), data)
}

// Close drains and closes the connection.
func (p *AlertPublisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
