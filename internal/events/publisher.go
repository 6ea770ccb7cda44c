package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"inventory-service/internal/config"
)

// Subjects published by this service
const (
	SubjectOrderCreated        = "order.created"
	SubjectProductLowStock     = "product.low_stock"
	SubjectSubscriptionChanged = "subscription.changed"
	SubjectUserSynced          = "user.synced"
)

// Publisher wraps the NATS connection. Publishing is best effort: the
// service runs fine without a broker and callers treat errors as
// non-fatal.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the inventory events
// stream exists.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	log.Printf("[NATS] Connecting to %s", cfg.URL)

	opts := []nats.Option{
		nats.Name("inventory-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// LimitsPolicy so multiple downstream consumers can read the stream.
	_, err = js.AddStream(&nats.StreamConfig{
		Name:        "INVENTORY_EVENTS",
		Description: "Stream for inventory and billing events",
		Subjects:    []string{"order.>", "product.>", "subscription.>", "user.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      24 * time.Hour * 7,
		MaxMsgs:     100000,
		Discard:     nats.DiscardOld,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		log.Printf("[NATS] Warning: Could not create stream (may already exist): %v", err)
	}

	log.Printf("[NATS] Connected successfully to %s", cfg.URL)
	return &Publisher{conn: conn, js: js}, nil
}

// Publish marshals the event and publishes it on the subject.
func (p *Publisher) Publish(subject string, event interface{}) error {
	if p == nil || p.js == nil {
		return fmt.Errorf("NATS publisher not initialized")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		log.Printf("[NATS] Drain failed: %v", err)
	}
}
