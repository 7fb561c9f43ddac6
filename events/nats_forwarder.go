package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	streamName    = "GIVEAWAY_EVENTS"
	subjectPrefix = "giveaway."
)

// Publisher sends a payload to a message bus subject
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Envelope is the wire format of a forwarded event
type Envelope struct {
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Subject returns the bus subject for an event type
func Subject(eventType EventType) string {
	return subjectPrefix + string(eventType)
}

// Forwarder relays committed events from the in-process bus to a Publisher
type Forwarder struct {
	publisher Publisher
	now       func() time.Time
}

// NewForwarder creates a forwarder
func NewForwarder(publisher Publisher) *Forwarder {
	return &Forwarder{publisher: publisher, now: time.Now}
}

// Attach subscribes the forwarder to every event type on bus
func (f *Forwarder) Attach(bus *Bus) {
	bus.SubscribeAll(f.Handle)
}

// Handle encodes and publishes a single event. Failures are logged only.
func (f *Forwarder) Handle(ctx context.Context, event Event) {
	data, err := Encode(event, f.now())
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to encode event for forwarding")
		return
	}

	if err := f.publisher.Publish(ctx, Subject(event.Type()), data); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Warn("Failed to forward event")
	}
}

// Encode wraps an event in an Envelope and marshals it
func Encode(event Event, occurredAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.Type(), err)
	}
	return json.Marshal(Envelope{
		Type:       event.Type(),
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	})
}

// NATSPublisher publishes to a JetStream stream
type NATSPublisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// ConnectNATS dials servers and makes sure the event stream exists
func ConnectNATS(servers string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("giveaway-ledger"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}

	log.WithField("servers", servers).Info("Connected to NATS with JetStream")
	return p, nil
}

func (p *NATSPublisher) ensureStream() error {
	if _, err := p.js.StreamInfo(streamName); err == nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:        streamName,
		Subjects:    []string{subjectPrefix + ">"},
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Committed wallet and giveaway events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	log.WithField("stream", streamName).Info("Created JetStream stream")
	return nil
}

// Publish implements Publisher
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.WithError(err).Warn("NATS drain failed")
		p.nc.Close()
	}
}
