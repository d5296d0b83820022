package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream stream holding the settlement history for archival consumers
const (
	StreamName    = "ITEM_EVENTS"
	SubjectPrefix = "item.events."
)

// NATSPublisher appends events to a JetStream stream
type NATSPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewNATSPublisher connects to NATS and makes sure the stream exists
func NewNATSPublisher(ctx context.Context, url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("claimed-world"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Settled bids and customization changes per item",
		Subjects:    []string{SubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Duplicates:  10 * time.Minute,
		Replicas:    1,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &NATSPublisher{conn: conn, js: js}, nil
}

// Publish implements Publisher. Settlement events are deduplicated by bid id.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, SubjectPrefix+ev.ItemCode, data, jetstream.WithMsgID(messageID(ev))); err != nil {
		return fmt.Errorf("failed to publish event for item %s: %w", ev.ItemCode, err)
	}
	return nil
}

func messageID(ev Event) string {
	if ev.Type == EventItemSettled {
		return ev.Type + ":" + ev.BidID
	}
	return ev.Type + ":" + ev.BidID + ":" + strconv.FormatInt(ev.At.UnixNano(), 10)
}

// Close drains the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
