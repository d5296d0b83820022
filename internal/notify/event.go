package notify

//go:generate mockgen -destination=mock_publisher.go -package=notify claimed-world/internal/notify Publisher

import (
	model "claimed-world/internal/models"
	"context"
	"errors"
	"time"
)

// Event types
const (
	EventItemSettled   = "item.settled"
	EventBidCustomized = "bid.customized"
)

// Event is a change notification for one item
type Event struct {
	Type             string              `json:"type"`
	ItemCode         string              `json:"item_id"`
	BidID            string              `json:"bid_id"`
	BidderID         string              `json:"user_id"`
	Amount           int64               `json:"amount"`
	PreviousBidderID string              `json:"previous_user_id,omitempty"`
	Customization    model.Customization `json:"customization"`
	At               time.Time           `json:"at"`
}

// SettledEvent describes a committed settlement
func SettledEvent(s model.Settlement, c model.Customization) Event {
	return Event{
		Type:             EventItemSettled,
		ItemCode:         s.ItemCode,
		BidID:            s.BidID,
		BidderID:         s.BidderID,
		Amount:           s.Amount,
		PreviousBidderID: s.PreviousBidderID,
		Customization:    c,
		At:               s.ProcessedAt,
	}
}

// CustomizedEvent describes a customization change on a winning bid
func CustomizedEvent(b model.Bid, at time.Time) Event {
	return Event{
		Type:          EventBidCustomized,
		ItemCode:      b.ItemCode,
		BidID:         b.BidID,
		BidderID:      b.BidderID,
		Amount:        b.Amount,
		Customization: b.Customization,
		At:            at,
	}
}

// Publisher delivers change events to subscribers
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }
