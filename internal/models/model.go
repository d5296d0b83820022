package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the maximum number of characters in a customization message.
const MaxMessageLength = 50

// MaxColor is the largest 24-bit RGB value.
const MaxColor Color = 0xFFFFFF

// Item represents a biddable map entity, e.g. a country
type Item struct {
	Code            string        `json:"item_id" yaml:"code"`
	Name            string        `json:"name" yaml:"name"`
	CurrentAmount   int64         `json:"current_amount"`
	CurrentBidderID string        `json:"current_bidder_id,omitempty"`
	CurrentBidID    string        `json:"current_bid_id,omitempty"`
	Customization   Customization `json:"customization"`
	Version         int64         `json:"-"`
}

// HasWinner reports whether any bid currently owns the item.
func (i Item) HasWinner() bool {
	return i.CurrentBidID != ""
}

// MinimumBid returns the smallest amount that can currently win the item.
func (i Item) MinimumBid() int64 {
	return i.CurrentAmount + 1
}

// Bid represents a confirmed, paid claim on an item
type Bid struct {
	BidID          string        `json:"bid_id"`
	ItemCode       string        `json:"item_id"`
	BidderID       string        `json:"user_id"`
	Amount         int64         `json:"amount"`
	CreatedAt      time.Time     `json:"created_at"`
	IsWinning      bool          `json:"is_winning"`
	Customization  Customization `json:"customization"`
	ConfirmationID string        `json:"confirmation_id,omitempty"`
}

// Winner is the projected current owner of an item.
type Winner struct {
	ItemCode      string        `json:"item_id"`
	BidID         string        `json:"bid_id"`
	BidderID      string        `json:"user_id"`
	Amount        int64         `json:"amount"`
	Customization Customization `json:"customization"`
}

// Customization holds the owner-controlled display attributes of a winning bid.
type Customization struct {
	Message string `json:"message"`
	Color   Color  `json:"color"`
}

// Validate checks the message length and color range.
func (c Customization) Validate() error {
	if n := utf8.RuneCountInString(c.Message); n > MaxMessageLength {
		return fmt.Errorf("message has %d characters, maximum is %d", n, MaxMessageLength)
	}
	if c.Color > MaxColor {
		return fmt.Errorf("color %d exceeds 24 bits", uint32(c.Color))
	}
	return nil
}

// Color is a 24-bit RGB value, encoded as "#RRGGBB" in JSON.
type Color uint32

// DefaultColor is the map color of items nobody customized.
const DefaultColor Color = 0xCCCCCC

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q must have the form #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q is not hexadecimal: %w", s, err)
	}
	return Color(v), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%06X", uint32(c))
}

func (c Color) MarshalText() ([]byte, error) {
	if c > MaxColor {
		return nil, fmt.Errorf("color %d exceeds 24 bits", uint32(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BidIntent is the advisory result of a proposed bid, handed to the payment gateway.
type BidIntent struct {
	IntentID    string    `json:"intent_id"`
	ItemCode    string    `json:"item_id"`
	BidderID    string    `json:"user_id"`
	Amount      int64     `json:"amount"`
	MinimumBid  int64     `json:"minimum_bid"`
	Token       string    `json:"token"`
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Outcome is the terminal state of a settlement attempt.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeDiscarded Outcome = "discarded"
)

// Discard reasons
const (
	ReasonStaleBid       = "stale_bid"
	ReasonAmountMismatch = "amount_mismatch"
)

// Confirmation records how a payment confirmation id was settled.
type Confirmation struct {
	ConfirmationID string    `json:"confirmation_id"`
	ItemCode       string    `json:"item_id"`
	BidderID       string    `json:"user_id"`
	Amount         int64     `json:"amount"`
	Outcome        Outcome   `json:"outcome"`
	Reason         string    `json:"reason,omitempty"`
	BidID          string    `json:"bid_id,omitempty"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Settlement is the result returned for a settle call, including replays.
type Settlement struct {
	Confirmation
	Replayed         bool   `json:"replayed"`
	PreviousBidderID string `json:"previous_bidder_id,omitempty"`
	PreviousAmount   int64  `json:"previous_amount"`
}

// Committed reports whether the settlement produced a winning bid.
func (s Settlement) Committed() bool {
	return s.Outcome == OutcomeCommitted
}

// SettleRequest carries a gateway-confirmed payment into the settlement processor.
type SettleRequest struct {
	ConfirmationID string
	ItemCode       string
	BidderID       string
	Amount         int64
	Customization  Customization
	// ChargedMinorUnits is what the gateway reported as charged, nil when no charge was reported
	ChargedMinorUnits *int64
}

// WithCharge returns a copy of r carrying the gateway-reported charge
func (r SettleRequest) WithCharge(minorUnits int64) SettleRequest {
	r.ChargedMinorUnits = &minorUnits
	return r
}

// Commit is one atomic ledger transition: a new winner replaces the previous one.
type Commit struct {
	Bid             Bid
	ExpectedVersion int64
	PreviousBidID   string
	Confirmation    Confirmation
}

// BidderRanking is one leaderboard row.
type BidderRanking struct {
	BidderID   string    `json:"user_id"`
	TotalSpend int64     `json:"total_spend"`
	ItemsOwned int       `json:"items_owned"`
	ItemCount  int       `json:"item_count"`
	ReachedAt  time.Time `json:"reached_at"`
}
