package payment

import (
	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac-sha256 of t.payload>"
const SignatureHeader = "Payment-Signature"

// EventCheckoutCompleted is the only event type that settles a bid
const EventCheckoutCompleted = "checkout.session.completed"

// DefaultTolerance bounds the age of a signed webhook delivery
const DefaultTolerance = 5 * time.Minute

// Checkout session metadata keys
const (
	MetaItemCode = "item_code"
	MetaBidderID = "bidder_id"
	MetaAmount   = "amount"
	MetaToken    = "token"
	MetaMessage  = "message"
	MetaColor    = "color"
)

// ErrIgnoredEvent is returned for well-formed events that do not settle anything
var ErrIgnoredEvent = errors.New("event ignored")

// Event is a gateway webhook delivery
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the object of a checkout.session.completed event
type CheckoutSession struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// Webhook verifies signed gateway deliveries and turns completed checkouts into settle requests
type Webhook struct {
	secret    []byte
	tolerance time.Duration
	signer    *IntentSigner
	now       func() time.Time
}

// NewWebhook creates a webhook verifier. A zero tolerance uses DefaultTolerance.
func NewWebhook(secret string, tolerance time.Duration, signer *IntentSigner) (*Webhook, error) {
	if secret == "" {
		return nil, errors.New("webhook secret must not be empty")
	}
	if signer == nil {
		return nil, errors.New("webhook needs an intent signer")
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Webhook{secret: []byte(secret), tolerance: tolerance, signer: signer, now: time.Now}, nil
}

// Sign returns the signature header value for payload delivered at t
func (w *Webhook) Sign(payload []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(w.mac(ts, payload))
}

// VerifySignature checks the header against the payload and the tolerance window
func (w *Webhook) VerifySignature(payload []byte, header string) error {
	if header == "" {
		return fmt.Errorf("%w - missing %s header", biddingerrors.ErrInvalidSignature, SignatureHeader)
	}

	var ts string
	var sigs [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				sigs = append(sigs, sig)
			}
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("%w - malformed header", biddingerrors.ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w - malformed timestamp", biddingerrors.ErrInvalidSignature)
	}
	if age := w.now().Sub(time.Unix(unix, 0)); age > w.tolerance || age < -w.tolerance {
		return fmt.Errorf("%w - timestamp outside tolerance", biddingerrors.ErrInvalidSignature)
	}

	expected := w.mac(ts, payload)
	for _, sig := range sigs {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w - no matching signature", biddingerrors.ErrInvalidSignature)
}

// ParseEvent verifies and decodes a delivery
func (w *Webhook) ParseEvent(payload []byte, header string) (Event, error) {
	if err := w.VerifySignature(payload, header); err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w - undecodable event: %v", biddingerrors.ErrInvalidIntent, err)
	}
	return ev, nil
}

// SettleRequest extracts the settlement input from a completed checkout. The amount is the one the
// signed intent token commits to, the charged amount_total rides along so settlement can discard
// under- or overpaid checkouts; the session id is the confirmation id.
func (w *Webhook) SettleRequest(ev Event) (model.SettleRequest, error) {
	if ev.Type != EventCheckoutCompleted {
		return model.SettleRequest{}, fmt.Errorf("%w: type %s", ErrIgnoredEvent, ev.Type)
	}
	session := ev.Data.Object
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		return model.SettleRequest{}, fmt.Errorf("%w: payment status %s", ErrIgnoredEvent, session.PaymentStatus)
	}
	if session.ID == "" {
		return model.SettleRequest{}, fmt.Errorf("%w - session without id", biddingerrors.ErrInvalidIntent)
	}

	meta := session.Metadata
	claims, err := w.signer.Parse(meta[MetaToken])
	if err != nil {
		return model.SettleRequest{}, err
	}
	if claims.ItemCode != meta[MetaItemCode] || claims.BidderID != meta[MetaBidderID] ||
		strconv.FormatInt(claims.Amount, 10) != meta[MetaAmount] {
		return model.SettleRequest{}, fmt.Errorf("%w - metadata does not match token", biddingerrors.ErrInvalidIntent)
	}

	req := model.SettleRequest{
		ConfirmationID: session.ID,
		ItemCode:       claims.ItemCode,
		BidderID:       claims.BidderID,
		Amount:         claims.Amount,
		Customization:  customizationFromMetadata(meta),
	}
	return req.WithCharge(session.AmountTotal), nil
}

// customizationFromMetadata never fails: the bidder already paid, so bad display data falls back
// to defaults instead of blocking settlement.
func customizationFromMetadata(meta map[string]string) model.Customization {
	c := model.Customization{Message: meta[MetaMessage], Color: model.DefaultColor}
	if color, err := model.ParseColor(meta[MetaColor]); err == nil {
		c.Color = color
	}
	if utf8.RuneCountInString(c.Message) > model.MaxMessageLength {
		c.Message = string([]rune(c.Message)[:model.MaxMessageLength])
	}
	return c
}

func (w *Webhook) mac(ts string, payload []byte) []byte {
	h := hmac.New(sha256.New, w.secret)
	h.Write([]byte(ts))
	h.Write([]byte("."))
	h.Write(payload)
	return h.Sum(nil)
}
