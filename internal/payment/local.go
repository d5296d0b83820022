package payment

import (
	"claimed-world/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionExpired  = errors.New("checkout session expired")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrSessionComplete = errors.New("checkout session already completed")
)

type localSession struct {
	req       SessionRequest
	session   Session
	completed bool
}

// LocalGateway is an in-process gateway for development and tests. Completing a session yields
// the signed webhook delivery a real gateway would send.
type LocalGateway struct {
	mu       sync.Mutex
	baseURL  string
	currency string
	webhook  *Webhook
	sessions map[string]*localSession // key: session id
	payments map[string]Payment       // key: confirmation id (= session id)
	now      func() time.Time
}

// NewLocalGateway creates a gateway whose checkout URLs live under baseURL
func NewLocalGateway(baseURL, currency string, webhook *Webhook) *LocalGateway {
	return &LocalGateway{
		baseURL:  baseURL,
		currency: currency,
		webhook:  webhook,
		sessions: make(map[string]*localSession),
		payments: make(map[string]Payment),
		now:      time.Now,
	}
}

// CreateSession records a pending checkout
func (g *LocalGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if req.Amount <= 0 {
		return Session{}, fmt.Errorf("create session: non-positive amount %d", req.Amount)
	}

	id := utils.GeneratePrefixedID("cs")
	session := Session{
		ID:        id,
		URL:       g.baseURL + "/checkout/" + id,
		ExpiresAt: req.ExpiresAt,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id] = &localSession{req: req, session: session}
	return session, nil
}

// LookupPayment returns the charge recorded for a completed session
func (g *LocalGateway) LookupPayment(ctx context.Context, confirmationID string) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[confirmationID]
	if !ok {
		return Payment{}, fmt.Errorf("lookup payment %s: %w", confirmationID, ErrPaymentNotFound)
	}
	return p, nil
}

// Complete charges the session's bid amount and returns the signed webhook delivery
func (g *LocalGateway) Complete(sessionID string) ([]byte, string, error) {
	g.mu.Lock()
	s, ok := g.sessions[sessionID]
	g.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("complete %s: %w", sessionID, ErrSessionNotFound)
	}
	return g.CompleteCharging(sessionID, ToMinorUnits(s.req.Amount))
}

// CompleteCharging completes the session charging amountTotal minor units
func (g *LocalGateway) CompleteCharging(sessionID string, amountTotal int64) ([]byte, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, "", fmt.Errorf("complete %s: %w", sessionID, ErrSessionNotFound)
	}
	if s.completed {
		return nil, "", fmt.Errorf("complete %s: %w", sessionID, ErrSessionComplete)
	}
	now := g.now()
	if !s.session.ExpiresAt.IsZero() && now.After(s.session.ExpiresAt) {
		return nil, "", fmt.Errorf("complete %s: %w", sessionID, ErrSessionExpired)
	}
	s.completed = true
	g.payments[sessionID] = Payment{
		ConfirmationID: sessionID,
		AmountTotal:    amountTotal,
		Currency:       g.currency,
		Status:         "paid",
	}

	var ev Event
	ev.ID = utils.GeneratePrefixedID("evt")
	ev.Type = EventCheckoutCompleted
	ev.Created = now.Unix()
	ev.Data.Object = CheckoutSession{
		ID:            sessionID,
		AmountTotal:   amountTotal,
		Currency:      g.currency,
		PaymentStatus: "paid",
		Metadata: map[string]string{
			MetaItemCode: s.req.ItemCode,
			MetaBidderID: s.req.BidderID,
			MetaAmount:   strconv.FormatInt(s.req.Amount, 10),
			MetaToken:    s.req.Token,
			MetaMessage:  s.req.Message,
			MetaColor:    s.req.Color,
		},
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, "", fmt.Errorf("complete %s: %w", sessionID, err)
	}
	return payload, g.webhook.Sign(payload, now), nil
}
