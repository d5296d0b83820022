package payment

//go:generate mockgen -destination=mock_gateway.go -package=payment claimed-world/internal/payment Gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerUnit is the number of gateway minor units (cents) in one whole bid unit.
const MinorUnitsPerUnit = 100

// Gateway is the external payment provider. It only creates sessions and reports what was charged;
// it never decides whether a bid wins.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	LookupPayment(ctx context.Context, confirmationID string) (Payment, error)
}

// SessionRequest describes the checkout the bidder is sent to
type SessionRequest struct {
	ItemCode  string
	ItemName  string
	BidderID  string
	Amount    int64
	Token     string
	Message   string
	Color     string
	ExpiresAt time.Time
}

// Session is a gateway checkout session
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// Payment is the gateway's authoritative record of a completed charge
type Payment struct {
	ConfirmationID string
	AmountTotal    int64 // minor units
	Currency       string
	Status         string
}

// Amount returns the charged amount in whole units
func (p Payment) Amount() (int64, error) {
	return FromMinorUnits(p.AmountTotal)
}

// ToMinorUnits converts whole units into gateway minor units
func ToMinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromInt(MinorUnitsPerUnit)).IntPart()
}

// FromMinorUnits converts gateway minor units into whole units. Fractional amounts are rejected
// because bids are whole units only.
func FromMinorUnits(minor int64) (int64, error) {
	d := decimal.New(minor, -2)
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %s is not a whole unit", d.StringFixed(2))
	}
	return d.IntPart(), nil
}
