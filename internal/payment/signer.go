package payment

import (
	"claimed-world/internal/biddingerrors"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIntentTTL matches the lifetime of a gateway checkout session.
const DefaultIntentTTL = 30 * time.Minute

const intentIssuer = "claimed-world"

// IntentClaims is what a bid intent token commits to
type IntentClaims struct {
	ItemCode string `json:"item"`
	BidderID string `json:"bidder"`
	Amount   int64  `json:"amount"`
	jwt.RegisteredClaims
}

// Expired reports whether the claims are past their expiry at t
func (c IntentClaims) Expired(t time.Time) bool {
	return c.ExpiresAt == nil || !t.Before(c.ExpiresAt.Time)
}

// IntentSigner issues and checks HS256 JWT intent tokens
type IntentSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIntentSigner creates a signer. A zero ttl uses DefaultIntentTTL.
func NewIntentSigner(secret string, ttl time.Duration) (*IntentSigner, error) {
	if secret == "" {
		return nil, errors.New("intent secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultIntentTTL
	}
	return &IntentSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued tokens stay valid
func (s *IntentSigner) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for the bid and returns it with its expiry
func (s *IntentSigner) Sign(itemCode, bidderID string, amount int64) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, IntentClaims{
		ItemCode: itemCode,
		BidderID: bidderID,
		Amount:   amount,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    intentIssuer,
			Subject:   bidderID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign intent: %w", err)
	}
	return token, expiresAt, nil
}

// Parse checks the token signature and returns its claims without looking at expiry.
// Settlement uses it because a gateway may redeliver a confirmation long after the intent expired.
func (s *IntentSigner) Parse(token string) (IntentClaims, error) {
	return s.parse(token, jwt.WithoutClaimsValidation())
}

// Verify parses the token and rejects it once expired
func (s *IntentSigner) Verify(token string) (IntentClaims, error) {
	return s.parse(token,
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(intentIssuer),
	)
}

func (s *IntentSigner) parse(token string, opts ...jwt.ParserOption) (IntentClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims IntentClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return IntentClaims{}, fmt.Errorf("%w - token expired", biddingerrors.ErrInvalidIntent)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return IntentClaims{}, fmt.Errorf("%w - token signature mismatch", biddingerrors.ErrInvalidIntent)
	default:
		return IntentClaims{}, fmt.Errorf("%w - %v", biddingerrors.ErrInvalidIntent, err)
	}
}
