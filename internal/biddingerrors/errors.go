package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrNoBids               = errors.New("no bids found for item")
	ErrUserNoBids           = errors.New("user has not placed any bids")
	ErrBidNotFound          = errors.New("bid not found")
	ErrConfirmationNotFound = errors.New("confirmation not processed yet")
	ErrProjectionDrift      = errors.New("item projection disagrees with bid ledger")
)

// Transient storage errors. Callers retry these with the same confirmation id.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrVersionConflict    = errors.New("item changed concurrently")
)

// business logic errors
var (
	ErrInvalidBid           = errors.New("invalid bid")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrInvalidCustomization = errors.New("invalid customization")
	ErrInvalidIntent        = errors.New("invalid bid intent")
)

// settlement outcomes that are terminal and never retried
var (
	ErrStaleBid       = errors.New("stale bid")
	ErrAmountMismatch = errors.New("charged amount does not match bid amount")
)

// authorization errors
var (
	ErrNotAuthorized    = errors.New("not authorized")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// IsValidation reports whether err is a caller input problem that a retry with the same
// input cannot fix.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBid) ||
		errors.Is(err, ErrBidTooLow) ||
		errors.Is(err, ErrInvalidCustomization) ||
		errors.Is(err, ErrInvalidIntent)
}

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrVersionConflict)
}
