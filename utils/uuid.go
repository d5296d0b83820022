package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random identifier string
func GenerateID() string {
	return uuid.NewString()
}

// GenerateOrderedID returns a time-ordered identifier (UUIDv7), so ledger rows sort by creation.
// Falls back to a random id if the clock source fails.
func GenerateOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return GenerateID()
	}
	return id.String()
}

// GeneratePrefixedID returns a random identifier tagged with its kind, e.g. "cs_..." for sessions
func GeneratePrefixedID(prefix string) string {
	return prefix + "_" + GenerateID()
}
