package validation

import (
	"fmt"

	dErrors "eucookie/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024
)

// String element length limits
const (
	// MaxScopeLength is the maximum length of an attach scope.
	MaxScopeLength = 256

	// MaxActorIDLength is the maximum length of an admin actor ID.
	MaxActorIDLength = 128
)

// Query limits
const (
	// DefaultEventsLimit is the page size for the recent-events listing.
	DefaultEventsLimit = 50

	// MaxEventsLimit caps ?limit on the recent-events listing.
	MaxEventsLimit = 500
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
