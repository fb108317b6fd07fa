// Package domain provides type-safe identifiers shared across packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "eucookie/pkg/domain-errors"
)

// PageID identifies one page load. Each page load owns its own initialization gate.
type PageID uuid.UUID

// NewPageID returns a random page identifier.
func NewPageID() PageID { return PageID(uuid.New()) }

// ParsePageID is used at trust boundaries (handlers, API inputs).
// The nil UUID parses successfully; services reject it as bad_request.
func ParsePageID(s string) (PageID, error) {
	if s == "" {
		return PageID{}, dErrors.New(dErrors.CodeInvalidInput, "page ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return PageID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid page ID")
	}
	return PageID(id), nil
}

func (id PageID) String() string { return uuid.UUID(id).String() }

func (id PageID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets PageID appear as a string in JSON bodies and map keys.
func (id PageID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText accepts the form MarshalText produces.
func (id *PageID) UnmarshalText(b []byte) error {
	parsed, err := ParsePageID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
