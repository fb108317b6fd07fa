package handler

import (
	"strings"

	"eucookie/pkg/platform/validation"
)

// DefaultScope is used when an attach request names no content.
const DefaultScope = "document"

// AttachRequest describes the content a page attach cycle processes.
type AttachRequest struct {
	Scope string `json:"scope"`
}

func (r *AttachRequest) Normalize() {
	r.Scope = strings.TrimSpace(r.Scope)
	if r.Scope == "" {
		r.Scope = DefaultScope
	}
}

func (r *AttachRequest) Validate() error {
	return validation.CheckStringLength("scope", r.Scope, validation.MaxScopeLength)
}
